package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uniroom/backend/internal/auth"
	"github.com/uniroom/backend/internal/cache"
	"github.com/uniroom/backend/internal/database"
	"github.com/uniroom/backend/internal/handlers"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/middleware"
	"github.com/uniroom/backend/internal/moderation"
	"github.com/uniroom/backend/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("UniRoom backend starting")

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Redis is optional: rate limiting degrades gracefully without it
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		if _, err := cache.NewRedisClient(redisHost, os.Getenv("REDIS_PORT"), os.Getenv("REDIS_PASSWORD")); err != nil {
			logger.WarnWithFields("Redis unavailable, rate limiting disabled", err)
		}
	}

	// Auth service
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.FatalWithFields("JWT_SECRET environment variable is required", nil)
	}
	authService := auth.NewService(jwtSecret)

	// Object storage for images. Optional: text-only deployments work
	// without it but image posts will be rejected by the pipeline.
	var uploader *storage.S3Storage
	if bucket := os.Getenv("AWS_BUCKET"); bucket != "" {
		var err error
		uploader, err = storage.NewS3Storage(os.Getenv("AWS_REGION"), bucket, os.Getenv("CDN_BASE_URL"))
		if err != nil {
			logger.FatalWithFields("Failed to initialize S3 storage", err)
		}
		if err := uploader.CheckBucketAccess(context.Background()); err != nil {
			logger.WarnWithFields("S3 bucket access check failed, continuing without verification", err)
		}
	} else {
		logger.Log.Warn("AWS_BUCKET not set, image uploads disabled")
	}

	// Moderation classifiers
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		logger.FatalWithFields("OPENAI_API_KEY environment variable is required", nil)
	}
	var openaiOpts []moderation.OpenAIOption
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		openaiOpts = append(openaiOpts, moderation.WithBaseURL(baseURL))
	}
	if model := os.Getenv("MODERATION_CHAT_MODEL"); model != "" {
		openaiOpts = append(openaiOpts, moderation.WithChatModel(model))
	}
	openaiClient := moderation.NewOpenAIClient(openaiKey, openaiOpts...)

	var pipeline *moderation.Pipeline
	if uploader != nil {
		pipeline = moderation.NewPipeline(openaiClient, openaiClient, uploader)
	} else {
		pipeline = moderation.NewPipeline(openaiClient, openaiClient, nil)
	}

	h := handlers.NewHandlers(authService, pipeline, uploader)

	// Setup Gin router
	gin.SetMode(os.Getenv("GIN_MODE"))
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS: strict allow-list, no wildcard
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middleware.RedisRateLimitMiddleware(300, time.Minute))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "uniroom-backend",
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", h.AuthMiddleware(), h.Me)
		}

		posts := api.Group("/posts")
		{
			posts.Use(h.AuthMiddleware())
			posts.POST("", h.CreatePost)
			posts.GET("", h.GetPosts)
			posts.GET("/:id", h.GetPost)
			posts.DELETE("/:id", h.DeletePost)
			posts.GET("/:id/poll", h.GetPoll)
			posts.POST("/:id/comments", h.CreateComment)
			posts.GET("/:id/comments", h.GetComments)
			posts.POST("/:id/report", h.ReportPost)
		}

		comments := api.Group("/comments")
		{
			comments.Use(h.AuthMiddleware())
			comments.DELETE("/:id", h.DeleteComment)
			comments.POST("/:id/report", h.ReportComment)
		}

		upload := api.Group("/upload")
		{
			upload.Use(h.AuthMiddleware())
			upload.POST("/image", h.UploadImage)
		}

		admin := api.Group("/admin")
		{
			admin.Use(h.AuthMiddleware(), h.RequireAdmin())
			admin.GET("/reports", h.ListReports)
			admin.PUT("/reports/:id", h.UpdateReport)
		}
	}

	// Server configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("Listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.FatalWithFields("Server forced to shutdown", err)
	}

	logger.Log.Info("Server exited")
}

// allowedOrigins reads the CORS allow-list from ALLOWED_ORIGINS (comma
// separated) with a development default
func allowedOrigins() []string {
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		parts := strings.Split(env, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		return origins
	}
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
}
