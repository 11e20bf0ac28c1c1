package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uniroom/backend/internal/auth"
	"github.com/uniroom/backend/internal/database"
	applogger "github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/models"
	"github.com/uniroom/backend/internal/moderation"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	_ = applogger.Initialize("error", "/dev/null")
}

// stubPolicy flags any text containing "vile"; errors on "outage"
type stubPolicy struct{}

func (stubPolicy) ClassifyText(_ context.Context, text string) (moderation.Verdict, error) {
	if strings.Contains(text, "outage") {
		return moderation.Verdict{}, fmt.Errorf("connection refused")
	}
	return moderation.Verdict{Flagged: strings.Contains(text, "vile")}, nil
}

// stubChat answers YES for text containing "Kotakbas", NO otherwise; image
// prompts always pass
type stubChat struct{}

func (stubChat) Answer(_ context.Context, prompt moderation.Prompt) (string, error) {
	if prompt.ImageURL != "" {
		return "YES", nil
	}
	if strings.Contains(prompt.Text, "Kotakbas") {
		return "YES", nil
	}
	return "NO", nil
}

// stubSigner returns a fixed URL
type stubSigner struct{}

func (stubSigner) SignedURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "https://storage.example/signed", nil
}

func testPipeline() *moderation.Pipeline {
	return moderation.NewPipeline(stubPolicy{}, stubChat{}, stubSigner{})
}

func openTestDB(t *testing.T) *gorm.DB {
	host := getEnvOrDefaultTest("POSTGRES_HOST", "localhost")
	port := getEnvOrDefaultTest("POSTGRES_PORT", "5432")
	user := getEnvOrDefaultTest("POSTGRES_USER", "postgres")
	password := getEnvOrDefaultTest("POSTGRES_PASSWORD", "")
	dbname := getEnvOrDefaultTest("POSTGRES_DB", "uniroom_test")

	testDSN := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname)
	if password != "" {
		testDSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
	}

	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("Skipping handler tests: database not available (%v)", err)
		return nil
	}
	return db
}

func migrateTestDB(t *testing.T, db *gorm.DB) {
	var count int64
	db.Raw("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'users'").Scan(&count)
	if count == 0 {
		err := db.AutoMigrate(
			&models.User{},
			&models.Post{},
			&models.Poll{},
			&models.PollOption{},
			&models.AnonymousAlias{},
			&models.FailedWrite{},
			&models.Comment{},
			&models.Report{},
		)
		require.NoError(t, err)
	}
}

func truncateAll(db *gorm.DB) {
	db.Exec("TRUNCATE TABLE reports, comments, anonymous_aliases, failed_writes, poll_options, polls, posts RESTART IDENTITY CASCADE")
	db.Exec("TRUNCATE TABLE users RESTART IDENTITY CASCADE")
}

func getEnvOrDefaultTest(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// PostTestSuite contains post handler tests
type PostTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	mockAuth *auth.MockService
	testUser *models.User
}

func (suite *PostTestSuite) SetupSuite() {
	db := openTestDB(suite.T())
	if db == nil {
		return
	}
	migrateTestDB(suite.T(), db)
	database.DB = db
	suite.db = db

	suite.mockAuth = auth.NewMockService()
	suite.handlers = NewHandlers(suite.mockAuth, testPipeline(), nil)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	api := suite.router.Group("/api/v1")
	posts := api.Group("/posts")
	posts.Use(suite.handlers.AuthMiddleware())
	posts.POST("", suite.handlers.CreatePost)
	posts.GET("", suite.handlers.GetPosts)
	posts.GET("/:id", suite.handlers.GetPost)
	posts.DELETE("/:id", suite.handlers.DeletePost)
	posts.GET("/:id/poll", suite.handlers.GetPoll)
}

func (suite *PostTestSuite) TearDownSuite() {
	if suite.db == nil {
		return
	}
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *PostTestSuite) SetupTest() {
	truncateAll(suite.db)
	suite.mockAuth.Reset()

	testID := fmt.Sprintf("%d", time.Now().UnixNano())
	suite.testUser = &models.User{
		Email:       fmt.Sprintf("poster_%s@test.com", testID),
		Username:    fmt.Sprintf("poster_%s", testID),
		DisplayName: "Test Poster",
	}
	require.NoError(suite.T(), suite.db.Create(suite.testUser).Error)
	suite.mockAuth.UsersByToken["valid-token"] = suite.testUser
}

func (suite *PostTestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *PostTestSuite) TestCreatePostRequiresAuth() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":   "hello",
		"post_type": "feed",
	}, "")

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	// A missing header must be rejected before any token validation work
	assert.Empty(suite.T(), suite.mockAuth.CallsForMethod("ValidateToken"))

	var count int64
	suite.db.Model(&models.Post{}).Count(&count)
	assert.Zero(suite.T(), count, "no post row may exist after a rejected request")
}

func (suite *PostTestSuite) TestCreatePostSuccess() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":   "  selling my chemistry textbook  ",
		"post_type": "feed",
		"category":  "marketplace",
	}, "valid-token")

	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "selling my chemistry textbook", resp["content"], "stored content is trimmed")

	var post models.Post
	require.NoError(suite.T(), suite.db.First(&post, "user_id = ?", suite.testUser.ID).Error)
	assert.Equal(suite.T(), models.PostTypeFeed, post.PostType)
	assert.Equal(suite.T(), "marketplace", post.Category)
}

func (suite *PostTestSuite) TestCreatePostModerationRejection() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":   "something vile",
		"post_type": "feed",
	}, "valid-token")

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "Post violates community guidelines", resp["error"])
	assert.Equal(suite.T(), "MODERATION_REJECTED", resp["code"])

	var count int64
	suite.db.Model(&models.Post{}).Count(&count)
	assert.Zero(suite.T(), count, "rejected content must never be persisted")
}

func (suite *PostTestSuite) TestCreatePostLanguageRejection() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":   "Kotakbas Aidar",
		"post_type": "confession",
	}, "valid-token")

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "Post contains language that is not allowed", resp["error"])
}

func (suite *PostTestSuite) TestCreatePostClassifierOutage() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":   "is there an outage",
		"post_type": "feed",
	}, "valid-token")

	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "Failed to verify content", resp["error"])
	assert.Equal(suite.T(), "UPSTREAM_FAILED", resp["code"])

	var count int64
	suite.db.Model(&models.Post{}).Count(&count)
	assert.Zero(suite.T(), count)
}

func (suite *PostTestSuite) TestCreatePostInvalidType() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":   "hello",
		"post_type": "marketplace",
	}, "valid-token")

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *PostTestSuite) TestCreatePostWithPoll() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":      "best cafeteria dish?",
		"post_type":    "feed",
		"poll_options": []string{"Plov", "Plov", "  Lagman  ", ""},
	}, "valid-token")

	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	var post models.Post
	require.NoError(suite.T(), suite.db.First(&post, "user_id = ?", suite.testUser.ID).Error)

	var poll models.Poll
	require.NoError(suite.T(), suite.db.Preload("Options").First(&poll, "post_id = ?", post.ID).Error)
	require.Len(suite.T(), poll.Options, 2, "duplicates and empties are dropped")

	texts := []string{poll.Options[0].Text, poll.Options[1].Text}
	assert.Equal(suite.T(), []string{"Plov", "Lagman"}, texts)
}

func (suite *PostTestSuite) TestCreatePostPollWithTooFewOptions() {
	w := suite.request("POST", "/api/v1/posts", gin.H{
		"content":      "lonely poll",
		"post_type":    "feed",
		"poll_options": []string{"Only", "only ", "Only"},
	}, "valid-token")

	// The post succeeds; the degenerate poll is silently skipped
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	var post models.Post
	require.NoError(suite.T(), suite.db.First(&post, "user_id = ?", suite.testUser.ID).Error)

	var pollCount int64
	suite.db.Model(&models.Poll{}).Count(&pollCount)
	assert.Zero(suite.T(), pollCount)
}

func (suite *PostTestSuite) TestGetPostsFiltersByType() {
	for _, pt := range []models.PostType{models.PostTypeFeed, models.PostTypeLostFound, models.PostTypeFeed} {
		require.NoError(suite.T(), suite.db.Create(&models.Post{
			UserID:   suite.testUser.ID,
			Content:  "content",
			PostType: pt,
		}).Error)
	}

	w := suite.request("GET", "/api/v1/posts?type=feed", nil, "valid-token")
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Posts []map[string]interface{} `json:"posts"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(suite.T(), resp.Posts, 2)
}

func (suite *PostTestSuite) TestAnonymousPostHidesAuthorFromOthers() {
	post := models.Post{
		UserID:      suite.testUser.ID,
		Content:     "I have a crush on my TA",
		PostType:    models.PostTypeConfession,
		IsAnonymous: true,
	}
	require.NoError(suite.T(), suite.db.Create(&post).Error)

	other := &models.User{
		Email:       "other@test.com",
		Username:    "otheruser",
		DisplayName: "Other",
	}
	require.NoError(suite.T(), suite.db.Create(other).Error)
	suite.mockAuth.UsersByToken["other-token"] = other

	w := suite.request("GET", "/api/v1/posts/"+post.ID, nil, "other-token")
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(suite.T(), resp, "user_id")
	assert.NotContains(suite.T(), resp, "user")
	assert.Equal(suite.T(), "Anonymous", resp["author_name"])

	// The author still sees their own identity
	w = suite.request("GET", "/api/v1/posts/"+post.ID, nil, "valid-token")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), suite.testUser.ID, resp["user_id"])
}

func (suite *PostTestSuite) TestDeletePostOwnership() {
	post := models.Post{
		UserID:   suite.testUser.ID,
		Content:  "to be deleted",
		PostType: models.PostTypeFeed,
	}
	require.NoError(suite.T(), suite.db.Create(&post).Error)

	other := &models.User{
		Email:       "intruder@test.com",
		Username:    "intruder",
		DisplayName: "Intruder",
	}
	require.NoError(suite.T(), suite.db.Create(other).Error)
	suite.mockAuth.UsersByToken["intruder-token"] = other

	w := suite.request("DELETE", "/api/v1/posts/"+post.ID, nil, "intruder-token")
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request("DELETE", "/api/v1/posts/"+post.ID, nil, "valid-token")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&count)
	assert.Zero(suite.T(), count, "soft-deleted posts disappear from default queries")
}

func TestPostTestSuite(t *testing.T) {
	suite.Run(t, new(PostTestSuite))
}
