package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/auth"
	apperrors "github.com/uniroom/backend/internal/errors"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/util"
	"go.uber.org/zap"
)

// Register creates a new account with email/password
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			util.RespondWithAPIError(c, apperrors.Conflict("email"))
		case errors.Is(err, auth.ErrUsernameExists):
			util.RespondWithAPIError(c, apperrors.Conflict("username"))
		default:
			logger.ErrorWithFields("Registration failed", err)
			util.RespondInternalError(c, "Failed to register")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Login authenticates with email/password
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidCredentials):
			// Same response for both so login probing can't enumerate accounts
			util.RespondUnauthorized(c, "invalid email or password")
		case errors.Is(err, auth.ErrUserBanned):
			util.RespondForbidden(c, "account is banned")
		default:
			logger.ErrorWithFields("Login failed", err)
			util.RespondInternalError(c, "Failed to login")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user's profile
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AuthMiddleware validates the bearer token and loads the caller's identity
// into the request context. A missing header is rejected before any token
// validation work happens.
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			util.RespondUnauthorized(c, "no token provided")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			util.RespondUnauthorized(c, "no token provided")
			return
		}

		user, err := h.auth.ValidateToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrUserBanned) {
				util.RespondForbidden(c, "account is banned")
				return
			}
			logger.Log.Debug("Token validation failed",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			util.RespondUnauthorized(c, "invalid token")
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. It must run after AuthMiddleware.
func (h *Handlers) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			return
		}
		if !user.IsAdmin {
			util.RespondForbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}
