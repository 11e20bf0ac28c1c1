package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/errors"
	"github.com/uniroom/backend/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response body
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response. Every failure
// path in a handler funnels through here exactly once, so the status/body
// mapping lives in one place.
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.Int("status", apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
		)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Error:   apiErr.Message,
		Code:    string(apiErr.Code),
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondError maps any error to an HTTP response. *errors.APIError keeps its
// category; everything else is reported as an internal error with the
// underlying message surfaced.
func RespondError(c *gin.Context, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		RespondWithAPIError(c, apiErr)
		return
	}
	RespondWithAPIError(c, errors.InternalError(err.Error()))
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondForbidden sends a 403 Forbidden response
func RespondForbidden(c *gin.Context, message ...string) {
	msg := "forbidden"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Forbidden(msg))
}

// RespondInternalError sends a 500 Internal Server Error response
func RespondInternalError(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.InternalError(message))
}

// RespondValidationError sends a 400 response naming the offending field
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
