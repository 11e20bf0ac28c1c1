package handlers

import (
	"github.com/uniroom/backend/internal/auth"
	"github.com/uniroom/backend/internal/moderation"
	"github.com/uniroom/backend/internal/storage"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth     auth.ServiceInterface
	pipeline *moderation.Pipeline
	uploader *storage.S3Storage
}

// NewHandlers creates a new handlers instance. The uploader may be nil when
// object storage is not configured; image uploads then fail with 500 while
// text-only content keeps working.
func NewHandlers(authService auth.ServiceInterface, pipeline *moderation.Pipeline, uploader *storage.S3Storage) *Handlers {
	return &Handlers{
		auth:     authService,
		pipeline: pipeline,
		uploader: uploader,
	}
}
