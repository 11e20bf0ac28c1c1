package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/util"
)

// maxImageUploadBytes bounds image uploads to 10MB
const maxImageUploadBytes = 10 << 20

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadImage stores an image and returns its object key. The key is what
// post creation accepts; moderation happens there, not here, so an uploaded
// image that never gets attached to a post is just an orphan object.
// POST /api/v1/upload/image
func (h *Handlers) UploadImage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if h.uploader == nil {
		util.RespondInternalError(c, "Image uploads are not available")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		util.RespondValidationError(c, "image", "image file is required")
		return
	}

	if fileHeader.Size > maxImageUploadBytes {
		util.RespondValidationError(c, "image", "image must be 10MB or smaller")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageExtensions[ext] {
		util.RespondValidationError(c, "image", "unsupported image format")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.RespondInternalError(c, "Failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUploadBytes+1))
	if err != nil {
		util.RespondInternalError(c, "Failed to read upload")
		return
	}
	if len(data) > maxImageUploadBytes {
		util.RespondValidationError(c, "image", "image must be 10MB or smaller")
		return
	}

	result, err := h.uploader.UploadImage(c.Request.Context(), data, userID, fileHeader.Filename)
	if err != nil {
		logger.ErrorWithFields("Image upload failed", err)
		util.RespondInternalError(c, "Failed to upload image")
		return
	}

	c.JSON(http.StatusOK, result)
}
