package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/database"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/metrics"
	"github.com/uniroom/backend/internal/models"
	"github.com/uniroom/backend/internal/moderation"
	"github.com/uniroom/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatePostRequest is the body for post creation. Content and image are both
// optional but at least one must be present.
type CreatePostRequest struct {
	Content            string   `json:"content" binding:"max=10000"`
	ImageKey           string   `json:"image_key,omitempty"`
	PostType           string   `json:"post_type" binding:"required"`
	Category           string   `json:"category,omitempty"`
	Location           string   `json:"location,omitempty"`
	IsAnonymous        bool     `json:"is_anonymous,omitempty"`
	RepostedFromPostID *string  `json:"reposted_from_post_id,omitempty"`
	PollOptions        []string `json:"poll_options,omitempty"`
	PollExpiresAt      *string  `json:"poll_expires_at,omitempty"`
	PollAllowMultiple  bool     `json:"poll_allow_multiple,omitempty"`
}

var validPostTypes = map[models.PostType]bool{
	models.PostTypeFeed:       true,
	models.PostTypeLostFound:  true,
	models.PostTypeConfession: true,
	models.PostTypeEvent:      true,
}

// CreatePost creates a new post after running every moderation stage.
// Nothing is written until the content has passed all of them.
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	postType := models.PostType(req.PostType)
	if !validPostTypes[postType] {
		util.RespondValidationError(c, "post_type", "must be one of: feed, lostfound, confession, event")
		return
	}

	if strings.TrimSpace(req.Content) == "" && req.ImageKey == "" && req.RepostedFromPostID == nil {
		util.RespondValidationError(c, "content", "post must have text, an image, or a repost source")
		return
	}

	if req.RepostedFromPostID != nil && *req.RepostedFromPostID != "" {
		var source models.Post
		if err := database.DB.First(&source, "id = ?", *req.RepostedFromPostID).Error; err != nil {
			util.RespondValidationError(c, "reposted_from_post_id", "source post not found")
			return
		}
	}

	content, err := h.pipeline.Review(c.Request.Context(), moderation.Submission{
		Kind:     moderation.KindPost,
		Text:     req.Content,
		ImageKey: req.ImageKey,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}

	post := models.Post{
		UserID:             userID,
		Content:            content,
		ImageKey:           req.ImageKey,
		PostType:           postType,
		Category:           req.Category,
		Location:           req.Location,
		IsAnonymous:        req.IsAnonymous,
		RepostedFromPostID: req.RepostedFromPostID,
	}

	if err := database.DB.Create(&post).Error; err != nil {
		logger.ErrorWithFields("Failed to create post", err)
		util.RespondInternalError(c, "Failed to create post")
		return
	}

	metrics.Get().PostsCreated.WithLabelValues(string(postType)).Inc()

	// Poll creation is best-effort: the post already exists and a poll
	// failure must not take it down with it
	h.attachPoll(c, &post, &req)

	if err := database.DB.Preload("User").First(&post, "id = ?", post.ID).Error; err != nil {
		logger.WarnWithFields("Failed to reload post "+post.ID, err)
	}

	resp := sanitizePost(&post, userID)
	var poll models.Poll
	if err := database.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&poll, "post_id = ?", post.ID).Error; err == nil {
		resp["poll"] = poll
	}

	c.JSON(http.StatusOK, resp)
}

// attachPoll creates the optional poll for a new post. Failures are recorded
// in failed_writes and logged, never surfaced to the client.
func (h *Handlers) attachPoll(c *gin.Context, post *models.Post, req *CreatePostRequest) {
	if len(req.PollOptions) == 0 {
		return
	}

	options := util.NormalizePollOptions(req.PollOptions)
	if len(options) < 2 {
		logger.Log.Warn("Skipping poll with fewer than 2 distinct options",
			logger.WithPostID(post.ID),
			zap.Int("raw_options", len(req.PollOptions)),
		)
		return
	}

	poll := models.Poll{
		PostID:        post.ID,
		AllowMultiple: req.PollAllowMultiple,
	}
	if req.PollExpiresAt != nil && *req.PollExpiresAt != "" {
		if expiresAt, err := time.Parse(time.RFC3339, *req.PollExpiresAt); err == nil {
			poll.ExpiresAt = &expiresAt
		} else {
			logger.Log.Warn("Ignoring unparseable poll expiry",
				logger.WithPostID(post.ID),
				zap.String("poll_expires_at", *req.PollExpiresAt),
			)
		}
	}
	for i, text := range options {
		poll.Options = append(poll.Options, models.PollOption{
			Text:     text,
			Position: i,
		})
	}

	if err := database.DB.Create(&poll).Error; err != nil {
		h.recordFailedWrite(c, "poll", post.ID, err)
	}
}

// recordFailedWrite persists a swallowed secondary-write failure so it can be
// reconciled later. If even that insert fails, the log line is all we have.
func (h *Handlers) recordFailedWrite(c *gin.Context, kind, parentID string, cause error) {
	logger.ErrorWithFields("Secondary write failed for "+kind+" on "+parentID, cause)
	metrics.Get().FailedWrites.WithLabelValues(kind).Inc()

	failed := models.FailedWrite{
		Kind:     kind,
		ParentID: parentID,
		Detail:   cause.Error(),
	}
	if err := database.DB.WithContext(c.Request.Context()).Create(&failed).Error; err != nil {
		logger.ErrorWithFields("Failed to record failed write", err)
	}
}

// GetPosts lists posts newest-first, optionally filtered by type and category
// GET /api/v1/posts
func (h *Handlers) GetPosts(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	limit, offset := paginationParams(c)

	query := database.DB.Model(&models.Post{}).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)

	if postType := c.Query("type"); postType != "" {
		if !validPostTypes[models.PostType(postType)] {
			util.RespondValidationError(c, "type", "unknown post type")
			return
		}
		query = query.Where("post_type = ?", postType)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		logger.ErrorWithFields("Failed to list posts", err)
		util.RespondInternalError(c, "Failed to load posts")
		return
	}

	out := make([]gin.H, 0, len(posts))
	for i := range posts {
		out = append(out, sanitizePost(&posts[i], userID))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":  out,
		"limit":  limit,
		"offset": offset,
	})
}

// GetPost returns a single post with its poll
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	err := database.DB.Preload("User").First(&post, "id = ?", c.Param("id")).Error
	if err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	resp := sanitizePost(&post, userID)
	var poll models.Poll
	if err := database.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&poll, "post_id = ?", post.ID).Error; err == nil {
		resp["poll"] = poll
	}

	c.JSON(http.StatusOK, resp)
}

// GetPoll returns the poll attached to a post
// GET /api/v1/posts/:id/poll
func (h *Handlers) GetPoll(c *gin.Context) {
	if _, ok := util.GetUserIDFromContext(c); !ok {
		return
	}

	var poll models.Poll
	err := database.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&poll, "post_id = ?", c.Param("id")).Error
	if err != nil {
		util.RespondNotFound(c, "poll")
		return
	}

	c.JSON(http.StatusOK, poll)
}

// DeletePost removes a post. Only the author or an admin may delete.
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	if post.UserID != user.ID && !user.IsAdmin {
		util.RespondForbidden(c, "you can only delete your own posts")
		return
	}

	if err := database.DB.Delete(&post).Error; err != nil {
		logger.ErrorWithFields("Failed to delete post "+post.ID, err)
		util.RespondInternalError(c, "Failed to delete post")
		return
	}

	logger.Log.Info("Post deleted",
		logger.WithPostID(post.ID),
		logger.WithUserID(user.ID),
	)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// paginationParams reads limit/offset query params with sane bounds
func paginationParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
