package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/database"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/metrics"
	"github.com/uniroom/backend/internal/models"
	"github.com/uniroom/backend/internal/moderation"
	"github.com/uniroom/backend/internal/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateComment creates a new comment on a post after the text has passed
// every moderation stage. Nothing is written on rejection.
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	postID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content     string  `json:"content" binding:"required,min=1,max=2000"`
		ParentID    *string `json:"parent_id,omitempty"`
		IsAnonymous bool    `json:"is_anonymous,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	// Verify the post exists
	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	// If replying to a comment, verify the parent exists and belongs to the same post
	if req.ParentID != nil && *req.ParentID != "" {
		var parentComment models.Comment
		if err := database.DB.First(&parentComment, "id = ? AND post_id = ?", *req.ParentID, postID).Error; err != nil {
			util.RespondValidationError(c, "parent_id", "Parent comment not found")
			return
		}
		// Only allow 1 level of nesting - if parent has a parent, use the parent's parent
		if parentComment.ParentID != nil {
			req.ParentID = parentComment.ParentID
		}
	}

	content, err := h.pipeline.Review(c.Request.Context(), moderation.Submission{
		Kind: moderation.KindComment,
		Text: req.Content,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}

	comment := models.Comment{
		PostID:      postID,
		UserID:      userID,
		Content:     content,
		ParentID:    req.ParentID,
		IsAnonymous: req.IsAnonymous,
	}

	if req.IsAnonymous {
		ordinal, err := resolveAnonOrdinal(postID, userID)
		if err != nil {
			logger.ErrorWithFields("Failed to assign anonymous ordinal", err)
			util.RespondInternalError(c, "Failed to create comment")
			return
		}
		comment.AnonOrdinal = ordinal
	}

	if err := database.DB.Create(&comment).Error; err != nil {
		logger.ErrorWithFields("Failed to create comment", err)
		util.RespondInternalError(c, "Failed to create comment")
		return
	}

	if err := database.DB.Model(&post).UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
		logger.WarnWithFields("Failed to increment comment count for post "+postID, err)
	}

	metrics.Get().CommentsCreated.WithLabelValues(strconv.FormatBool(req.IsAnonymous)).Inc()

	// Load the user for response
	if err := database.DB.Preload("User").First(&comment, "id = ?", comment.ID).Error; err != nil {
		logger.WarnWithFields("Failed to load comment with user for post "+postID, err)
	}

	c.JSON(http.StatusOK, sanitizeComment(&comment, userID))
}

// resolveAnonOrdinal returns the caller's stable anonymous number for a post.
// The first anonymous comment on a post claims the next counter value; every
// later one reuses the same number. The counter bump is a single atomic
// statement and the alias table's unique index settles concurrent claims, so
// two racing first comments by different users always get distinct numbers
// and two racing first comments by the same user converge on one.
func resolveAnonOrdinal(postID, userID string) (int, error) {
	var alias models.AnonymousAlias
	err := database.DB.First(&alias, "post_id = ? AND user_id = ?", postID, userID).Error
	if err == nil {
		return alias.Ordinal, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var ordinal int
	err = database.DB.Raw(
		"UPDATE posts SET anon_counter = anon_counter + 1 WHERE id = ? RETURNING anon_counter",
		postID,
	).Scan(&ordinal).Error
	if err != nil {
		return 0, err
	}

	alias = models.AnonymousAlias{
		PostID:  postID,
		UserID:  userID,
		Ordinal: ordinal,
	}
	result := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&alias)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race: another request claimed this (post, user) pair
		// first. Its number wins; the counter value we burned stays unused.
		var existing models.AnonymousAlias
		if err := database.DB.First(&existing, "post_id = ? AND user_id = ?", postID, userID).Error; err != nil {
			return 0, err
		}
		return existing.Ordinal, nil
	}
	return ordinal, nil
}

// GetComments lists a post's comments oldest-first with one level of replies
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	postID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	limit, offset := paginationParams(c)

	var comments []models.Comment
	err := database.DB.
		Preload("User").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		logger.ErrorWithFields("Failed to list comments for post "+postID, err)
		util.RespondInternalError(c, "Failed to load comments")
		return
	}

	out := make([]gin.H, 0, len(comments))
	for i := range comments {
		entry := sanitizeComment(&comments[i], userID)

		var replies []models.Comment
		err := database.DB.
			Preload("User").
			Where("parent_id = ?", comments[i].ID).
			Order("created_at ASC").
			Find(&replies).Error
		if err != nil {
			logger.WarnWithFields("Failed to load replies for comment "+comments[i].ID, err)
		} else if len(replies) > 0 {
			replyList := make([]gin.H, 0, len(replies))
			for j := range replies {
				replyList = append(replyList, sanitizeComment(&replies[j], userID))
			}
			entry["replies"] = replyList
		}

		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": out,
		"limit":    limit,
		"offset":   offset,
	})
}

// DeleteComment soft-deletes a comment, keeping its place in the thread.
// Only the author or an admin may delete.
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	if comment.UserID != user.ID && !user.IsAdmin {
		util.RespondForbidden(c, "you can only delete your own comments")
		return
	}

	if err := database.DB.Model(&comment).UpdateColumn("is_deleted", true).Error; err != nil {
		logger.ErrorWithFields("Failed to delete comment "+comment.ID, err)
		util.RespondInternalError(c, "Failed to delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
