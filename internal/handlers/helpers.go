package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/models"
)

// sanitizePost shapes a post for the response, hiding the author's identity
// on anonymous posts from everyone except the author themselves
func sanitizePost(post *models.Post, viewerID string) gin.H {
	out := gin.H{
		"id":            post.ID,
		"content":       post.Content,
		"image_key":     post.ImageKey,
		"post_type":     post.PostType,
		"category":      post.Category,
		"location":      post.Location,
		"is_anonymous":  post.IsAnonymous,
		"comment_count": post.CommentCount,
		"vote_score":    post.VoteScore,
		"created_at":    post.CreatedAt,
		"updated_at":    post.UpdatedAt,
	}
	if post.RepostedFromPostID != nil {
		out["reposted_from_post_id"] = *post.RepostedFromPostID
	}

	if post.IsAnonymous && post.UserID != viewerID {
		out["author_name"] = "Anonymous"
		return out
	}

	out["user_id"] = post.UserID
	if post.User.ID != "" {
		out["user"] = post.User
	}
	if post.IsAnonymous {
		// The author sees their own identity on their anonymous post
		out["is_own_anonymous"] = true
	}
	return out
}

// sanitizeComment shapes a comment for the response. Anonymous comments show
// the per-post ordinal ("Anonymous 3") instead of the author; soft-deleted
// comments keep their place in the thread but lose their content.
func sanitizeComment(comment *models.Comment, viewerID string) gin.H {
	out := gin.H{
		"id":           comment.ID,
		"post_id":      comment.PostID,
		"is_anonymous": comment.IsAnonymous,
		"like_count":   comment.LikeCount,
		"created_at":   comment.CreatedAt,
		"updated_at":   comment.UpdatedAt,
	}
	if comment.ParentID != nil {
		out["parent_id"] = *comment.ParentID
	}

	if comment.IsDeleted {
		out["is_deleted"] = true
		out["content"] = ""
		return out
	}
	out["content"] = comment.Content

	if comment.IsAnonymous {
		out["anon_ordinal"] = comment.AnonOrdinal
		out["author_name"] = fmt.Sprintf("Anonymous %d", comment.AnonOrdinal)
		if comment.UserID == viewerID {
			out["is_own_anonymous"] = true
		}
		return out
	}

	out["user_id"] = comment.UserID
	if comment.User.ID != "" {
		out["user"] = comment.User
	}
	return out
}
