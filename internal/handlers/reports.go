package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/database"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/models"
	"github.com/uniroom/backend/internal/util"
)

var validReportReasons = map[models.ReportReason]bool{
	models.ReportReasonSpam:          true,
	models.ReportReasonHarassment:    true,
	models.ReportReasonInappropriate: true,
	models.ReportReasonViolence:      true,
	models.ReportReasonOther:         true,
}

var validReportStatuses = map[models.ReportStatus]bool{
	models.ReportStatusPending:   true,
	models.ReportStatusReviewing: true,
	models.ReportStatusResolved:  true,
	models.ReportStatusDismissed: true,
}

type reportRequest struct {
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description" binding:"max=2000"`
}

// ReportPost files a report against a post for manual review
// POST /api/v1/posts/:id/report
func (h *Handlers) ReportPost(c *gin.Context) {
	reporterID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	h.createReport(c, reporterID, models.ReportTargetPost, post.ID, post.UserID)
}

// ReportComment files a report against a comment for manual review
// POST /api/v1/comments/:id/report
func (h *Handlers) ReportComment(c *gin.Context) {
	reporterID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	h.createReport(c, reporterID, models.ReportTargetComment, comment.ID, comment.UserID)
}

func (h *Handlers) createReport(c *gin.Context, reporterID string, targetType models.ReportTargetType, targetID, targetUserID string) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	reason := models.ReportReason(req.Reason)
	if !validReportReasons[reason] {
		util.RespondValidationError(c, "reason", "must be one of: spam, harassment, inappropriate, violence, other")
		return
	}

	report := models.Report{
		ReporterID:   reporterID,
		TargetType:   targetType,
		TargetID:     targetID,
		TargetUserID: &targetUserID,
		Reason:       reason,
		Description:  req.Description,
		Status:       models.ReportStatusPending,
	}

	if err := database.DB.Create(&report).Error; err != nil {
		logger.ErrorWithFields("Failed to create report", err)
		util.RespondInternalError(c, "Failed to submit report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListReports lists reports for admin review, newest-first
// GET /api/v1/admin/reports
func (h *Handlers) ListReports(c *gin.Context) {
	limit, offset := paginationParams(c)

	query := database.DB.Model(&models.Report{}).
		Preload("Reporter").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)

	if status := c.Query("status"); status != "" {
		if !validReportStatuses[models.ReportStatus(status)] {
			util.RespondValidationError(c, "status", "unknown report status")
			return
		}
		query = query.Where("status = ?", status)
	}

	var reports []models.Report
	if err := query.Find(&reports).Error; err != nil {
		logger.ErrorWithFields("Failed to list reports", err)
		util.RespondInternalError(c, "Failed to load reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"limit":   limit,
		"offset":  offset,
	})
}

// UpdateReport records an admin's decision on a report
// PUT /api/v1/admin/reports/:id
func (h *Handlers) UpdateReport(c *gin.Context) {
	moderator, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var report models.Report
	if err := database.DB.First(&report, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "report")
		return
	}

	var req struct {
		Status      string `json:"status" binding:"required"`
		ActionTaken string `json:"action_taken" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	status := models.ReportStatus(req.Status)
	if !validReportStatuses[status] {
		util.RespondValidationError(c, "status", "unknown report status")
		return
	}

	report.Status = status
	report.ActionTaken = req.ActionTaken
	report.ModeratorID = &moderator.ID

	if err := database.DB.Save(&report).Error; err != nil {
		logger.ErrorWithFields("Failed to update report "+report.ID, err)
		util.RespondInternalError(c, "Failed to update report")
		return
	}

	logger.Log.Info("Report reviewed",
		logger.WithUserID(moderator.ID),
	)
	c.JSON(http.StatusOK, report)
}
