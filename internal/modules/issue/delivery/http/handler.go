package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"anoa.com/campusfix/internal/middleware"
	issueDto "anoa.com/campusfix/internal/modules/issue/dto"
	issue "anoa.com/campusfix/internal/modules/issue/service"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	commonDto "anoa.com/campusfix/pkg/dto"
	"anoa.com/campusfix/pkg/ratelimiter"
	"anoa.com/campusfix/pkg/response"
	"github.com/gin-gonic/gin"
)

const maxPhotoSize = 5 << 20

var allowedPhotoExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".heic": true,
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type IssueHandler struct {
	service issue.Service
}

func NewIssueHandler(service issue.Service) *IssueHandler {
	return &IssueHandler{service: service}
}

func (h *IssueHandler) SubmitIssue(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req issueDto.SubmitIssueRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ResponseError(c, err)
		return
	}

	var photo *commonDto.PhotoFile
	fileHeader, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Submitted without a photo.
	case err != nil:
		response.ResponseError(c, apperror.Validation("request must be a valid multipart form"))
		return
	default:
		if fileHeader.Size > maxPhotoSize {
			response.ResponseError(c, apperror.Validation("photo must be at most 5MB"))
			return
		}
		if !allowedPhotoExt[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
			response.ResponseError(c, apperror.Validation("photo must be an image"))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			response.ResponseError(c, apperror.Validation("failed to read photo"))
			return
		}
		defer file.Close()

		photo = &commonDto.PhotoFile{
			Reader:   file,
			FileName: fileHeader.Filename,
		}
	}

	created, err := h.service.SubmitIssue(c.Request.Context(), userID, req, photo)
	if err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *IssueHandler) GetFeed(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter commonDto.IssueFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ResponseError(c, err)
		return
	}
	if filter.Sort == "" {
		filter.Sort = commonDto.SortByRecency
	}

	issues, err := h.service.GetFeed(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, issues)
}

func (h *IssueHandler) GetMyIssues(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	issues, err := h.service.GetMyIssues(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, issues)
}

func (h *IssueHandler) SearchIssues(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query issueDto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ResponseError(c, err)
		return
	}

	issues, err := h.service.SearchIssues(c.Request.Context(), userID, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, issues)
}

func (h *IssueHandler) GetIssue(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	issueID, err := response.ParseUUIDParam(c, "issue_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetIssue(c.Request.Context(), userID, issueID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *IssueHandler) UpdateStatus(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	issueID, err := response.ParseUUIDParam(c, "issue_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req issueDto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.UpdateStatus(c.Request.Context(), actor, issueID, req.Status)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *IssueHandler) DeleteIssue(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	issueID, err := response.ParseUUIDParam(c, "issue_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteIssue(c.Request.Context(), actor, issueID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "issue deleted successfully"})
}

func (h *IssueHandler) HodDashboard(c *gin.Context) {
	h.dashboard(c, h.service.HodDashboard)
}

func (h *IssueHandler) PrincipalDashboard(c *gin.Context) {
	h.dashboard(c, h.service.PrincipalDashboard)
}

func (h *IssueHandler) Stats(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query issueDto.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), actor, query.DepartmentID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *IssueHandler) ExportIssues(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query issueDto.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ResponseError(c, err)
		return
	}
	if query.Sort == "" {
		query.Sort = commonDto.SortByRecency
	}

	workbook, err := h.service.ExportIssues(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileName := fmt.Sprintf("issues-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, xlsxContentType, workbook)
}

type dashboardLoader func(ctx context.Context, actor policy.Actor, query issueDto.DashboardQuery) (*commonDto.IssueListResponse, error)

func (h *IssueHandler) dashboard(c *gin.Context, load dashboardLoader) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query issueDto.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ResponseError(c, err)
		return
	}
	if query.Sort == "" {
		query.Sort = commonDto.SortByRecency
	}

	issues, err := load(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, issues)
}
