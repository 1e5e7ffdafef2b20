package handler

import (
	"net/http"

	upvote "anoa.com/campusfix/internal/modules/upvote/service"
	"anoa.com/campusfix/pkg/response"
	"github.com/gin-gonic/gin"
)

type UpvoteHandler struct {
	service upvote.UpvoteService
}

func NewUpvoteHandler(service upvote.UpvoteService) *UpvoteHandler {
	return &UpvoteHandler{service: service}
}

func (h *UpvoteHandler) ToggleUpvote(c *gin.Context) {
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

	res, err := h.service.ToggleUpvote(c.Request.Context(), issueID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
