package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/request-portal-api/internal/service"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
	"github.com/campusdesk/request-portal-api/pkg/response"
)

// CommentHandler exposes the per-request discussion thread.
type CommentHandler struct {
	service *service.CommentService
}

// NewCommentHandler creates a new handler.
func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

// Add godoc
// @Summary Add a comment
// @Description Append a comment to a request's thread and notify the other party
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body object{content=string} true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/comments [post]
func (h *CommentHandler) Add(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "content required"))
		return
	}

	comment, err := h.service.Add(c.Request.Context(), actor, c.Param("id"), payload.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// List godoc
// @Summary List comments
// @Description List a request's thread oldest first
// @Tags Comments
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	comments, err := h.service.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, comments, nil)
}
