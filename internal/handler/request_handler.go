package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/request-portal-api/internal/service"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
	"github.com/campusdesk/request-portal-api/pkg/response"
)

// RequestHandler exposes the request lifecycle endpoints.
type RequestHandler struct {
	requests    *service.RequestService
	attachments *service.AttachmentService
	exports     *service.ExportService
}

// NewRequestHandler creates a new handler.
func NewRequestHandler(requests *service.RequestService, attachments *service.AttachmentService, exports *service.ExportService) *RequestHandler {
	return &RequestHandler{requests: requests, attachments: attachments, exports: exports}
}

// Create godoc
// @Summary Submit a request
// @Description Submit a new request, optionally with a file attachment (multipart form)
// @Tags Requests
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param payload body service.CreateRequestInput true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	input, err := h.bindCreateInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	request, err := h.requests.Create(c.Request.Context(), actor, input)
	if err != nil {
		// A rejected submission must not leave its upload behind.
		if input.AttachmentRef != nil {
			h.attachments.Remove(*input.AttachmentRef)
		}
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

func (h *RequestHandler) bindCreateInput(c *gin.Context) (service.CreateRequestInput, error) {
	var input service.CreateRequestInput

	if c.ContentType() != "multipart/form-data" {
		if err := c.ShouldBindJSON(&input); err != nil {
			return input, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload")
		}
		return input, nil
	}

	input.Type = c.PostForm("request_type")
	input.Subject = c.PostForm("subject")
	input.Description = c.PostForm("description")
	input.DepartmentID = c.PostForm("department_id")
	if lecturer := c.PostForm("assigned_lecturer_id"); lecturer != "" {
		input.AssignedLecturerID = &lecturer
	}

	fileHeader, err := c.FormFile("attachment")
	if err == http.ErrMissingFile {
		return input, nil
	}
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attachment upload")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read attachment")
	}
	defer file.Close() //nolint:errcheck

	ref, err := h.attachments.Store(fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		return input, err
	}
	input.AttachmentRef = &ref
	return input, nil
}

// List godoc
// @Summary List visible requests
// @Description List requests in the caller's visible set, newest first
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param request_type query string false "Filter by type"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	input := service.ListRequestsInput{
		Status: c.Query("status"),
		Type:   c.Query("request_type"),
	}
	input.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	input.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	requests, pagination, err := h.requests.List(c.Request.Context(), actor, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get a request
// @Description Fetch a single request visible to the caller
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.requests.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// UpdateStatus godoc
// @Summary Transition request status
// @Description Apply a status change with optional bundled feedback (staff only)
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body object{status=string,feedback=string} true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/status [patch]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Status   string `json:"status" binding:"required"`
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}

	request, err := h.requests.Transition(c.Request.Context(), actor, c.Param("id"), payload.Status, payload.Feedback)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// Assign godoc
// @Summary Assign a lecturer
// @Description Route a request to a lecturer within its department (admin only)
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body object{lecturer_id=string} true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/assign [patch]
func (h *RequestHandler) Assign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		LecturerID string `json:"lecturer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "lecturer_id required"))
		return
	}

	request, err := h.requests.Assign(c.Request.Context(), actor, c.Param("id"), payload.LecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// AttachmentURL godoc
// @Summary Get attachment download link
// @Description Issue a time-limited signed download token for the request's attachment
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/attachment [get]
func (h *RequestHandler) AttachmentURL(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token, expiresAt, err := h.attachments.SignedURL(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"url":        fmt.Sprintf("/api/v1/attachments/download?token=%s", token),
		"expires_at": expiresAt,
	}, nil)
}

// DownloadAttachment godoc
// @Summary Download an attachment
// @Description Stream an attachment referenced by a valid signed token
// @Tags Requests
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attachments/download [get]
func (h *RequestHandler) DownloadAttachment(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}

	file, err := h.attachments.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.File(file.Name())
}

// Export godoc
// @Summary Export department requests
// @Description Render the admin's department requests as CSV or PDF
// @Tags Requests
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.exports.Render(c.Request.Context(), actor, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=requests.%s", format))
	c.Data(http.StatusOK, contentType, data)
}
