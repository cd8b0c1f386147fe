package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/request-portal-api/internal/service"
	"github.com/campusdesk/request-portal-api/pkg/response"
)

// DirectoryHandler exposes the academic reference data used when submitting
// requests.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler creates a new handler.
func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// Departments godoc
// @Summary List departments
// @Tags Directory
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/departments [get]
func (h *DirectoryHandler) Departments(c *gin.Context) {
	departments, err := h.service.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Courses godoc
// @Summary List department courses
// @Tags Directory
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/departments/{id}/courses [get]
func (h *DirectoryHandler) Courses(c *gin.Context) {
	courses, err := h.service.Courses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Lecturers godoc
// @Summary List department lecturers
// @Tags Directory
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/departments/{id}/lecturers [get]
func (h *DirectoryHandler) Lecturers(c *gin.Context) {
	lecturers, err := h.service.Lecturers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturers, nil)
}
