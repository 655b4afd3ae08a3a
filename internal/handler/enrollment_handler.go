package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/models"
	"github.com/mindelo-dev/registo-api/internal/service"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Create godoc
// @Summary Enroll a student on a subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollStudentRequest true "Enrollment payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List godoc
// @Summary List enrollments by subject or by student
// @Tags Enrollments
// @Produce json
// @Param subjectId query string false "Subject ID"
// @Param studentId query string false "Student ID"
// @Param academicYearId query string true "Academic year ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	academicYearID := c.Query("academicYearId")
	if studentID := c.Query("studentId"); studentID != "" {
		enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), studentID, academicYearID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, enrollments, nil)
		return
	}
	enrollments, err := h.enrollments.ListActive(c.Request.Context(), c.Query("subjectId"), academicYearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

type updateEnrollmentStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus godoc
// @Summary Transition an enrollment's status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body updateEnrollmentStatusRequest true "Status payload"
// @Security BearerAuth
// @Success 204
// @Router /enrollments/{id}/status [put]
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req updateEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status := models.EnrollmentStatus(strings.ToUpper(req.Status))
	if err := h.enrollments.UpdateStatus(c.Request.Context(), actor, c.Param("id"), status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
