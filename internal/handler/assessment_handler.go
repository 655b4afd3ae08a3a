package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/service"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// AssessmentHandler exposes assessments and grade entry.
type AssessmentHandler struct {
	assessments *service.AssessmentService
}

// NewAssessmentHandler constructs AssessmentHandler.
func NewAssessmentHandler(assessments *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

// Create godoc
// @Summary Create an assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssessmentRequest true "Assessment payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.assessments.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// List godoc
// @Summary List assessments of a plan
// @Tags Assessments
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id}/assessments [get]
func (h *AssessmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assessments, err := h.assessments.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, nil)
}

// EnterGrade godoc
// @Summary Enter or correct one student's score
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body service.EnterGradeRequest true "Grade payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assessments/grades [put]
func (h *AssessmentHandler) EnterGrade(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.EnterGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.assessments.EnterGrade(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ListGrades godoc
// @Summary List the grades of an assessment
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/grades [get]
func (h *AssessmentHandler) ListGrades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	grades, err := h.assessments.ListGrades(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Close godoc
// @Summary Close an assessment, freezing its grades
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/close [post]
func (h *AssessmentHandler) Close(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assessment, err := h.assessments.Close(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}
