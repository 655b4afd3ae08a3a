package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/middleware"
	"github.com/mindelo-dev/registo-api/internal/models"
	"github.com/mindelo-dev/registo-api/internal/service"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// GradeHandler exposes computed report cards and previews.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// ReportCard godoc
// @Summary Compute one student's report card for a lesson plan
// @Tags Grades
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Param studentId path string true "Student ID"
// @Param period query int false "Restrict to one trimester"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id}/students/{studentId}/report-card [get]
func (h *GradeHandler) ReportCard(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var periodNumber *int
	if raw := c.Query("period"); raw != "" {
		period, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period must be a number"))
			return
		}
		periodNumber = &period
	}
	card, err := h.grades.ReportCard(c.Request.Context(), actor, c.Param("studentId"), c.Param("id"), periodNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, card.FromCache)
	response.JSON(c, http.StatusOK, card, nil, middleware.ExtractMeta(c))
}

type previewRequest struct {
	Scores []models.ScoreRecord          `json:"scores"`
	Config models.GradeComputationConfig `json:"config"`
}

// Preview godoc
// @Summary Simulate a grade computation from ad-hoc scores
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body previewRequest true "Scores and configuration"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /grades/preview [post]
func (h *GradeHandler) Preview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.grades.Preview(c.Request.Context(), actor, req.Scores, req.Config)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
