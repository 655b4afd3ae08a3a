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

// LessonPlanHandler exposes the lesson plan workflow endpoints.
type LessonPlanHandler struct {
	plans *service.LessonPlanService
}

// NewLessonPlanHandler constructs LessonPlanHandler.
func NewLessonPlanHandler(plans *service.LessonPlanService) *LessonPlanHandler {
	return &LessonPlanHandler{plans: plans}
}

// List godoc
// @Summary List lesson plans
// @Tags LessonPlans
// @Produce json
// @Param academicYearId query string false "Filter by academic year"
// @Param teacherId query string false "Filter by teacher"
// @Param state query string false "Filter by workflow state"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans [get]
func (h *LessonPlanHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter := models.LessonPlanFilter{
		AcademicYearID: c.Query("academicYearId"),
		TeacherID:      c.Query("teacherId"),
		State:          models.PlanState(strings.ToUpper(c.Query("state"))),
	}
	plans, err := h.plans.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Get godoc
// @Summary Get one lesson plan
// @Tags LessonPlans
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id} [get]
func (h *LessonPlanHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	plan, err := h.plans.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Create godoc
// @Summary Create a lesson plan in DRAFT
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param payload body service.CreateLessonPlanRequest true "Plan payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /lesson-plans [post]
func (h *LessonPlanHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CreateLessonPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Submit godoc
// @Summary Submit a plan for review
// @Tags LessonPlans
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id}/submit [post]
func (h *LessonPlanHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	plan, err := h.plans.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Approve godoc
// @Summary Approve a plan under review
// @Tags LessonPlans
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id}/approve [post]
func (h *LessonPlanHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	plan, err := h.plans.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

type setLockedRequest struct {
	Locked bool `json:"locked"`
}

// SetLocked godoc
// @Summary Lock or unlock a plan
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Param payload body setLockedRequest true "Lock payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id}/lock [put]
func (h *LessonPlanHandler) SetLocked(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req setLockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	plan, err := h.plans.SetLocked(c.Request.Context(), actor, c.Param("id"), req.Locked)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
