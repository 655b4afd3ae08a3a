package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/service"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// LessonHandler exposes planned lessons, deliveries and attendance.
type LessonHandler struct {
	lessons *service.LessonService
}

// NewLessonHandler constructs LessonHandler.
func NewLessonHandler(lessons *service.LessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

// CreatePlanned godoc
// @Summary Declare a planned lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body service.CreatePlannedLessonRequest true "Planned lesson payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /lessons/planned [post]
func (h *LessonHandler) CreatePlanned(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CreatePlannedLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.lessons.CreatePlanned(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// ListPlanned godoc
// @Summary List planned lessons of a plan
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson plan ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/{id}/lessons [get]
func (h *LessonHandler) ListPlanned(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	lessons, err := h.lessons.ListPlanned(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Deliver godoc
// @Summary Record a delivery of a planned lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body service.DeliverLessonRequest true "Delivery payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /lessons/delivered [post]
func (h *LessonHandler) Deliver(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.DeliverLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	delivered, err := h.lessons.Deliver(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, delivered)
}

// RecordAttendance godoc
// @Summary Register attendance for a delivered lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Security BearerAuth
// @Success 204
// @Router /lessons/attendance [put]
func (h *LessonHandler) RecordAttendance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.lessons.RecordAttendance(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAttendance godoc
// @Summary List attendance of a delivered lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Delivered lesson ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lessons/delivered/{id}/attendance [get]
func (h *LessonHandler) ListAttendance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	records, err := h.lessons.ListAttendance(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
