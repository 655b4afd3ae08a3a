package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/service"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// ClosureHandler exposes the period closure state machine.
type ClosureHandler struct {
	closures *service.ClosureService
}

// NewClosureHandler constructs ClosureHandler.
func NewClosureHandler(closures *service.ClosureService) *ClosureHandler {
	return &ClosureHandler{closures: closures}
}

// List godoc
// @Summary List closure records of a year
// @Tags Closures
// @Produce json
// @Param year query int true "Calendar year"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /closures [get]
func (h *ClosureHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	records, err := h.closures.List(c.Request.Context(), actor, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Begin godoc
// @Summary Mark a period as CLOSING
// @Tags Closures
// @Accept json
// @Produce json
// @Param payload body service.BeginClosureRequest true "Closure target"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /closures/begin [post]
func (h *ClosureHandler) Begin(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.BeginClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.closures.Begin(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Close godoc
// @Summary Close a period or the whole year
// @Tags Closures
// @Accept json
// @Produce json
// @Param payload body service.CloseRequest true "Closure target"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope "Unmet prerequisites, all listed in error details"
// @Router /closures/close [post]
func (h *ClosureHandler) Close(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.closures.Close(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Reopen godoc
// @Summary Reopen a closed period with a justification
// @Tags Closures
// @Accept json
// @Produce json
// @Param payload body service.ReopenRequest true "Reopen target"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /closures/reopen [post]
func (h *ClosureHandler) Reopen(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.ReopenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.closures.Reopen(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
