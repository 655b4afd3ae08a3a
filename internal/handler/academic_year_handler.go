package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindelo-dev/registo-api/internal/service"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
	"github.com/mindelo-dev/registo-api/pkg/response"
)

// AcademicYearHandler exposes academic years and their periods.
type AcademicYearHandler struct {
	years *service.AcademicYearService
}

// NewAcademicYearHandler constructs AcademicYearHandler.
func NewAcademicYearHandler(years *service.AcademicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{years: years}
}

// Create godoc
// @Summary Open a new academic year with its calendar periods
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param payload body service.CreateAcademicYearRequest true "Year payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CreateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Get godoc
// @Summary Get one academic year by calendar year
// @Tags AcademicYears
// @Produce json
// @Param year path int true "Calendar year"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /academic-years/{year} [get]
func (h *AcademicYearHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	record, err := h.years.Get(c.Request.Context(), actor, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List academic years of the institution
// @Tags AcademicYears
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	years, err := h.years.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// ListPeriods godoc
// @Summary List the periods of an academic year
// @Tags AcademicYears
// @Produce json
// @Param year path int true "Calendar year"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /academic-years/{year}/periods [get]
func (h *AcademicYearHandler) ListPeriods(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	record, err := h.years.Get(c.Request.Context(), actor, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	periods, err := h.years.ListPeriods(c.Request.Context(), actor, record.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}
