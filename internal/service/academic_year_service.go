package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type academicYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindByInstitutionAndYear(ctx context.Context, institutionID string, year int) (*models.AcademicYear, error)
	List(ctx context.Context, institutionID string) ([]models.AcademicYear, error)
	CreateWithPeriods(ctx context.Context, year *models.AcademicYear, periods []models.Period) error
	ListPeriods(ctx context.Context, academicYearID string) ([]models.Period, error)
}

type yearInstitutionReader interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
}

// CreateAcademicYearRequest opens a new school year.
type CreateAcademicYearRequest struct {
	Year      int       `json:"year" validate:"required,min=1900"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// AcademicYearService manages school years and seeds their periods from the
// institution calendar: three trimesters for secondary, two semesters for
// higher education.
type AcademicYearService struct {
	years        academicYearRepository
	institutions yearInstitutionReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAcademicYearService constructs the service.
func NewAcademicYearService(years academicYearRepository, institutions yearInstitutionReader, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{years: years, institutions: institutions, validator: validate, logger: logger}
}

// Create opens a year and its calendar periods in one transaction.
func (s *AcademicYearService) Create(ctx context.Context, actor models.ActorContext, req CreateAcademicYearRequest) (*models.AcademicYear, error) {
	if !actor.Role.StaffEditor() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not open academic years", actor.Role))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must follow start date")
	}
	if existing, err := s.years.FindByInstitutionAndYear(ctx, actor.InstitutionID, req.Year); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("academic year %d already exists", req.Year))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing year")
	}

	institution, err := s.institutions.FindByID(ctx, actor.InstitutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}

	year := &models.AcademicYear{
		InstitutionID: actor.InstitutionID,
		Year:          req.Year,
		Status:        models.AcademicYearActive,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	}
	periods := buildPeriods(institution.CalendarType, req.StartDate, req.EndDate)

	if err := s.years.CreateWithPeriods(ctx, year, periods); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	s.logger.Info("academic year opened",
		zap.String("academic_year_id", year.ID),
		zap.Int("year", year.Year),
		zap.Int("periods", len(periods)))
	return year, nil
}

// Get returns one year by its institution-scoped year number.
func (s *AcademicYearService) Get(ctx context.Context, actor models.ActorContext, year int) (*models.AcademicYear, error) {
	record, err := s.years.FindByInstitutionAndYear(ctx, actor.InstitutionID, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("academic year %d not found", year))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return record, nil
}

// List returns the institution's years, newest first.
func (s *AcademicYearService) List(ctx context.Context, actor models.ActorContext) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx, actor.InstitutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}

// ListPeriods returns a year's periods in calendar order.
func (s *AcademicYearService) ListPeriods(ctx context.Context, actor models.ActorContext, academicYearID string) ([]models.Period, error) {
	year, err := s.years.FindByID(ctx, academicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.InstitutionID != actor.InstitutionID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "academic year belongs to another institution")
	}
	periods, err := s.years.ListPeriods(ctx, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	return periods, nil
}

// buildPeriods splits the year span evenly into the calendar's periods.
// Exact boundaries are administrative detail; the split only seeds dates
// staff can adjust later.
func buildPeriods(calendar models.CalendarType, start, end time.Time) []models.Period {
	count := calendar.PeriodsPerYear()
	kind := models.PeriodKindTrimester
	if calendar == models.CalendarHigher {
		kind = models.PeriodKindSemester
	}
	span := end.Sub(start) / time.Duration(count)
	periods := make([]models.Period, 0, count)
	for i := 0; i < count; i++ {
		periodStart := start.Add(time.Duration(i) * span)
		periodEnd := start.Add(time.Duration(i+1) * span)
		if i == count-1 {
			periodEnd = end
		}
		periods = append(periods, models.Period{
			Kind:      kind,
			Number:    i + 1,
			Status:    models.PeriodActive,
			StartDate: periodStart,
			EndDate:   periodEnd,
		})
	}
	return periods
}
