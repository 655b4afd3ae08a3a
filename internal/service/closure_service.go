package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	"github.com/mindelo-dev/registo-api/internal/repository"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type closureRepository interface {
	FindByKey(ctx context.Context, institutionID string, year int, token models.PeriodToken) (*models.ClosureRecord, error)
	ListByInstitutionYear(ctx context.Context, institutionID string, year int) ([]models.ClosureRecord, error)
	UpsertClosing(ctx context.Context, record *models.ClosureRecord) error
	CloseAtomic(ctx context.Context, params models.ClosureCloseParams, validate repository.ClosureValidation) (*models.ClosureRecord, error)
	ReopenAtomic(ctx context.Context, params models.ClosureReopenParams) (*models.ClosureRecord, error)
}

type closureYearReader interface {
	FindByInstitutionAndYear(ctx context.Context, institutionID string, year int) (*models.AcademicYear, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// BeginClosureRequest marks a period as CLOSING.
type BeginClosureRequest struct {
	Year        int    `json:"year" validate:"required"`
	PeriodToken string `json:"period_token" validate:"required"`
}

// CloseRequest attempts to close a period or the whole year.
type CloseRequest struct {
	Year          int     `json:"year" validate:"required"`
	PeriodToken   string  `json:"period_token" validate:"required"`
	Justification *string `json:"justification"`
}

// ReopenRequest reverts a closed period. Justification is mandatory.
type ReopenRequest struct {
	Year          int    `json:"year" validate:"required"`
	PeriodToken   string `json:"period_token" validate:"required"`
	Justification string `json:"justification" validate:"required"`
}

// ClosureService drives the period closure state machine:
// OPEN → CLOSING → CLOSED → REOPENED, with REOPENED able to close again.
// Closing validates completeness prerequisites exhaustively and cascades the
// new status onto the matching Period rows; validation, compare-and-swap and
// cascade all run in the repository's single closing transaction.
type ClosureService struct {
	closures     closureRepository
	years        closureYearReader
	institutions institutionReader
	audit        auditWriter
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewClosureService constructs the service.
func NewClosureService(closures closureRepository, years closureYearReader, institutions institutionReader, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ClosureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosureService{
		closures:     closures,
		years:        years,
		institutions: institutions,
		audit:        audit,
		validator:    validate,
		logger:       logger,
	}
}

// List returns the closure records of an institution year.
func (s *ClosureService) List(ctx context.Context, actor models.ActorContext, year int) ([]models.ClosureRecord, error) {
	if year <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year required")
	}
	records, err := s.closures.ListByInstitutionYear(ctx, actor.InstitutionID, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list closure records")
	}
	return records, nil
}

// Begin upserts the closure record to CLOSING. Safe to call repeatedly; an
// already CLOSED record is left untouched and returned as-is.
func (s *ClosureService) Begin(ctx context.Context, actor models.ActorContext, req BeginClosureRequest) (*models.ClosureRecord, error) {
	token, _, err := s.guardRequest(ctx, actor, req.Year, req.PeriodToken)
	if err != nil {
		return nil, err
	}

	record, err := s.closures.FindByKey(ctx, actor.InstitutionID, req.Year, token)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load closure record")
	}
	if record != nil && record.Status == models.ClosureClosed {
		return record, nil
	}

	if record == nil {
		record = &models.ClosureRecord{
			InstitutionID: actor.InstitutionID,
			Year:          req.Year,
			PeriodToken:   token,
		}
	}
	record.Status = models.ClosureClosing
	if err := s.closures.UpsertClosing(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert closure record")
	}
	return record, nil
}

// Close atomically checks every prerequisite, marks the record CLOSED and
// cascades the status onto the matching periods (and, for the YEAR token,
// onto every period and plan of the year), all in one transaction. All
// violations are collected and returned together; nothing changes on failure.
func (s *ClosureService) Close(ctx context.Context, actor models.ActorContext, req CloseRequest) (*models.ClosureRecord, error) {
	token, institution, err := s.guardRequest(ctx, actor, req.Year, req.PeriodToken)
	if err != nil {
		return nil, err
	}
	year, err := s.loadYear(ctx, actor.InstitutionID, req.Year)
	if err != nil {
		return nil, err
	}

	validate := func(ctx context.Context, reads repository.ClosureReads) error {
		var reasons []string
		var err error
		if token.IsYear() {
			reasons, err = s.yearPrerequisites(ctx, reads, institution, year)
		} else if token.Kind() == models.PeriodKindTrimester {
			reasons, err = s.trimesterPrerequisites(ctx, reads, actor.InstitutionID, year, token.Number())
		}
		// Numbered semester closure carries no deep prerequisite rule beyond
		// the calendar guard.
		if err != nil {
			return err
		}
		if len(reasons) > 0 {
			return appErrors.Prerequisites(reasons)
		}
		return nil
	}

	params := models.ClosureCloseParams{
		InstitutionID:  actor.InstitutionID,
		Year:           req.Year,
		AcademicYearID: year.ID,
		PeriodToken:    token,
		ActorUserID:    actor.UserID,
		Justification:  req.Justification,
	}
	if token.IsYear() {
		params.CloseAllPeriods = true
		params.ClosePlans = true
	} else {
		params.PeriodNumber = token.Number()
	}

	record, err := s.closures.CloseAtomic(ctx, params, validate)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close period")
	}

	s.writeAudit(ctx, actor, models.AuditActionPeriodClose, record)
	s.logger.Info("period closed",
		zap.String("institution_id", actor.InstitutionID),
		zap.Int("year", req.Year),
		zap.String("period_token", string(token)))
	return record, nil
}

// Reopen reverts a CLOSED record to REOPENED, clears the closing stamp and
// cascades the matching periods back to ACTIVE. Lesson plans stay as they
// are. The justification is recorded for audit purposes.
func (s *ClosureService) Reopen(ctx context.Context, actor models.ActorContext, req ReopenRequest) (*models.ClosureRecord, error) {
	if strings.TrimSpace(req.Justification) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reopening requires a justification")
	}
	token, _, err := s.guardRequest(ctx, actor, req.Year, req.PeriodToken)
	if err != nil {
		return nil, err
	}
	year, err := s.loadYear(ctx, actor.InstitutionID, req.Year)
	if err != nil {
		return nil, err
	}

	record, err := s.closures.ReopenAtomic(ctx, models.ClosureReopenParams{
		InstitutionID:  actor.InstitutionID,
		Year:           req.Year,
		AcademicYearID: year.ID,
		PeriodToken:    token,
		ActorUserID:    actor.UserID,
		Justification:  req.Justification,
		ReopenAll:      token.IsYear(),
		PeriodNumber:   token.Number(),
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "closure record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen period")
	}

	s.writeAudit(ctx, actor, models.AuditActionPeriodReopen, record)
	s.logger.Info("period reopened",
		zap.String("institution_id", actor.InstitutionID),
		zap.Int("year", req.Year),
		zap.String("period_token", string(token)),
		zap.String("justification", req.Justification))
	return record, nil
}

// guardRequest validates identifiers, the actor role and the calendar-type
// compatibility of the token, before any prerequisite is evaluated. The
// institution it loads for the calendar check is returned for reuse.
func (s *ClosureService) guardRequest(ctx context.Context, actor models.ActorContext, year int, rawToken string) (models.PeriodToken, *models.Institution, error) {
	if year <= 0 {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "year required")
	}
	if !actor.Role.AdminTier() {
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "closure operations require an admin-tier role")
	}
	token, err := models.ParsePeriodToken(rawToken)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	institution, err := s.institutions.FindByID(ctx, actor.InstitutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	if !token.CompatibleWith(institution.CalendarType) {
		return "", nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("period token %s does not match the %s calendar", token, institution.CalendarType))
	}
	return token, institution, nil
}

// trimesterPrerequisites collects every completeness violation for a
// numbered trimester without short-circuiting.
func (s *ClosureService) trimesterPrerequisites(ctx context.Context, reads repository.ClosureReads, institutionID string, year *models.AcademicYear, periodNumber int) ([]string, error) {
	plans, err := reads.ListPlans(ctx, models.LessonPlanFilter{InstitutionID: institutionID, AcademicYearID: year.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lesson plans")
	}

	var reasons []string
	for _, plan := range plans {
		progress, err := reads.DeliveryProgress(ctx, plan.ID, periodNumber)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson delivery progress")
		}
		for _, row := range progress {
			if row.DeliveredCount != row.Quantity {
				reasons = append(reasons, fmt.Sprintf(
					"plan %s: lesson %q has %d of %d declared deliveries in trimester %d",
					plan.ID, row.Title, row.DeliveredCount, row.Quantity, periodNumber))
			}
		}

		gaps, err := reads.AttendanceGaps(ctx, plan.ID, periodNumber)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance completeness")
		}
		for _, gap := range gaps {
			reasons = append(reasons, fmt.Sprintf(
				"plan %s: lesson %q delivered on %s has attendance for %d of %d enrolled students",
				plan.ID, gap.Title, gap.Date.Format("2006-01-02"), gap.AttendanceCount, gap.EnrolledCount))
		}

		period := periodNumber
		open, err := reads.ListOpenAssessments(ctx, plan.ID, &period)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list open assessments")
		}
		for _, assessment := range open {
			reasons = append(reasons, fmt.Sprintf(
				"plan %s: assessment %q in trimester %d is still open",
				plan.ID, assessment.Name, periodNumber))
		}
	}
	return reasons, nil
}

// yearPrerequisites validates whole-year closure: every numbered period
// already closed, every plan approved or closed, no assessment still open.
func (s *ClosureService) yearPrerequisites(ctx context.Context, reads repository.ClosureReads, institution *models.Institution, year *models.AcademicYear) ([]string, error) {
	periods, err := reads.ListPeriods(ctx, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}

	var reasons []string
	if len(periods) == 0 {
		kind := "trimesters"
		if institution.CalendarType == models.CalendarHigher {
			kind = "semesters"
		}
		reasons = append(reasons, fmt.Sprintf("no %s configured for year %d; cannot close the year", kind, year.Year))
	}
	for _, period := range periods {
		if period.Status != models.PeriodClosed {
			reasons = append(reasons, fmt.Sprintf("%s %d is not closed", strings.ToLower(string(period.Kind)), period.Number))
		}
	}

	plans, err := reads.ListPlans(ctx, models.LessonPlanFilter{InstitutionID: institution.ID, AcademicYearID: year.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lesson plans")
	}
	for _, plan := range plans {
		if plan.State != models.PlanApproved && plan.State != models.PlanClosed {
			reasons = append(reasons, fmt.Sprintf("lesson plan %s is still %s", plan.ID, plan.State))
		}
		open, err := reads.ListOpenAssessments(ctx, plan.ID, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list open assessments")
		}
		for _, assessment := range open {
			reasons = append(reasons, fmt.Sprintf("plan %s: assessment %q is still open", plan.ID, assessment.Name))
		}
	}
	return reasons, nil
}

func (s *ClosureService) loadYear(ctx context.Context, institutionID string, year int) (*models.AcademicYear, error) {
	record, err := s.years.FindByInstitutionAndYear(ctx, institutionID, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("academic year %d not found", year))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return record, nil
}

func (s *ClosureService) writeAudit(ctx context.Context, actor models.ActorContext, action string, record *models.ClosureRecord) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(record)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "closure_record",
		ResourceID: &record.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err))
	}
}
