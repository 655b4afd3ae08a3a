package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type assessmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	ListByPlan(ctx context.Context, lessonPlanID string) ([]models.Assessment, error)
	Create(ctx context.Context, assessment *models.Assessment) error
	SetClosed(ctx context.Context, id string, closed bool) error
	UpsertGrade(ctx context.Context, grade *models.Grade) error
	ListGrades(ctx context.Context, assessmentID string) ([]models.Grade, error)
	TeacherAuthoredExists(ctx context.Context, lessonPlanID, kind string) (bool, error)
}

type assessmentPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.LessonPlan, error)
}

type assessmentInstitutionReader interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
}

type assessmentAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// reportCardInvalidator drops cached report cards after a grade changes.
type reportCardInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// CreateAssessmentRequest describes a new evaluation instrument.
type CreateAssessmentRequest struct {
	LessonPlanID string                `json:"lesson_plan_id" validate:"required"`
	Kind         models.AssessmentKind `json:"kind" validate:"required"`
	Name         string                `json:"name" validate:"required"`
	PeriodNumber *int                  `json:"period_number"`
	Weight       float64               `json:"weight" validate:"gte=0,lte=1"`
	Date         time.Time             `json:"date" validate:"required"`
}

// EnterGradeRequest sets or corrects one student's score. A nil value
// clears a previously entered score.
type EnterGradeRequest struct {
	AssessmentID string   `json:"assessment_id" validate:"required"`
	StudentID    string   `json:"student_id" validate:"required"`
	Value        *float64 `json:"value"`
}

// AssessmentService manages assessments and their grades. Scores live on
// the 0-20 scale; a closed assessment freezes its grades permanently.
type AssessmentService struct {
	assessments  assessmentRepository
	plans        assessmentPlanReader
	institutions assessmentInstitutionReader
	audits       assessmentAuditWriter
	cache        reportCardInvalidator
	gate         *PermissionGate
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAssessmentService constructs the service. cache may be nil when
// report-card caching is disabled.
func NewAssessmentService(assessments assessmentRepository, plans assessmentPlanReader, institutions assessmentInstitutionReader, audits assessmentAuditWriter, cache reportCardInvalidator, gate *PermissionGate, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		assessments:  assessments,
		plans:        plans,
		institutions: institutions,
		audits:       audits,
		cache:        cache,
		gate:         gate,
		validator:    validate,
		logger:       logger,
	}
}

// Create registers a new assessment under an active plan.
func (s *AssessmentService) Create(ctx context.Context, actor models.ActorContext, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid assessment kind %q", req.Kind))
	}
	plan, err := s.loadPlan(ctx, req.LessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPeriodNumber(ctx, plan.InstitutionID, req.Kind, req.PeriodNumber); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionAssessmentEdit, plan, authoredAssessment); err != nil {
		return nil, err
	}

	assessment := &models.Assessment{
		LessonPlanID: plan.ID,
		Kind:         req.Kind,
		Name:         req.Name,
		PeriodNumber: req.PeriodNumber,
		Weight:       req.Weight,
		Date:         req.Date,
	}
	if author := s.authorIdentity(ctx, actor); author != nil {
		assessment.AuthorTeacherID = author
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	s.logger.Info("assessment created",
		zap.String("lesson_plan_id", plan.ID),
		zap.String("assessment_id", assessment.ID),
		zap.String("kind", string(assessment.Kind)))
	return assessment, nil
}

// List returns the assessments of a plan the actor may read.
func (s *AssessmentService) List(ctx context.Context, actor models.ActorContext, lessonPlanID string) ([]models.Assessment, error) {
	plan, err := s.loadPlan(ctx, lessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanRead(ctx, actor, plan); err != nil {
		return nil, err
	}
	assessments, err := s.assessments.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, nil
}

// EnterGrade sets or corrects a score. Closed assessments reject any change.
func (s *AssessmentService) EnterGrade(ctx context.Context, actor models.ActorContext, req EnterGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.Value != nil && (*req.Value < 0 || *req.Value > 20) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score %.2f is outside the 0-20 scale", *req.Value))
	}
	assessment, err := s.loadAssessment(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.Closed {
		return nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("assessment %q is closed; its grades are frozen", assessment.Name))
	}
	plan, err := s.loadPlan(ctx, assessment.LessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionGradeEntry, plan, authoredGrade); err != nil {
		return nil, err
	}

	grade := &models.Grade{
		AssessmentID: assessment.ID,
		StudentID:    req.StudentID,
		Value:        req.Value,
	}
	if author := s.authorIdentity(ctx, actor); author != nil {
		grade.AuthorTeacherID = author
	}
	if err := s.assessments.UpsertGrade(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	s.invalidateReportCards(ctx, plan.ID, req.StudentID)
	s.logger.Info("grade recorded",
		zap.String("assessment_id", assessment.ID),
		zap.String("student_id", req.StudentID))
	return grade, nil
}

// ListGrades returns the grades of an assessment the actor may read.
func (s *AssessmentService) ListGrades(ctx context.Context, actor models.ActorContext, assessmentID string) ([]models.Grade, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, assessment.LessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanRead(ctx, actor, plan); err != nil {
		return nil, err
	}
	grades, err := s.assessments.ListGrades(ctx, assessment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Close freezes an assessment and audits the decision. Closing is
// idempotent: a second call on a closed assessment is a no-op.
func (s *AssessmentService) Close(ctx context.Context, actor models.ActorContext, assessmentID string) (*models.Assessment, error) {
	assessment, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, assessment.LessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionGradeClose, plan, authoredAssessment); err != nil {
		return nil, err
	}
	if assessment.Closed {
		return assessment, nil
	}
	if err := s.assessments.SetClosed(ctx, assessment.ID, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close assessment")
	}
	assessment.Closed = true
	s.writeAudit(ctx, actor, assessment)
	return assessment, nil
}

func (s *AssessmentService) writeAudit(ctx context.Context, actor models.ActorContext, assessment *models.Assessment) {
	if s.audits == nil {
		return
	}
	payload, _ := json.Marshal(assessment)
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionAssessmentEnd,
		Resource:   "assessment",
		ResourceID: &assessment.ID,
		NewValues:  payload,
	}
	if err := s.audits.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("assessment_id", assessment.ID),
			zap.Error(err))
	}
}

func (s *AssessmentService) invalidateReportCards(ctx context.Context, planID, studentID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("reportcard:%s:%s:*", planID, studentID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("report card cache invalidation failed",
			zap.String("pattern", pattern),
			zap.Error(err))
	}
}

func (s *AssessmentService) authorize(ctx context.Context, actor models.ActorContext, action Action, plan *models.LessonPlan, kind string) error {
	teacherAuthored := false
	if actor.Role.StaffEditor() {
		exists, err := s.assessments.TeacherAuthoredExists(ctx, plan.ID, kind)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check record authorship")
		}
		teacherAuthored = exists
	}
	return s.gate.AuthorizePlanScoped(ctx, actor, action, plan, teacherAuthored)
}

func (s *AssessmentService) authorIdentity(ctx context.Context, actor models.ActorContext) *string {
	if actor.Role != models.RoleTeacher {
		return nil
	}
	id, err := s.gate.ResolveOwnerIdentity(ctx, actor)
	if err != nil {
		return nil
	}
	return &id
}

// checkPeriodNumber requires a period for period-scoped kinds and a
// calendar-compatible number when one is given. Retakes and final exams
// are year-scoped and carry no period.
func (s *AssessmentService) checkPeriodNumber(ctx context.Context, institutionID string, kind models.AssessmentKind, periodNumber *int) error {
	yearScoped := kind == models.AssessmentRetake || kind == models.AssessmentFinalExam
	if periodNumber == nil {
		if yearScoped {
			return nil
		}
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assessment kind %s requires a period number", kind))
	}
	if yearScoped {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assessment kind %s is year-scoped and takes no period number", kind))
	}
	if *periodNumber < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "period number must be positive")
	}
	institution, err := s.institutions.FindByID(ctx, institutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	if limit := institution.CalendarType.PeriodsPerYear(); *periodNumber > limit {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period number %d exceeds the %d periods of a %s calendar", *periodNumber, limit, institution.CalendarType))
	}
	return nil
}

func (s *AssessmentService) loadPlan(ctx context.Context, id string) (*models.LessonPlan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
	}
	return plan, nil
}

func (s *AssessmentService) loadAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.assessments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	return assessment, nil
}
