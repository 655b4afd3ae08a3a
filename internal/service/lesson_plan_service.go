package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

type lessonPlanRepository interface {
	FindByID(ctx context.Context, id string) (*models.LessonPlan, error)
	List(ctx context.Context, filter models.LessonPlanFilter) ([]models.LessonPlan, error)
	Create(ctx context.Context, plan *models.LessonPlan) error
	UpdateState(ctx context.Context, id string, state models.PlanState) error
	SetLocked(ctx context.Context, id string, locked bool) error
}

type planTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CreateLessonPlanRequest describes the payload for creating a plan.
type CreateLessonPlanRequest struct {
	TeacherID      string  `json:"teacher_id" validate:"required"`
	SubjectID      string  `json:"subject_id" validate:"required"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	ClassID        *string `json:"class_id"`
}

// LessonPlanService drives the plan approval workflow:
// DRAFT → IN_REVIEW → APPROVED → CLOSED. Closing happens implicitly when the
// owning year closes; approved-and-unlocked is the only state that permits
// lessons, attendance and assessments underneath.
type LessonPlanService struct {
	plans     lessonPlanRepository
	teachers  planTeacherReader
	gate      *PermissionGate
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonPlanService constructs the service.
func NewLessonPlanService(plans lessonPlanRepository, teachers planTeacherReader, gate *PermissionGate, validate *validator.Validate, logger *zap.Logger) *LessonPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonPlanService{plans: plans, teachers: teachers, gate: gate, validator: validate, logger: logger}
}

// Get returns a plan after a read-permission check.
func (s *LessonPlanService) Get(ctx context.Context, actor models.ActorContext, id string) (*models.LessonPlan, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanRead(ctx, actor, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// List returns plans scoped to the actor's institution.
func (s *LessonPlanService) List(ctx context.Context, actor models.ActorContext, filter models.LessonPlanFilter) ([]models.LessonPlan, error) {
	filter.InstitutionID = actor.InstitutionID
	plans, err := s.plans.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lesson plans")
	}
	return plans, nil
}

// Create registers a new plan in DRAFT for a teacher/subject/year.
func (s *LessonPlanService) Create(ctx context.Context, actor models.ActorContext, req CreateLessonPlanRequest) (*models.LessonPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson plan payload")
	}
	if !actor.Role.StaffEditor() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not create lesson plans", actor.Role))
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.InstitutionID != actor.InstitutionID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher belongs to another institution")
	}

	plan := &models.LessonPlan{
		InstitutionID:  actor.InstitutionID,
		TeacherID:      teacher.ID,
		SubjectID:      req.SubjectID,
		AcademicYearID: req.AcademicYearID,
		ClassID:        req.ClassID,
		State:          models.PlanDraft,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson plan")
	}
	return plan, nil
}

// Submit advances a plan into IN_REVIEW. Resubmitting a plan already under
// review is permitted; approved or closed plans reject the transition.
func (s *LessonPlanService) Submit(ctx context.Context, actor models.ActorContext, id string) (*models.LessonPlan, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanMutation(ctx, actor, ActionPlanSubmit, plan); err != nil {
		return nil, err
	}
	switch plan.State {
	case models.PlanDraft, models.PlanInReview:
		// allowed
	default:
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("plan is %s and cannot be submitted", plan.State))
	}
	if err := s.plans.UpdateState(ctx, plan.ID, models.PlanInReview); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit plan")
	}
	plan.State = models.PlanInReview
	s.logger.Info("lesson plan submitted", zap.String("plan_id", plan.ID), zap.String("actor", actor.UserID))
	return plan, nil
}

// Approve advances a plan from IN_REVIEW to APPROVED. Admin tier only.
func (s *LessonPlanService) Approve(ctx context.Context, actor models.ActorContext, id string) (*models.LessonPlan, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanApproval(actor, plan); err != nil {
		return nil, err
	}
	if plan.State != models.PlanInReview {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("plan is %s and cannot be approved", plan.State))
	}
	if err := s.plans.UpdateState(ctx, plan.ID, models.PlanApproved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve plan")
	}
	plan.State = models.PlanApproved
	s.logger.Info("lesson plan approved", zap.String("plan_id", plan.ID), zap.String("actor", actor.UserID))
	return plan, nil
}

// SetLocked toggles the administrative lock. The lock is independent of the
// workflow state: a locked approved plan stays approved but is not active.
func (s *LessonPlanService) SetLocked(ctx context.Context, actor models.ActorContext, id string, locked bool) (*models.LessonPlan, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanApproval(actor, plan); err != nil {
		return nil, err
	}
	if err := s.plans.SetLocked(ctx, plan.ID, locked); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update plan lock")
	}
	plan.Locked = locked
	return plan, nil
}

func (s *LessonPlanService) loadPlan(ctx context.Context, id string) (*models.LessonPlan, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "plan id required")
	}
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
	}
	return plan, nil
}
