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

// Authored-entity kinds tracked for the staff first-write rule.
const (
	authoredPlannedLesson   = "planned_lesson"
	authoredDeliveredLesson = "delivered_lesson"
	authoredAttendance      = "attendance"
	authoredAssessment      = "assessment"
	authoredGrade           = "grade"
)

type lessonRepository interface {
	FindPlannedByID(ctx context.Context, id string) (*models.PlannedLesson, error)
	ListPlannedByPlan(ctx context.Context, lessonPlanID string) ([]models.PlannedLesson, error)
	CreatePlanned(ctx context.Context, lesson *models.PlannedLesson) error
	FindDeliveredByID(ctx context.Context, id string) (*models.DeliveredLesson, error)
	ListDeliveredByPlanned(ctx context.Context, plannedLessonID string) ([]models.DeliveredLesson, error)
	CreateDelivered(ctx context.Context, delivered *models.DeliveredLesson) error
	UpsertAttendance(ctx context.Context, records []models.Attendance) error
	ListAttendance(ctx context.Context, deliveredLessonID string) ([]models.Attendance, error)
	TeacherAuthoredExists(ctx context.Context, lessonPlanID, kind string) (bool, error)
}

type lessonPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.LessonPlan, error)
}

type lessonInstitutionReader interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
}

// CreatePlannedLessonRequest declares a lesson and its expected deliveries.
type CreatePlannedLessonRequest struct {
	LessonPlanID string `json:"lesson_plan_id" validate:"required"`
	Title        string `json:"title" validate:"required"`
	PeriodNumber int    `json:"period_number" validate:"required,min=1"`
	Quantity     int    `json:"quantity" validate:"required,min=1"`
}

// DeliverLessonRequest records one occurrence of a planned lesson.
type DeliverLessonRequest struct {
	PlannedLessonID string    `json:"planned_lesson_id" validate:"required"`
	Date            time.Time `json:"date" validate:"required"`
	Summary         *string   `json:"summary"`
}

// AttendanceEntry is one student's status for a delivered lesson.
type AttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
}

// RecordAttendanceRequest registers attendance in bulk for one delivery.
type RecordAttendanceRequest struct {
	DeliveredLessonID string            `json:"delivered_lesson_id" validate:"required"`
	Entries           []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// LessonService manages planned lessons, their deliveries and attendance.
// All mutations run through the permission gate and require an active plan.
type LessonService struct {
	lessons      lessonRepository
	plans        lessonPlanReader
	institutions lessonInstitutionReader
	gate         *PermissionGate
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewLessonService constructs the service.
func NewLessonService(lessons lessonRepository, plans lessonPlanReader, institutions lessonInstitutionReader, gate *PermissionGate, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{lessons: lessons, plans: plans, institutions: institutions, gate: gate, validator: validate, logger: logger}
}

// CreatePlanned adds a planned lesson under an active plan.
func (s *LessonService) CreatePlanned(ctx context.Context, actor models.ActorContext, req CreatePlannedLessonRequest) (*models.PlannedLesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	plan, err := s.loadPlan(ctx, req.LessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPeriodNumber(ctx, plan.InstitutionID, req.PeriodNumber); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionLessonLaunch, plan, authoredPlannedLesson); err != nil {
		return nil, err
	}

	lesson := &models.PlannedLesson{
		LessonPlanID: plan.ID,
		Title:        req.Title,
		PeriodNumber: req.PeriodNumber,
		Quantity:     req.Quantity,
	}
	if author := s.authorIdentity(ctx, actor); author != nil {
		lesson.AuthorTeacherID = author
	}
	if err := s.lessons.CreatePlanned(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create planned lesson")
	}
	s.logger.Info("planned lesson created",
		zap.String("lesson_plan_id", plan.ID),
		zap.String("planned_lesson_id", lesson.ID),
		zap.Int("period_number", lesson.PeriodNumber))
	return lesson, nil
}

// ListPlanned returns the planned lessons of a plan the actor may read.
func (s *LessonService) ListPlanned(ctx context.Context, actor models.ActorContext, lessonPlanID string) ([]models.PlannedLesson, error) {
	plan, err := s.loadPlan(ctx, lessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanRead(ctx, actor, plan); err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListPlannedByPlan(ctx, plan.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list planned lessons")
	}
	return lessons, nil
}

// Deliver records a delivery of a planned lesson.
func (s *LessonService) Deliver(ctx context.Context, actor models.ActorContext, req DeliverLessonRequest) (*models.DeliveredLesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	planned, err := s.loadPlannedLesson(ctx, req.PlannedLessonID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, planned.LessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionLessonLaunch, plan, authoredDeliveredLesson); err != nil {
		return nil, err
	}

	delivered := &models.DeliveredLesson{
		PlannedLessonID: planned.ID,
		Date:            req.Date,
		Summary:         req.Summary,
	}
	if author := s.authorIdentity(ctx, actor); author != nil {
		delivered.AuthorTeacherID = author
	}
	if err := s.lessons.CreateDelivered(ctx, delivered); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record lesson delivery")
	}
	s.logger.Info("lesson delivered",
		zap.String("planned_lesson_id", planned.ID),
		zap.String("delivered_lesson_id", delivered.ID),
		zap.Time("date", delivered.Date))
	return delivered, nil
}

// RecordAttendance upserts attendance rows for one delivered lesson.
func (s *LessonService) RecordAttendance(ctx context.Context, actor models.ActorContext, req RecordAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance status %q for student %s", entry.Status, entry.StudentID))
		}
	}
	delivered, err := s.loadDeliveredLesson(ctx, req.DeliveredLessonID)
	if err != nil {
		return err
	}
	planned, err := s.loadPlannedLesson(ctx, delivered.PlannedLessonID)
	if err != nil {
		return err
	}
	plan, err := s.loadPlan(ctx, planned.LessonPlanID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, ActionAttendanceEntry, plan, authoredAttendance); err != nil {
		return err
	}

	author := s.authorIdentity(ctx, actor)
	records := make([]models.Attendance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		records = append(records, models.Attendance{
			DeliveredLessonID: delivered.ID,
			StudentID:         entry.StudentID,
			Status:            entry.Status,
			AuthorTeacherID:   author,
		})
	}
	if err := s.lessons.UpsertAttendance(ctx, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.logger.Info("attendance recorded",
		zap.String("delivered_lesson_id", delivered.ID),
		zap.Int("entries", len(records)))
	return nil
}

// ListAttendance returns attendance for a delivered lesson the actor may read.
func (s *LessonService) ListAttendance(ctx context.Context, actor models.ActorContext, deliveredLessonID string) ([]models.Attendance, error) {
	delivered, err := s.loadDeliveredLesson(ctx, deliveredLessonID)
	if err != nil {
		return nil, err
	}
	planned, err := s.loadPlannedLesson(ctx, delivered.PlannedLessonID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, planned.LessonPlanID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizePlanRead(ctx, actor, plan); err != nil {
		return nil, err
	}
	records, err := s.lessons.ListAttendance(ctx, delivered.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// authorize loads the first-write flag for staff editors and delegates
// to the permission gate.
func (s *LessonService) authorize(ctx context.Context, actor models.ActorContext, action Action, plan *models.LessonPlan, kind string) error {
	teacherAuthored := false
	if actor.Role.StaffEditor() {
		exists, err := s.lessons.TeacherAuthoredExists(ctx, plan.ID, kind)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check record authorship")
		}
		teacherAuthored = exists
	}
	return s.gate.AuthorizePlanScoped(ctx, actor, action, plan, teacherAuthored)
}

// authorIdentity returns the teacher identity to stamp on authored rows,
// or nil when the actor is not acting as a teacher.
func (s *LessonService) authorIdentity(ctx context.Context, actor models.ActorContext) *string {
	if actor.Role != models.RoleTeacher {
		return nil
	}
	id, err := s.gate.ResolveOwnerIdentity(ctx, actor)
	if err != nil {
		return nil
	}
	return &id
}

func (s *LessonService) checkPeriodNumber(ctx context.Context, institutionID string, periodNumber int) error {
	institution, err := s.institutions.FindByID(ctx, institutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	if limit := institution.CalendarType.PeriodsPerYear(); periodNumber > limit {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period number %d exceeds the %d periods of a %s calendar", periodNumber, limit, institution.CalendarType))
	}
	return nil
}

func (s *LessonService) loadPlan(ctx context.Context, id string) (*models.LessonPlan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson plan")
	}
	return plan, nil
}

func (s *LessonService) loadPlannedLesson(ctx context.Context, id string) (*models.PlannedLesson, error) {
	planned, err := s.lessons.FindPlannedByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "planned lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planned lesson")
	}
	return planned, nil
}

func (s *LessonService) loadDeliveredLesson(ctx context.Context, id string) (*models.DeliveredLesson, error) {
	delivered, err := s.lessons.FindDeliveredByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "delivered lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delivered lesson")
	}
	return delivered, nil
}
