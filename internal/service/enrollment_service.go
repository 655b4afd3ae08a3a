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

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListActive(ctx context.Context, subjectID, academicYearID string) ([]models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID, academicYearID string) ([]models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollStudentRequest registers a student on a subject for one year.
type EnrollStudentRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	SubjectID      string `json:"subject_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
}

// EnrollmentService manages subject enrollments. The active enrollment set
// is what attendance completeness is measured against at period closure.
type EnrollmentService struct {
	enrollments enrollmentRepository
	students    enrollmentStudentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepository, students enrollmentStudentReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{enrollments: enrollments, students: students, validator: validate, logger: logger}
}

// Enroll creates an ACTIVE enrollment for an existing student.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.ActorContext, req EnrollStudentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !actor.Role.StaffEditor() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not manage enrollments", actor.Role))
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.InstitutionID != actor.InstitutionID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another institution")
	}

	enrollment := &models.Enrollment{
		StudentID:      student.ID,
		SubjectID:      req.SubjectID,
		AcademicYearID: req.AcademicYearID,
		Status:         models.EnrollmentStatusActive,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("subject_id", req.SubjectID),
		zap.String("academic_year_id", req.AcademicYearID))
	return enrollment, nil
}

// ListActive returns the active roster of a subject/year.
func (s *EnrollmentService) ListActive(ctx context.Context, subjectID, academicYearID string) ([]models.Enrollment, error) {
	if subjectID == "" || academicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject and academic year required")
	}
	enrollments, err := s.enrollments.ListActive(ctx, subjectID, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListByStudent returns one student's enrollments for a year.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID, academicYearID string) ([]models.Enrollment, error) {
	if studentID == "" || academicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student and academic year required")
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// UpdateStatus transitions an enrollment out of (or back into) the active
// roster. Attendance gaps are evaluated against ACTIVE rows only.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, actor models.ActorContext, id string, status models.EnrollmentStatus) error {
	if !actor.Role.StaffEditor() {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not manage enrollments", actor.Role))
	}
	switch status {
	case models.EnrollmentStatusActive, models.EnrollmentStatusTransferred, models.EnrollmentStatusLeft:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid enrollment status %q", status))
	}
	if err := s.enrollments.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	return nil
}
