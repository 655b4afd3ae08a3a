package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindelo-dev/registo-api/internal/models"
)

const enrollmentColumns = `id, student_id, subject_id, academic_year_id, joined_at, left_at, status`

// EnrollmentRepository persists student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create inserts an enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, subject_id, academic_year_id, joined_at, left_at, status)
        VALUES (:id, :student_id, :subject_id, :academic_year_id, :joined_at, :left_at, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ListActive returns the active enrollments of a subject/year.
func (r *EnrollmentRepository) ListActive(ctx context.Context, subjectID, academicYearID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE subject_id = $1 AND academic_year_id = $2 AND status = 'ACTIVE' ORDER BY joined_at`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, subjectID, academicYearID); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns a student's enrollments for one academic year.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID, academicYearID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE student_id = $1 AND academic_year_id = $2 ORDER BY joined_at`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, academicYearID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateStatus transitions an enrollment, stamping the departure time for
// terminal statuses.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	var leftAt *time.Time
	if status != models.EnrollmentStatusActive {
		now := time.Now().UTC()
		leftAt = &now
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE enrollments SET status = $2, left_at = $3 WHERE id = $1`, id, status, leftAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}
