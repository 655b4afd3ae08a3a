package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindelo-dev/registo-api/internal/models"
)

const assessmentColumns = `id, lesson_plan_id, kind, name, period_number, weight, closed, author_teacher_id, date, created_at, updated_at`

// AssessmentRepository persists assessments and grades.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// FindByID returns one assessment.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE id = $1`, assessmentColumns)
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListByPlan returns a plan's assessments in date order.
func (r *AssessmentRepository) ListByPlan(ctx context.Context, lessonPlanID string) ([]models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE lesson_plan_id = $1 ORDER BY date, created_at`, assessmentColumns)
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, lessonPlanID); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// ListOpen returns the plan's assessments that are not yet closed, optionally
// restricted to one period. Year-scoped assessments (nil period) only count
// against whole-year closure.
func (r *AssessmentRepository) ListOpen(ctx context.Context, lessonPlanID string, periodNumber *int) ([]models.Assessment, error) {
	return listOpenAssessments(ctx, r.db, lessonPlanID, periodNumber)
}

func listOpenAssessments(ctx context.Context, q sqlx.QueryerContext, lessonPlanID string, periodNumber *int) ([]models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE lesson_plan_id = $1 AND closed = FALSE`, assessmentColumns)
	args := []interface{}{lessonPlanID}
	if periodNumber != nil {
		query += ` AND period_number = $2`
		args = append(args, *periodNumber)
	}
	query += ` ORDER BY date`
	var assessments []models.Assessment
	if err := sqlx.SelectContext(ctx, q, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list open assessments: %w", err)
	}
	return assessments, nil
}

// Create inserts an assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assessment.CreatedAt = now
	assessment.UpdatedAt = now
	const query = `INSERT INTO assessments (id, lesson_plan_id, kind, name, period_number, weight, closed, author_teacher_id, date, created_at, updated_at)
        VALUES (:id, :lesson_plan_id, :kind, :name, :period_number, :weight, :closed, :author_teacher_id, :date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// SetClosed toggles the frozen flag.
func (r *AssessmentRepository) SetClosed(ctx context.Context, id string, closed bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE assessments SET closed = $2, updated_at = NOW() WHERE id = $1`, id, closed); err != nil {
		return fmt.Errorf("set assessment closed: %w", err)
	}
	return nil
}

// UpsertGrade writes one student's score, replacing a previous entry.
func (r *AssessmentRepository) UpsertGrade(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, assessment_id, student_id, value, author_teacher_id, created_at, updated_at)
        VALUES (:id, :assessment_id, :student_id, :value, :author_teacher_id, :created_at, :updated_at)
        ON CONFLICT (assessment_id, student_id)
        DO UPDATE SET value = EXCLUDED.value, author_teacher_id = EXCLUDED.author_teacher_id, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// ListGrades returns an assessment's grades.
func (r *AssessmentRepository) ListGrades(ctx context.Context, assessmentID string) ([]models.Grade, error) {
	const query = `SELECT id, assessment_id, student_id, value, author_teacher_id, created_at, updated_at
        FROM grades WHERE assessment_id = $1 ORDER BY student_id`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// TeacherAuthoredExists reports whether a teacher has authored an assessment
// or a grade under the plan.
func (r *AssessmentRepository) TeacherAuthoredExists(ctx context.Context, lessonPlanID, kind string) (bool, error) {
	var query string
	switch kind {
	case "assessment":
		query = `SELECT EXISTS (SELECT 1 FROM assessments WHERE lesson_plan_id = $1 AND author_teacher_id IS NOT NULL)`
	case "grade":
		query = `SELECT EXISTS (SELECT 1 FROM grades g
            JOIN assessments a ON a.id = g.assessment_id
            WHERE a.lesson_plan_id = $1 AND g.author_teacher_id IS NOT NULL)`
	default:
		return false, fmt.Errorf("unknown authored kind %q", kind)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, lessonPlanID); err != nil {
		return false, fmt.Errorf("check teacher authorship: %w", err)
	}
	return exists, nil
}

// ScoresForStudent returns the raw computation input: every entered score of
// one student under one plan, joined with assessment metadata.
func (r *AssessmentRepository) ScoresForStudent(ctx context.Context, lessonPlanID, studentID string) ([]models.ScoreRecord, error) {
	const query = `SELECT a.id AS assessment_id, a.kind, a.name, a.period_number, a.date, g.value
        FROM assessments a
        JOIN grades g ON g.assessment_id = a.id
        WHERE a.lesson_plan_id = $1 AND g.student_id = $2
        ORDER BY a.date, a.created_at`
	var scores []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &scores, query, lessonPlanID, studentID); err != nil {
		return nil, fmt.Errorf("scores for student: %w", err)
	}
	return scores, nil
}
