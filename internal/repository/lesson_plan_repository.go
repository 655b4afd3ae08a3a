package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindelo-dev/registo-api/internal/models"
)

const lessonPlanColumns = `id, institution_id, teacher_id, subject_id, academic_year_id, class_id, state, locked, created_at, updated_at`

// LessonPlanRepository persists lesson plans.
type LessonPlanRepository struct {
	db *sqlx.DB
}

// NewLessonPlanRepository constructs repository.
func NewLessonPlanRepository(db *sqlx.DB) *LessonPlanRepository {
	return &LessonPlanRepository{db: db}
}

// FindByID returns one plan.
func (r *LessonPlanRepository) FindByID(ctx context.Context, id string) (*models.LessonPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_plans WHERE id = $1`, lessonPlanColumns)
	var plan models.LessonPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// List returns plans matching the filter, newest first.
func (r *LessonPlanRepository) List(ctx context.Context, filter models.LessonPlanFilter) ([]models.LessonPlan, error) {
	return listLessonPlans(ctx, r.db, filter)
}

func listLessonPlans(ctx context.Context, q sqlx.QueryerContext, filter models.LessonPlanFilter) ([]models.LessonPlan, error) {
	conditions := []string{"institution_id = $1"}
	args := []interface{}{filter.InstitutionID}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.State != "" {
		args = append(args, filter.State)
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM lesson_plans WHERE %s ORDER BY created_at DESC`, lessonPlanColumns, strings.Join(conditions, " AND "))
	var plans []models.LessonPlan
	if err := sqlx.SelectContext(ctx, q, &plans, query, args...); err != nil {
		return nil, fmt.Errorf("list lesson plans: %w", err)
	}
	return plans, nil
}

// Create inserts a new plan in DRAFT.
func (r *LessonPlanRepository) Create(ctx context.Context, plan *models.LessonPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	const query = `INSERT INTO lesson_plans (id, institution_id, teacher_id, subject_id, academic_year_id, class_id, state, locked, created_at, updated_at)
        VALUES (:id, :institution_id, :teacher_id, :subject_id, :academic_year_id, :class_id, :state, :locked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create lesson plan: %w", err)
	}
	return nil
}

// UpdateState moves the plan to a new workflow state.
func (r *LessonPlanRepository) UpdateState(ctx context.Context, id string, state models.PlanState) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE lesson_plans SET state = $2, updated_at = NOW() WHERE id = $1`, id, state); err != nil {
		return fmt.Errorf("update lesson plan state: %w", err)
	}
	return nil
}

// SetLocked toggles the administrative hold.
func (r *LessonPlanRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE lesson_plans SET locked = $2, updated_at = NOW() WHERE id = $1`, id, locked); err != nil {
		return fmt.Errorf("set lesson plan locked: %w", err)
	}
	return nil
}
