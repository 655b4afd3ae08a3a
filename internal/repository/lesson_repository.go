package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindelo-dev/registo-api/internal/models"
)

// LessonRepository persists planned lessons, deliveries and attendance, and
// answers the completeness queries period closure depends on.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindPlannedByID returns one planned lesson.
func (r *LessonRepository) FindPlannedByID(ctx context.Context, id string) (*models.PlannedLesson, error) {
	const query = `SELECT id, lesson_plan_id, title, period_number, quantity, author_teacher_id, created_at, updated_at
        FROM planned_lessons WHERE id = $1`
	var lesson models.PlannedLesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListPlannedByPlan returns a plan's planned lessons in period order.
func (r *LessonRepository) ListPlannedByPlan(ctx context.Context, lessonPlanID string) ([]models.PlannedLesson, error) {
	const query = `SELECT id, lesson_plan_id, title, period_number, quantity, author_teacher_id, created_at, updated_at
        FROM planned_lessons WHERE lesson_plan_id = $1 ORDER BY period_number, created_at`
	var lessons []models.PlannedLesson
	if err := r.db.SelectContext(ctx, &lessons, query, lessonPlanID); err != nil {
		return nil, fmt.Errorf("list planned lessons: %w", err)
	}
	return lessons, nil
}

// CreatePlanned inserts a planned lesson.
func (r *LessonRepository) CreatePlanned(ctx context.Context, lesson *models.PlannedLesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	const query = `INSERT INTO planned_lessons (id, lesson_plan_id, title, period_number, quantity, author_teacher_id, created_at, updated_at)
        VALUES (:id, :lesson_plan_id, :title, :period_number, :quantity, :author_teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create planned lesson: %w", err)
	}
	return nil
}

// FindDeliveredByID returns one delivered lesson.
func (r *LessonRepository) FindDeliveredByID(ctx context.Context, id string) (*models.DeliveredLesson, error) {
	const query = `SELECT id, planned_lesson_id, date, summary, author_teacher_id, created_at
        FROM delivered_lessons WHERE id = $1`
	var delivered models.DeliveredLesson
	if err := r.db.GetContext(ctx, &delivered, query, id); err != nil {
		return nil, err
	}
	return &delivered, nil
}

// ListDeliveredByPlanned returns the deliveries of one planned lesson.
func (r *LessonRepository) ListDeliveredByPlanned(ctx context.Context, plannedLessonID string) ([]models.DeliveredLesson, error) {
	const query = `SELECT id, planned_lesson_id, date, summary, author_teacher_id, created_at
        FROM delivered_lessons WHERE planned_lesson_id = $1 ORDER BY date`
	var delivered []models.DeliveredLesson
	if err := r.db.SelectContext(ctx, &delivered, query, plannedLessonID); err != nil {
		return nil, fmt.Errorf("list delivered lessons: %w", err)
	}
	return delivered, nil
}

// CreateDelivered inserts a delivery record.
func (r *LessonRepository) CreateDelivered(ctx context.Context, delivered *models.DeliveredLesson) error {
	if delivered.ID == "" {
		delivered.ID = uuid.NewString()
	}
	delivered.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO delivered_lessons (id, planned_lesson_id, date, summary, author_teacher_id, created_at)
        VALUES (:id, :planned_lesson_id, :date, :summary, :author_teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, delivered); err != nil {
		return fmt.Errorf("create delivered lesson: %w", err)
	}
	return nil
}

// UpsertAttendance writes attendance rows, replacing the status on conflict.
func (r *LessonRepository) UpsertAttendance(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO attendances (id, delivered_lesson_id, student_id, status, author_teacher_id, created_at, updated_at)
        VALUES (:id, :delivered_lesson_id, :student_id, :status, :author_teacher_id, :created_at, :updated_at)
        ON CONFLICT (delivered_lesson_id, student_id)
        DO UPDATE SET status = EXCLUDED.status, author_teacher_id = EXCLUDED.author_teacher_id, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}
	}
	return tx.Commit()
}

// ListAttendance returns the attendance of one delivered lesson.
func (r *LessonRepository) ListAttendance(ctx context.Context, deliveredLessonID string) ([]models.Attendance, error) {
	const query = `SELECT id, delivered_lesson_id, student_id, status, author_teacher_id, created_at, updated_at
        FROM attendances WHERE delivered_lesson_id = $1 ORDER BY student_id`
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, deliveredLessonID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// TeacherAuthoredExists reports whether a teacher has authored any entity of
// the given kind under the plan. Staff editing rights end once this is true.
func (r *LessonRepository) TeacherAuthoredExists(ctx context.Context, lessonPlanID, kind string) (bool, error) {
	var query string
	switch kind {
	case "planned_lesson":
		query = `SELECT EXISTS (SELECT 1 FROM planned_lessons WHERE lesson_plan_id = $1 AND author_teacher_id IS NOT NULL)`
	case "delivered_lesson":
		query = `SELECT EXISTS (SELECT 1 FROM delivered_lessons dl
            JOIN planned_lessons pl ON pl.id = dl.planned_lesson_id
            WHERE pl.lesson_plan_id = $1 AND dl.author_teacher_id IS NOT NULL)`
	case "attendance":
		query = `SELECT EXISTS (SELECT 1 FROM attendances a
            JOIN delivered_lessons dl ON dl.id = a.delivered_lesson_id
            JOIN planned_lessons pl ON pl.id = dl.planned_lesson_id
            WHERE pl.lesson_plan_id = $1 AND a.author_teacher_id IS NOT NULL)`
	default:
		return false, fmt.Errorf("unknown authored kind %q", kind)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, lessonPlanID); err != nil {
		return false, fmt.Errorf("check teacher authorship: %w", err)
	}
	return exists, nil
}

// DeliveryProgress returns, per planned lesson of the period, the declared
// quantity against the count of recorded deliveries.
func (r *LessonRepository) DeliveryProgress(ctx context.Context, lessonPlanID string, periodNumber int) ([]models.LessonDeliveryProgress, error) {
	return deliveryProgress(ctx, r.db, lessonPlanID, periodNumber)
}

func deliveryProgress(ctx context.Context, q sqlx.QueryerContext, lessonPlanID string, periodNumber int) ([]models.LessonDeliveryProgress, error) {
	const query = `SELECT pl.id AS planned_lesson_id, pl.title, pl.period_number, pl.quantity,
            COUNT(dl.id) AS delivered_count
        FROM planned_lessons pl
        LEFT JOIN delivered_lessons dl ON dl.planned_lesson_id = pl.id
        WHERE pl.lesson_plan_id = $1 AND pl.period_number = $2
        GROUP BY pl.id, pl.title, pl.period_number, pl.quantity
        ORDER BY pl.title`
	var progress []models.LessonDeliveryProgress
	if err := sqlx.SelectContext(ctx, q, &progress, query, lessonPlanID, periodNumber); err != nil {
		return nil, fmt.Errorf("delivery progress: %w", err)
	}
	return progress, nil
}

// AttendanceGaps returns delivered lessons of the period whose attendance
// rows fall short of the plan's active enrollment.
func (r *LessonRepository) AttendanceGaps(ctx context.Context, lessonPlanID string, periodNumber int) ([]models.DeliveredLessonAttendanceGap, error) {
	return attendanceGaps(ctx, r.db, lessonPlanID, periodNumber)
}

func attendanceGaps(ctx context.Context, q sqlx.QueryerContext, lessonPlanID string, periodNumber int) ([]models.DeliveredLessonAttendanceGap, error) {
	const query = `SELECT dl.id AS delivered_lesson_id, dl.date, pl.title,
            COUNT(a.id) AS attendance_count, ec.enrolled_count
        FROM delivered_lessons dl
        JOIN planned_lessons pl ON pl.id = dl.planned_lesson_id
        CROSS JOIN (SELECT COUNT(*) AS enrolled_count
            FROM enrollments e
            JOIN lesson_plans lp ON lp.id = $1
            WHERE e.subject_id = lp.subject_id AND e.academic_year_id = lp.academic_year_id AND e.status = 'ACTIVE') ec
        LEFT JOIN attendances a ON a.delivered_lesson_id = dl.id
        WHERE pl.lesson_plan_id = $1 AND pl.period_number = $2
        GROUP BY dl.id, dl.date, pl.title, ec.enrolled_count
        HAVING COUNT(a.id) < ec.enrolled_count
        ORDER BY dl.date`
	var gaps []models.DeliveredLessonAttendanceGap
	if err := sqlx.SelectContext(ctx, q, &gaps, query, lessonPlanID, periodNumber); err != nil {
		return nil, fmt.Errorf("attendance gaps: %w", err)
	}
	return gaps, nil
}
