package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

const closureColumns = `id, institution_id, year, period_token, status, closed_by, closed_at, reopened_by, reopened_at, justification, created_at, updated_at`

// ClosureReads is the prerequisite read surface handed to the validation
// callback inside the closing transaction, so completeness checks observe
// the same snapshot the compare-and-swap commits against.
type ClosureReads interface {
	ListPlans(ctx context.Context, filter models.LessonPlanFilter) ([]models.LessonPlan, error)
	DeliveryProgress(ctx context.Context, lessonPlanID string, periodNumber int) ([]models.LessonDeliveryProgress, error)
	AttendanceGaps(ctx context.Context, lessonPlanID string, periodNumber int) ([]models.DeliveredLessonAttendanceGap, error)
	ListOpenAssessments(ctx context.Context, lessonPlanID string, periodNumber *int) ([]models.Assessment, error)
	ListPeriods(ctx context.Context, academicYearID string) ([]models.Period, error)
}

// ClosureValidation runs inside the closing transaction, after it opens and
// before the compare-and-swap. A non-nil error rolls the close back untouched.
type ClosureValidation func(ctx context.Context, reads ClosureReads) error

type closureTxReads struct {
	tx *sqlx.Tx
}

func (r closureTxReads) ListPlans(ctx context.Context, filter models.LessonPlanFilter) ([]models.LessonPlan, error) {
	return listLessonPlans(ctx, r.tx, filter)
}

func (r closureTxReads) DeliveryProgress(ctx context.Context, lessonPlanID string, periodNumber int) ([]models.LessonDeliveryProgress, error) {
	return deliveryProgress(ctx, r.tx, lessonPlanID, periodNumber)
}

func (r closureTxReads) AttendanceGaps(ctx context.Context, lessonPlanID string, periodNumber int) ([]models.DeliveredLessonAttendanceGap, error) {
	return attendanceGaps(ctx, r.tx, lessonPlanID, periodNumber)
}

func (r closureTxReads) ListOpenAssessments(ctx context.Context, lessonPlanID string, periodNumber *int) ([]models.Assessment, error) {
	return listOpenAssessments(ctx, r.tx, lessonPlanID, periodNumber)
}

func (r closureTxReads) ListPeriods(ctx context.Context, academicYearID string) ([]models.Period, error) {
	return listPeriods(ctx, r.tx, academicYearID)
}

// ClosureRepository persists closure records. The unique key
// (institution_id, year, period_token) doubles as the concurrency guard:
// every terminal transition is a compare-and-swap on status inside one
// transaction with its validation and cascade.
type ClosureRepository struct {
	db *sqlx.DB
}

// NewClosureRepository constructs repository.
func NewClosureRepository(db *sqlx.DB) *ClosureRepository {
	return &ClosureRepository{db: db}
}

// FindByKey returns the record for one period of an institution year.
func (r *ClosureRepository) FindByKey(ctx context.Context, institutionID string, year int, token models.PeriodToken) (*models.ClosureRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM closure_records WHERE institution_id = $1 AND year = $2 AND period_token = $3`, closureColumns)
	var record models.ClosureRecord
	if err := r.db.GetContext(ctx, &record, query, institutionID, year, token); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByInstitutionYear returns all closure records of one institution year.
func (r *ClosureRepository) ListByInstitutionYear(ctx context.Context, institutionID string, year int) ([]models.ClosureRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM closure_records WHERE institution_id = $1 AND year = $2 ORDER BY period_token`, closureColumns)
	var records []models.ClosureRecord
	if err := r.db.SelectContext(ctx, &records, query, institutionID, year); err != nil {
		return nil, fmt.Errorf("list closure records: %w", err)
	}
	return records, nil
}

// UpsertClosing moves the record to CLOSING unless it is already CLOSED.
func (r *ClosureRepository) UpsertClosing(ctx context.Context, record *models.ClosureRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Status = models.ClosureClosing
	const query = `INSERT INTO closure_records (id, institution_id, year, period_token, status, created_at, updated_at)
        VALUES (:id, :institution_id, :year, :period_token, :status, NOW(), NOW())
        ON CONFLICT (institution_id, year, period_token)
        DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
        WHERE closure_records.status <> 'CLOSED'`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert closing record: %w", err)
	}
	return nil
}

// CloseAtomic runs validate, the close compare-and-swap and its cascade in
// one transaction. Validation reads go through the transaction, so a write
// that lands after them also lands after the close commits or aborts it. A
// lost race (someone closed the record first) surfaces as a conflict.
func (r *ClosureRepository) CloseAtomic(ctx context.Context, params models.ClosureCloseParams, validate ClosureValidation) (*models.ClosureRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin close: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if validate != nil {
		if err := validate(ctx, closureTxReads{tx: tx}); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	const cas = `INSERT INTO closure_records (id, institution_id, year, period_token, status, closed_by, closed_at, justification, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 'CLOSED', $5, $6, $7, $6, $6)
        ON CONFLICT (institution_id, year, period_token)
        DO UPDATE SET status = 'CLOSED', closed_by = EXCLUDED.closed_by, closed_at = EXCLUDED.closed_at,
            justification = EXCLUDED.justification, reopened_by = NULL, reopened_at = NULL, updated_at = EXCLUDED.updated_at
        WHERE closure_records.status <> 'CLOSED'`
	res, err := tx.ExecContext(ctx, cas, uuid.NewString(), params.InstitutionID, params.Year, params.PeriodToken, params.ActorUserID, now, params.Justification)
	if err != nil {
		return nil, fmt.Errorf("close record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("close record result: %w", err)
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("period %s of year %d is already closed", params.PeriodToken, params.Year))
	}

	if params.CloseAllPeriods {
		if _, err := tx.ExecContext(ctx,
			`UPDATE periods SET status = 'CLOSED', updated_at = $2 WHERE academic_year_id = $1`,
			params.AcademicYearID, now); err != nil {
			return nil, fmt.Errorf("cascade close periods: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE periods SET status = 'CLOSED', updated_at = $3 WHERE academic_year_id = $1 AND number = $2`,
			params.AcademicYearID, params.PeriodNumber, now); err != nil {
			return nil, fmt.Errorf("cascade close period: %w", err)
		}
	}

	if params.ClosePlans {
		if _, err := tx.ExecContext(ctx,
			`UPDATE lesson_plans SET state = 'CLOSED', updated_at = $2 WHERE academic_year_id = $1 AND state = 'APPROVED'`,
			params.AcademicYearID, now); err != nil {
			return nil, fmt.Errorf("cascade close plans: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE academic_years SET status = 'CLOSED', updated_at = $2 WHERE id = $1`,
			params.AcademicYearID, now); err != nil {
			return nil, fmt.Errorf("close academic year: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit close: %w", err)
	}
	return r.FindByKey(ctx, params.InstitutionID, params.Year, params.PeriodToken)
}

// ReopenAtomic reverts a CLOSED record to REOPENED and reactivates the
// covered periods. Plans stay CLOSED; reopening a year does not silently
// reopen every plan under it.
func (r *ClosureRepository) ReopenAtomic(ctx context.Context, params models.ClosureReopenParams) (*models.ClosureRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reopen: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const cas = `UPDATE closure_records
        SET status = 'REOPENED', reopened_by = $4, reopened_at = $5, justification = $6,
            closed_by = NULL, closed_at = NULL, updated_at = $5
        WHERE institution_id = $1 AND year = $2 AND period_token = $3 AND status = 'CLOSED'`
	res, err := tx.ExecContext(ctx, cas, params.InstitutionID, params.Year, params.PeriodToken, params.ActorUserID, now, params.Justification)
	if err != nil {
		return nil, fmt.Errorf("reopen record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reopen record result: %w", err)
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("period %s of year %d is not closed", params.PeriodToken, params.Year))
	}

	if params.ReopenAll {
		if _, err := tx.ExecContext(ctx,
			`UPDATE periods SET status = 'ACTIVE', updated_at = $2 WHERE academic_year_id = $1`,
			params.AcademicYearID, now); err != nil {
			return nil, fmt.Errorf("cascade reopen periods: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE academic_years SET status = 'ACTIVE', updated_at = $2 WHERE id = $1`,
			params.AcademicYearID, now); err != nil {
			return nil, fmt.Errorf("reopen academic year: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE periods SET status = 'ACTIVE', updated_at = $3 WHERE academic_year_id = $1 AND number = $2`,
			params.AcademicYearID, params.PeriodNumber, now); err != nil {
			return nil, fmt.Errorf("cascade reopen period: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reopen: %w", err)
	}
	return r.FindByKey(ctx, params.InstitutionID, params.Year, params.PeriodToken)
}
