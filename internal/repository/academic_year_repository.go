package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindelo-dev/registo-api/internal/models"
)

const academicYearColumns = `id, institution_id, year, status, start_date, end_date, created_at, updated_at`
const periodColumns = `id, academic_year_id, kind, number, status, start_date, end_date, created_at, updated_at`

// AcademicYearRepository persists academic years and their periods.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// FindByID returns one year.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE id = $1`, academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindByInstitutionAndYear returns the year container for a year number.
func (r *AcademicYearRepository) FindByInstitutionAndYear(ctx context.Context, institutionID string, year int) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE institution_id = $1 AND year = $2`, academicYearColumns)
	var record models.AcademicYear
	if err := r.db.GetContext(ctx, &record, query, institutionID, year); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns an institution's years, newest first.
func (r *AcademicYearRepository) List(ctx context.Context, institutionID string) ([]models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE institution_id = $1 ORDER BY year DESC`, academicYearColumns)
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, institutionID); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// CreateWithPeriods inserts the year and its calendar periods in one
// transaction.
func (r *AcademicYearRepository) CreateWithPeriods(ctx context.Context, year *models.AcademicYear, periods []models.Period) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin year create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	year.CreatedAt = now
	year.UpdatedAt = now
	const yearQuery = `INSERT INTO academic_years (id, institution_id, year, status, start_date, end_date, created_at, updated_at)
        VALUES (:id, :institution_id, :year, :status, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, yearQuery, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}

	const periodQuery = `INSERT INTO periods (id, academic_year_id, kind, number, status, start_date, end_date, created_at, updated_at)
        VALUES (:id, :academic_year_id, :kind, :number, :status, :start_date, :end_date, :created_at, :updated_at)`
	for i := range periods {
		if periods[i].ID == "" {
			periods[i].ID = uuid.NewString()
		}
		periods[i].AcademicYearID = year.ID
		periods[i].CreatedAt = now
		periods[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, periodQuery, periods[i]); err != nil {
			return fmt.Errorf("create period %d: %w", periods[i].Number, err)
		}
	}
	return tx.Commit()
}

// ListPeriods returns a year's periods in calendar order.
func (r *AcademicYearRepository) ListPeriods(ctx context.Context, academicYearID string) ([]models.Period, error) {
	return listPeriods(ctx, r.db, academicYearID)
}

func listPeriods(ctx context.Context, q sqlx.QueryerContext, academicYearID string) ([]models.Period, error) {
	query := fmt.Sprintf(`SELECT %s FROM periods WHERE academic_year_id = $1 ORDER BY number`, periodColumns)
	var periods []models.Period
	if err := sqlx.SelectContext(ctx, q, &periods, query, academicYearID); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}
