package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindelo-dev/registo-api/internal/models"
)

const institutionColumns = `id, name, calendar_type, pass_threshold, retakes_allowed, grade_entry_roles, created_at, updated_at`

// InstitutionRepository persists tenant settings.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository constructs repository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// FindByID returns one institution.
func (r *InstitutionRepository) FindByID(ctx context.Context, id string) (*models.Institution, error) {
	query := fmt.Sprintf(`SELECT %s FROM institutions WHERE id = $1`, institutionColumns)
	var institution models.Institution
	if err := r.db.GetContext(ctx, &institution, query, id); err != nil {
		return nil, err
	}
	return &institution, nil
}

// Create inserts an institution.
func (r *InstitutionRepository) Create(ctx context.Context, institution *models.Institution) error {
	if institution.ID == "" {
		institution.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	institution.CreatedAt = now
	institution.UpdatedAt = now
	const query = `INSERT INTO institutions (id, name, calendar_type, pass_threshold, retakes_allowed, grade_entry_roles, created_at, updated_at)
        VALUES (:id, :name, :calendar_type, :pass_threshold, :retakes_allowed, :grade_entry_roles, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, institution); err != nil {
		return fmt.Errorf("create institution: %w", err)
	}
	return nil
}

// UpdateGradingSettings adjusts the per-tenant grading knobs.
func (r *InstitutionRepository) UpdateGradingSettings(ctx context.Context, institution *models.Institution) error {
	const query = `UPDATE institutions
        SET pass_threshold = :pass_threshold, retakes_allowed = :retakes_allowed, grade_entry_roles = :grade_entry_roles, updated_at = NOW()
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, institution); err != nil {
		return fmt.Errorf("update institution grading settings: %w", err)
	}
	return nil
}
