package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medagenda/citas-api/internal/models"
)

// SpecialtyRepository manages persistence for specialties.
type SpecialtyRepository struct {
	db *sqlx.DB
}

// NewSpecialtyRepository constructs a SpecialtyRepository.
func NewSpecialtyRepository(db *sqlx.DB) *SpecialtyRepository {
	return &SpecialtyRepository{db: db}
}

const specialtyColumns = "id, name, duration_minutes, description"

// List returns all specialties ordered by name.
func (r *SpecialtyRepository) List(ctx context.Context) ([]models.Specialty, error) {
	const query = `SELECT ` + specialtyColumns + ` FROM specialties ORDER BY name`
	var specialties []models.Specialty
	if err := r.db.SelectContext(ctx, &specialties, query); err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	return specialties, nil
}

// FindByID loads a specialty by id.
func (r *SpecialtyRepository) FindByID(ctx context.Context, id string) (*models.Specialty, error) {
	const query = `SELECT ` + specialtyColumns + ` FROM specialties WHERE id = $1`
	var specialty models.Specialty
	if err := r.db.GetContext(ctx, &specialty, query, id); err != nil {
		return nil, err
	}
	return &specialty, nil
}

// ExistsByName reports whether a specialty with the given name exists,
// optionally excluding one id.
func (r *SpecialtyRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM specialties WHERE LOWER(name) = LOWER($1) AND id <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check specialty name: %w", err)
	}
	return count > 0, nil
}

// InUse reports whether any appointment or doctor still references the
// specialty.
func (r *SpecialtyRepository) InUse(ctx context.Context, id string) (bool, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM appointments WHERE specialty_id = $1) +
		(SELECT COUNT(*) FROM doctors WHERE specialty_id = $1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return false, fmt.Errorf("check specialty usage: %w", err)
	}
	return count > 0, nil
}

// Create inserts a specialty.
func (r *SpecialtyRepository) Create(ctx context.Context, specialty *models.Specialty) error {
	if specialty.ID == "" {
		specialty.ID = uuid.NewString()
	}
	const query = `INSERT INTO specialties (id, name, duration_minutes, description)
		VALUES (:id, :name, :duration_minutes, :description)`
	if _, err := r.db.NamedExecContext(ctx, query, specialty); err != nil {
		return fmt.Errorf("create specialty: %w", err)
	}
	return nil
}

// Update saves an existing specialty.
func (r *SpecialtyRepository) Update(ctx context.Context, specialty *models.Specialty) error {
	const query = `UPDATE specialties SET name = :name, duration_minutes = :duration_minutes, description = :description WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, specialty); err != nil {
		return fmt.Errorf("update specialty: %w", err)
	}
	return nil
}

// Delete removes a specialty.
func (r *SpecialtyRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM specialties WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete specialty: %w", err)
	}
	return nil
}
