package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medagenda/citas-api/internal/models"
)

// DoctorRepository manages persistence for doctors.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository constructs a DoctorRepository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

const doctorColumns = "id, user_id, full_name, specialty_id, type, room_id, registered_at"

const doctorDetailQuery = `SELECT d.id, d.user_id, d.full_name, d.specialty_id, d.type, d.room_id, d.registered_at,
		s.name AS specialty_name, r.number AS room_number
	FROM doctors d
	LEFT JOIN specialties s ON s.id = d.specialty_id
	LEFT JOIN rooms r ON r.id = d.room_id`

// List returns all doctors with joined display fields, ordered by name.
func (r *DoctorRepository) List(ctx context.Context) ([]models.DoctorDetail, error) {
	query := doctorDetailQuery + ` ORDER BY d.full_name`
	var doctors []models.DoctorDetail
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// ListBySpecialty returns doctors of a specialty in stable id order. The
// order decides which doctor the availability search offers first.
func (r *DoctorRepository) ListBySpecialty(ctx context.Context, specialtyID string) ([]models.Doctor, error) {
	const query = `SELECT ` + doctorColumns + ` FROM doctors WHERE specialty_id = $1 ORDER BY id`
	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, specialtyID); err != nil {
		return nil, fmt.Errorf("list doctors by specialty: %w", err)
	}
	return doctors, nil
}

// FindByID loads a doctor by id.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	const query = `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByRoom returns the doctor holding the given room as their fixed
// assignment, excluding one doctor id. Used to enforce room exclusivity.
func (r *DoctorRepository) FindByRoom(ctx context.Context, roomID, excludeID string) (*models.Doctor, error) {
	const query = `SELECT ` + doctorColumns + ` FROM doctors WHERE room_id = $1 AND id <> $2 LIMIT 1`
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, roomID, excludeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find doctor by room: %w", err)
	}
	return &doctor, nil
}

// Create inserts a doctor.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	doctor.RegisteredAt = time.Now().UTC()
	const query = `INSERT INTO doctors (id, user_id, full_name, specialty_id, type, room_id, registered_at)
		VALUES (:id, :user_id, :full_name, :specialty_id, :type, :room_id, :registered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// Update saves an existing doctor.
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	const query = `UPDATE doctors SET full_name = :full_name, specialty_id = :specialty_id, type = :type, room_id = :room_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	return nil
}

// Delete removes a doctor; appointments cascade at the schema level.
func (r *DoctorRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM doctors WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	return nil
}
