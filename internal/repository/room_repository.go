package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medagenda/citas-api/internal/models"
)

// RoomRepository manages persistence for consulting rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = "id, number, type, active, description"

// List returns all rooms ordered by number.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms ORDER BY number`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListActiveByType returns active rooms of the given type ordered by number.
// The stable order makes the finder's first-fit room choice deterministic.
func (r *RoomRepository) ListActiveByType(ctx context.Context, roomType string) ([]models.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms WHERE type = $1 AND active = TRUE ORDER BY number`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, roomType); err != nil {
		return nil, fmt.Errorf("list active %s rooms: %w", roomType, err)
	}
	return rooms, nil
}

// FindByID loads a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// ExistsByNumber reports whether a room with the given number exists,
// optionally excluding one id.
func (r *RoomRepository) ExistsByNumber(ctx context.Context, number int, excludeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM rooms WHERE number = $1 AND id <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, number, excludeID); err != nil {
		return false, fmt.Errorf("check room number: %w", err)
	}
	return count > 0, nil
}

// Create inserts a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	const query = `INSERT INTO rooms (id, number, type, active, description)
		VALUES (:id, :number, :type, :active, :description)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update saves an existing room.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	const query = `UPDATE rooms SET number = :number, type = :type, active = :active, description = :description WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

// Delete removes a room.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM rooms WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}
