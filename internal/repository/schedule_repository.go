package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medagenda/citas-api/internal/models"
)

// ScheduleRepository manages the doctors' weekly availability windows.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = "id, doctor_id, weekday, start_time, end_time"

// ListByDoctor returns a doctor's schedule entries ordered by weekday.
func (r *ScheduleRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySchedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM weekly_schedules WHERE doctor_id = $1 ORDER BY weekday, start_time`
	var schedules []models.WeeklySchedule
	if err := r.db.SelectContext(ctx, &schedules, query, doctorID); err != nil {
		return nil, fmt.Errorf("list schedules by doctor: %w", err)
	}
	return schedules, nil
}

// FindForDay loads the doctor's single entry for a weekday, nil when the
// doctor does not attend that day.
func (r *ScheduleRepository) FindForDay(ctx context.Context, doctorID string, weekday int) (*models.WeeklySchedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM weekly_schedules WHERE doctor_id = $1 AND weekday = $2`
	var schedule models.WeeklySchedule
	if err := r.db.GetContext(ctx, &schedule, query, doctorID, weekday); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find schedule for day: %w", err)
	}
	return &schedule, nil
}

// ListByWeekday returns every doctor's entry for a weekday with the doctor
// name joined, for the scheduler board.
func (r *ScheduleRepository) ListByWeekday(ctx context.Context, weekday int) ([]models.WeeklyScheduleDetail, error) {
	const query = `SELECT ws.id, ws.doctor_id, ws.weekday, ws.start_time, ws.end_time, d.full_name AS doctor_name
		FROM weekly_schedules ws
		JOIN doctors d ON d.id = ws.doctor_id
		WHERE ws.weekday = $1
		ORDER BY d.full_name`
	var schedules []models.WeeklyScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, weekday); err != nil {
		return nil, fmt.Errorf("list schedules by weekday: %w", err)
	}
	return schedules, nil
}

// FindByID loads a schedule entry by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.WeeklySchedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM weekly_schedules WHERE id = $1`
	var schedule models.WeeklySchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ExistsForDay reports whether the doctor already has an entry for the
// weekday, optionally excluding one id. Backed by a unique constraint on
// (doctor_id, weekday).
func (r *ScheduleRepository) ExistsForDay(ctx context.Context, doctorID string, weekday int, excludeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM weekly_schedules WHERE doctor_id = $1 AND weekday = $2 AND id <> $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, doctorID, weekday, excludeID); err != nil {
		return false, fmt.Errorf("check schedule day: %w", err)
	}
	return count > 0, nil
}

// Create inserts a schedule entry.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.WeeklySchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	const query = `INSERT INTO weekly_schedules (id, doctor_id, weekday, start_time, end_time)
		VALUES (:id, :doctor_id, :weekday, :start_time, :end_time)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update saves an existing schedule entry.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.WeeklySchedule) error {
	const query = `UPDATE weekly_schedules SET weekday = :weekday, start_time = :start_time, end_time = :end_time WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule entry.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM weekly_schedules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
