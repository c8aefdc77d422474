package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
)

// ErrDuplicateSlot is returned when the (doctor, date, start) uniqueness
// constraint rejects an insert or update. It is the race-safety backstop:
// a second transaction that slipped past in-memory validation surfaces here
// instead of double-booking.
var ErrDuplicateSlot = errors.New("doctor already booked at this exact slot")

const uniqueViolation = "23505"

// AppointmentRepository manages persistence for appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = "id, patient_id, doctor_id, room_id, specialty_id, date, start_time, end_time, created_at"

const appointmentDetailQuery = `SELECT a.id, a.patient_id, a.doctor_id, a.room_id, a.specialty_id, a.date, a.start_time, a.end_time, a.created_at,
		d.full_name AS doctor_name, d.type AS doctor_type,
		u.full_name AS patient_name,
		s.name AS specialty_name,
		r.number AS room_number, r.type AS room_type
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users u ON u.id = a.patient_id
	JOIN specialties s ON s.id = a.specialty_id
	LEFT JOIN rooms r ON r.id = a.room_id`

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	const query = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindDetailByID loads an appointment with joined display fields.
func (r *AppointmentRepository) FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error) {
	query := appointmentDetailQuery + ` WHERE a.id = $1`
	var detail models.AppointmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByDoctorAndDate returns a doctor's appointments for a date ordered by
// start time.
func (r *AppointmentRepository) ListByDoctorAndDate(ctx context.Context, doctorID string, date scheduling.Date) ([]models.Appointment, error) {
	const query = `SELECT ` + appointmentColumns + ` FROM appointments WHERE doctor_id = $1 AND date = $2 ORDER BY start_time`
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("list appointments by doctor and date: %w", err)
	}
	return appts, nil
}

// ListByRoomAndDate returns a room's appointments for a date ordered by
// start time.
func (r *AppointmentRepository) ListByRoomAndDate(ctx context.Context, roomID string, date scheduling.Date) ([]models.Appointment, error) {
	const query = `SELECT ` + appointmentColumns + ` FROM appointments WHERE room_id = $1 AND date = $2 ORDER BY start_time`
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, roomID, date); err != nil {
		return nil, fmt.Errorf("list appointments by room and date: %w", err)
	}
	return appts, nil
}

// ListDetailsByDate returns all non-orphaned appointments for a date with
// joined display fields, ordered by room and start time.
func (r *AppointmentRepository) ListDetailsByDate(ctx context.Context, date scheduling.Date) ([]models.AppointmentDetail, error) {
	query := appointmentDetailQuery + ` WHERE a.date = $1 AND a.room_id IS NOT NULL ORDER BY r.number, a.start_time`
	var details []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, date); err != nil {
		return nil, fmt.Errorf("list appointments by date: %w", err)
	}
	return details, nil
}

// ListDetailsByDoctorAndDate returns a doctor's appointments for a date
// with joined display fields, for agendas.
func (r *AppointmentRepository) ListDetailsByDoctorAndDate(ctx context.Context, doctorID string, date scheduling.Date) ([]models.AppointmentDetail, error) {
	query := appointmentDetailQuery + ` WHERE a.doctor_id = $1 AND a.date = $2 ORDER BY a.start_time`
	var details []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("list appointments by doctor and date: %w", err)
	}
	return details, nil
}

// ListDetailsByPatient returns a patient's appointments, most recent first.
func (r *AppointmentRepository) ListDetailsByPatient(ctx context.Context, patientID string, limit, offset int) ([]models.AppointmentDetail, int, error) {
	query := appointmentDetailQuery + ` WHERE a.patient_id = $1 ORDER BY a.date DESC, a.start_time LIMIT $2 OFFSET $3`
	var details []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, patientID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list appointments by patient: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM appointments WHERE patient_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, patientID); err != nil {
		return nil, 0, fmt.Errorf("count appointments by patient: %w", err)
	}
	return details, total, nil
}

// ListOrphans returns appointments that lost their room reference. These
// block nothing visually yet still occupy doctor time, so the board
// surfaces them for repair instead of hiding them.
func (r *AppointmentRepository) ListOrphans(ctx context.Context, date *scheduling.Date) ([]models.AppointmentDetail, error) {
	query := appointmentDetailQuery + ` WHERE a.room_id IS NULL`
	var args []interface{}
	if date != nil {
		query += ` AND a.date = $1`
		args = append(args, *date)
	}
	query += ` ORDER BY a.date, a.start_time`
	var details []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list orphaned appointments: %w", err)
	}
	return details, nil
}

// DeleteOrphans removes every appointment without a room and reports how
// many were purged.
func (r *AppointmentRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	const query = `DELETE FROM appointments WHERE room_id IS NULL`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("purge orphaned appointments: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes an appointment and reports whether a row existed.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM appointments WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete appointment: %w", err)
	}
	return affected > 0, nil
}

// BookingView is the set of reads and writes permitted inside one booking
// transaction. Validation against rows read through it is race-safe: the
// doctor and room rows are locked first, serializing concurrent bookings
// for the same doctor or room.
type BookingView interface {
	LockDoctor(ctx context.Context, id string) (*models.Doctor, error)
	LockRoom(ctx context.Context, id string) (*models.Room, error)
	GetSpecialty(ctx context.Context, id string) (*models.Specialty, error)
	GetScheduleForDay(ctx context.Context, doctorID string, weekday int) (*models.WeeklySchedule, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListDoctorDay(ctx context.Context, doctorID string, date scheduling.Date) ([]models.Appointment, error)
	ListRoomDay(ctx context.Context, roomID string, date scheduling.Date) ([]models.Appointment, error)
	Insert(ctx context.Context, appt *models.Appointment) error
	Update(ctx context.Context, appt *models.Appointment) error
}

// BookingTx is the postgres-backed BookingView.
type BookingTx struct {
	tx *sqlx.Tx
}

// Booking runs fn inside a single transaction. Any error aborts with a full
// rollback so a failed validation never leaves partial state behind.
func (r *AppointmentRepository) Booking(ctx context.Context, fn func(tx BookingView) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}

	if err := fn(&BookingTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapUniqueViolation(err, "commit booking transaction")
	}
	return nil
}

// LockDoctor loads and row-locks the doctor, serializing all bookings that
// touch this doctor until the transaction ends.
func (t *BookingTx) LockDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	const query = `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1 FOR UPDATE`
	var doctor models.Doctor
	if err := t.tx.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// LockRoom loads and row-locks the room.
func (t *BookingTx) LockRoom(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 FOR UPDATE`
	var room models.Room
	if err := t.tx.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// GetSpecialty loads a specialty inside the transaction.
func (t *BookingTx) GetSpecialty(ctx context.Context, id string) (*models.Specialty, error) {
	const query = `SELECT ` + specialtyColumns + ` FROM specialties WHERE id = $1`
	var specialty models.Specialty
	if err := t.tx.GetContext(ctx, &specialty, query, id); err != nil {
		return nil, err
	}
	return &specialty, nil
}

// GetScheduleForDay loads the doctor's schedule entry for a weekday inside
// the transaction, nil when the doctor does not attend that day.
func (t *BookingTx) GetScheduleForDay(ctx context.Context, doctorID string, weekday int) (*models.WeeklySchedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM weekly_schedules WHERE doctor_id = $1 AND weekday = $2`
	var schedule models.WeeklySchedule
	if err := t.tx.GetContext(ctx, &schedule, query, doctorID, weekday); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("schedule for day: %w", err)
	}
	return &schedule, nil
}

// GetAppointment loads an appointment inside the transaction, locking it
// against concurrent reschedules.
func (t *BookingTx) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	const query = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	var appt models.Appointment
	if err := t.tx.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListDoctorDay reads the doctor's same-date appointments with the doctor
// and room rows already locked, so the result cannot change under us.
func (t *BookingTx) ListDoctorDay(ctx context.Context, doctorID string, date scheduling.Date) ([]models.Appointment, error) {
	const query = `SELECT ` + appointmentColumns + ` FROM appointments WHERE doctor_id = $1 AND date = $2 ORDER BY start_time`
	var appts []models.Appointment
	if err := t.tx.SelectContext(ctx, &appts, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("doctor day inside booking: %w", err)
	}
	return appts, nil
}

// ListRoomDay reads the room's same-date appointments inside the
// transaction.
func (t *BookingTx) ListRoomDay(ctx context.Context, roomID string, date scheduling.Date) ([]models.Appointment, error) {
	const query = `SELECT ` + appointmentColumns + ` FROM appointments WHERE room_id = $1 AND date = $2 ORDER BY start_time`
	var appts []models.Appointment
	if err := t.tx.SelectContext(ctx, &appts, query, roomID, date); err != nil {
		return nil, fmt.Errorf("room day inside booking: %w", err)
	}
	return appts, nil
}

// Insert writes the validated appointment. A unique-constraint rejection on
// (doctor, date, start) becomes ErrDuplicateSlot.
func (t *BookingTx) Insert(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	appt.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO appointments (id, patient_id, doctor_id, room_id, specialty_id, date, start_time, end_time, created_at)
		VALUES (:id, :patient_id, :doctor_id, :room_id, :specialty_id, :date, :start_time, :end_time, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, appt); err != nil {
		return mapUniqueViolation(err, "insert appointment")
	}
	return nil
}

// Update writes the rescheduled appointment fields.
func (t *BookingTx) Update(ctx context.Context, appt *models.Appointment) error {
	const query = `UPDATE appointments SET room_id = :room_id, date = :date, start_time = :start_time, end_time = :end_time WHERE id = :id`
	if _, err := t.tx.NamedExecContext(ctx, query, appt); err != nil {
		return mapUniqueViolation(err, "update appointment")
	}
	return nil
}

func mapUniqueViolation(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateSlot
	}
	return fmt.Errorf("%s: %w", op, err)
}
