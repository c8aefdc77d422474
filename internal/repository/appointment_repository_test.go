package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
)

func newAppointmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func testDate(t *testing.T) scheduling.Date {
	t.Helper()
	d, err := scheduling.ParseDate("2025-03-17")
	require.NoError(t, err)
	return d
}

func TestAppointmentRepositoryListByDoctorAndDate(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "room_id", "specialty_id", "date", "start_time", "end_time", "created_at"}).
		AddRow("appt-1", "patient-1", "doc-1", "room-1", "spec-1", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), "09:00:00", "09:30:00", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, patient_id, doctor_id, room_id, specialty_id, date, start_time, end_time, created_at FROM appointments WHERE doctor_id = $1 AND date = $2")).
		WithArgs("doc-1", testDate(t)).
		WillReturnRows(rows)

	appts, err := repo.ListByDoctorAndDate(context.Background(), "doc-1", testDate(t))
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "09:00", appts[0].Start.String())
	assert.Equal(t, "09:30", appts[0].End.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryListOrphansFiltersByDate(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "room_id", "specialty_id", "date", "start_time", "end_time", "created_at", "doctor_name", "doctor_type", "patient_name", "specialty_name", "room_number", "room_type"}).
		AddRow("appt-1", "patient-1", "doc-1", nil, "spec-1", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), "09:00:00", "09:30:00", time.Now(), "Dr. Soto", "internal", "Paciente", "Cardiología", nil, nil)
	mock.ExpectQuery(`WHERE a\.room_id IS NULL AND a\.date = \$1`).
		WithArgs(testDate(t)).
		WillReturnRows(rows)

	date := testDate(t)
	orphans, err := repo.ListOrphans(context.Background(), &date)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Nil(t, orphans[0].RoomID)
	assert.Equal(t, "Dr. Soto", orphans[0].DoctorName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryDeleteReportsMissingRow(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE id = $1")).
		WithArgs("appt-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "appt-missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBookingCommits(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	doctorRows := sqlmock.NewRows([]string{"id", "user_id", "full_name", "specialty_id", "type", "room_id", "registered_at"}).
		AddRow("doc-1", "user-1", "Dr. Soto", "spec-1", "internal", "room-1", time.Now())
	mock.ExpectQuery(`FROM doctors WHERE id = \$1 FOR UPDATE`).
		WithArgs("doc-1").
		WillReturnRows(doctorRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Booking(context.Background(), func(tx BookingView) error {
		doctor, err := tx.LockDoctor(context.Background(), "doc-1")
		if err != nil {
			return err
		}
		roomID := *doctor.RoomID
		return tx.Insert(context.Background(), &models.Appointment{
			PatientID:   "patient-1",
			DoctorID:    doctor.ID,
			RoomID:      &roomID,
			SpecialtyID: "spec-1",
			Date:        testDate(t),
			Start:       600,
			End:         630,
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBookingRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := assert.AnError
	err := repo.Booking(context.Background(), func(tx BookingView) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryInsertMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Booking(context.Background(), func(tx BookingView) error {
		roomID := "room-1"
		return tx.Insert(context.Background(), &models.Appointment{
			PatientID:   "patient-1",
			DoctorID:    "doc-1",
			RoomID:      &roomID,
			SpecialtyID: "spec-1",
			Date:        testDate(t),
			Start:       600,
			End:         630,
		})
	})
	require.ErrorIs(t, err, ErrDuplicateSlot)
	require.NoError(t, mock.ExpectationsWereMet())
}
