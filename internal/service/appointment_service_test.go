package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medagenda/citas-api/internal/dto"
	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/repository"
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type fakeBookingView struct {
	doctors      map[string]*models.Doctor
	rooms        map[string]*models.Room
	specialties  map[string]*models.Specialty
	schedules    map[string]map[int]*models.WeeklySchedule
	appointments map[string]*models.Appointment
	insertErr    error
	updateErr    error
}

func (f *fakeBookingView) LockDoctor(_ context.Context, id string) (*models.Doctor, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingView) LockRoom(_ context.Context, id string) (*models.Room, error) {
	if r, ok := f.rooms[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingView) GetSpecialty(_ context.Context, id string) (*models.Specialty, error) {
	if s, ok := f.specialties[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingView) GetScheduleForDay(_ context.Context, doctorID string, weekday int) (*models.WeeklySchedule, error) {
	if byDay, ok := f.schedules[doctorID]; ok {
		return byDay[weekday], nil
	}
	return nil, nil
}

func (f *fakeBookingView) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	if a, ok := f.appointments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingView) ListDoctorDay(_ context.Context, doctorID string, date scheduling.Date) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeBookingView) ListRoomDay(_ context.Context, roomID string, date scheduling.Date) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.RoomID != nil && *a.RoomID == roomID && a.Date.Equal(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeBookingView) Insert(_ context.Context, appt *models.Appointment) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if appt.ID == "" {
		appt.ID = "appt-generated"
	}
	stored := *appt
	f.appointments[appt.ID] = &stored
	return nil
}

func (f *fakeBookingView) Update(_ context.Context, appt *models.Appointment) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored := *appt
	f.appointments[appt.ID] = &stored
	return nil
}

type fakeAppointmentRepo struct {
	view    *fakeBookingView
	deleted map[string]bool
}

func (f *fakeAppointmentRepo) Booking(_ context.Context, fn func(tx repository.BookingView) error) error {
	return fn(f.view)
}

func (f *fakeAppointmentRepo) FindDetailByID(_ context.Context, id string) (*models.AppointmentDetail, error) {
	if a, ok := f.view.appointments[id]; ok {
		return &models.AppointmentDetail{Appointment: *a}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAppointmentRepo) ListDetailsByDate(_ context.Context, _ scheduling.Date) ([]models.AppointmentDetail, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) ListDetailsByDoctorAndDate(_ context.Context, doctorID string, date scheduling.Date) ([]models.AppointmentDetail, error) {
	appts, _ := f.view.ListDoctorDay(context.Background(), doctorID, date)
	out := make([]models.AppointmentDetail, 0, len(appts))
	for _, a := range appts {
		out = append(out, models.AppointmentDetail{Appointment: a, PatientName: "Paciente", SpecialtyName: "Cardiología"})
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ListDetailsByPatient(_ context.Context, patientID string, _, _ int) ([]models.AppointmentDetail, int, error) {
	var out []models.AppointmentDetail
	for _, a := range f.view.appointments {
		if a.PatientID == patientID {
			out = append(out, models.AppointmentDetail{Appointment: *a})
		}
	}
	return out, len(out), nil
}

func (f *fakeAppointmentRepo) ListOrphans(_ context.Context, _ *scheduling.Date) ([]models.AppointmentDetail, error) {
	var out []models.AppointmentDetail
	for _, a := range f.view.appointments {
		if a.RoomID == nil {
			out = append(out, models.AppointmentDetail{Appointment: *a})
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) DeleteOrphans(_ context.Context) (int64, error) {
	var purged int64
	for id, a := range f.view.appointments {
		if a.RoomID == nil {
			delete(f.view.appointments, id)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeAppointmentRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := f.view.appointments[id]; !ok {
		return false, nil
	}
	delete(f.view.appointments, id)
	f.deleted[id] = true
	return true, nil
}

type fakeDoctorFinder struct {
	doctors map[string]*models.Doctor
}

func (f *fakeDoctorFinder) FindByID(_ context.Context, id string) (*models.Doctor, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type countingInvalidator struct {
	calls    int
	patterns []string
}

func (c *countingInvalidator) DeleteByPattern(_ context.Context, pattern string) error {
	c.calls++
	c.patterns = append(c.patterns, pattern)
	return nil
}

type bookingFixture struct {
	view    *fakeBookingView
	repo    *fakeAppointmentRepo
	cache   *countingInvalidator
	service *AppointmentService
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	cardiology := "spec-cardio"
	view := &fakeBookingView{
		doctors: map[string]*models.Doctor{
			"doc-1": {ID: "doc-1", FullName: "Dr. Soto", SpecialtyID: &cardiology, Type: scheduling.TypeInternal, RoomID: strPtr("room-101")},
		},
		rooms: map[string]*models.Room{
			"room-101": {ID: "room-101", Number: 101, Type: scheduling.TypeInternal, Active: true},
			"room-201": {ID: "room-201", Number: 201, Type: scheduling.TypeExternal, Active: true},
		},
		specialties: map[string]*models.Specialty{
			cardiology: {ID: cardiology, Name: "Cardiología", DurationMinutes: 30},
		},
		schedules: map[string]map[int]*models.WeeklySchedule{
			"doc-1": {0: {DoctorID: "doc-1", Weekday: 0, Start: mustClock(t, "07:00"), End: mustClock(t, "15:00")}},
		},
		appointments: map[string]*models.Appointment{},
	}
	repo := &fakeAppointmentRepo{view: view, deleted: map[string]bool{}}
	cache := &countingInvalidator{}
	doctors := &fakeDoctorFinder{doctors: view.doctors}
	svc := NewAppointmentService(repo, doctors, cache, nil, zap.NewNop())
	return &bookingFixture{view: view, repo: repo, cache: cache, service: svc}
}

func TestCreateAppointmentSuccess(t *testing.T) {
	f := newBookingFixture(t)

	appt, err := f.service.Create(context.Background(), dto.CreateAppointmentRequest{
		PatientID: "11111111-1111-1111-1111-111111111111",
		DoctorID:  "doc-1",
		RoomID:    "room-101",
		Date:      "2025-03-17",
		Start:     "09:00",
		End:       "09:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:30", appt.End.String())
	assert.Equal(t, "spec-cardio", appt.SpecialtyID)
	require.NotNil(t, appt.RoomID)
	assert.Len(t, f.view.appointments, 1)
	assert.Equal(t, 1, f.cache.calls)
	assert.Equal(t, []string{"board:*"}, f.cache.patterns)
}

func TestCreateAppointmentDoctorOverlap(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{
		ID: "appt-1", DoctorID: "doc-1", RoomID: strPtr("room-101"),
		Date:  mustDate(t, "2025-03-17"),
		Start: mustClock(t, "09:00"), End: mustClock(t, "09:30"),
	}

	_, err := f.service.Create(context.Background(), dto.CreateAppointmentRequest{
		PatientID: "11111111-1111-1111-1111-111111111111",
		DoctorID:  "doc-1",
		RoomID:    "room-101",
		Date:      "2025-03-17",
		Start:     "09:00",
		End:       "09:30",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.NotEmpty(t, appErr.Violations)
	codes := make([]string, 0, len(appErr.Violations))
	for _, v := range appErr.Violations {
		codes = append(codes, v.Code)
	}
	assert.Contains(t, codes, scheduling.KindDoctorOverlap)
	assert.Len(t, f.view.appointments, 1)
	assert.Zero(t, f.cache.calls)
}

func TestCreateAppointmentWrongDurationRejected(t *testing.T) {
	f := newBookingFixture(t)

	// 20 minutes against a 30-minute specialty.
	_, err := f.service.Create(context.Background(), dto.CreateAppointmentRequest{
		PatientID: "11111111-1111-1111-1111-111111111111",
		DoctorID:  "doc-1",
		RoomID:    "room-101",
		Date:      "2025-03-17",
		Start:     "09:00",
		End:       "09:20",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.NotEmpty(t, appErr.Violations)
	codes := make([]string, 0, len(appErr.Violations))
	for _, v := range appErr.Violations {
		codes = append(codes, v.Code)
	}
	assert.Contains(t, codes, scheduling.KindDurationMismatch)
	assert.Empty(t, f.view.appointments)
}

func TestRescheduleKeepsCallerEnd(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{
		ID: "appt-1", PatientID: "patient-1", DoctorID: "doc-1", RoomID: strPtr("room-101"),
		SpecialtyID: "spec-cardio",
		Date:        mustDate(t, "2025-03-17"),
		Start:       mustClock(t, "09:00"), End: mustClock(t, "09:30"),
	}

	// Patching only the end shrinks the interval and must be rejected.
	shortEnd := "09:20"
	_, err := f.service.Reschedule(context.Background(), "appt-1", dto.RescheduleAppointmentRequest{End: &shortEnd})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	require.NotEmpty(t, appErr.Violations)
	assert.Equal(t, scheduling.KindDurationMismatch, appErr.Violations[0].Code)
	assert.Equal(t, "09:30", f.view.appointments["appt-1"].End.String())
}

func TestCreateAppointmentWithoutRoomRejected(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.service.Create(context.Background(), dto.CreateAppointmentRequest{
		PatientID: "11111111-1111-1111-1111-111111111111",
		DoctorID:  "doc-1",
		Date:      "2025-03-17",
		Start:     "09:00",
		End:       "09:30",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	require.NotEmpty(t, appErr.Violations)
	assert.Equal(t, scheduling.KindRoomRequired, appErr.Violations[0].Code)
}

func TestCreateAppointmentDuplicateBecomesConcurrencyConflict(t *testing.T) {
	f := newBookingFixture(t)
	f.view.insertErr = repository.ErrDuplicateSlot

	_, err := f.service.Create(context.Background(), dto.CreateAppointmentRequest{
		PatientID: "11111111-1111-1111-1111-111111111111",
		DoctorID:  "doc-1",
		RoomID:    "room-101",
		Date:      "2025-03-17",
		Start:     "09:00",
		End:       "09:30",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConcurrencyClash.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
}

func TestRescheduleMovesAppointment(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{
		ID: "appt-1", PatientID: "patient-1", DoctorID: "doc-1", RoomID: strPtr("room-101"),
		SpecialtyID: "spec-cardio",
		Date:        mustDate(t, "2025-03-17"),
		Start:       mustClock(t, "09:00"), End: mustClock(t, "09:30"),
	}

	newStart := "10:00"
	newEnd := "10:30"
	appt, err := f.service.Reschedule(context.Background(), "appt-1", dto.RescheduleAppointmentRequest{Start: &newStart, End: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, "10:00", appt.Start.String())
	assert.Equal(t, "10:30", appt.End.String())
	assert.Equal(t, 1, f.cache.calls)
}

func TestRescheduleIdenticalValuesSucceeds(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{
		ID: "appt-1", PatientID: "patient-1", DoctorID: "doc-1", RoomID: strPtr("room-101"),
		SpecialtyID: "spec-cardio",
		Date:        mustDate(t, "2025-03-17"),
		Start:       mustClock(t, "09:00"), End: mustClock(t, "09:30"),
	}

	sameStart := "09:00"
	appt, err := f.service.Reschedule(context.Background(), "appt-1", dto.RescheduleAppointmentRequest{Start: &sameStart})
	require.NoError(t, err)
	assert.Equal(t, "09:00", appt.Start.String())
}

func TestRescheduleToWrongRoomTypeRejected(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{
		ID: "appt-1", PatientID: "patient-1", DoctorID: "doc-1", RoomID: strPtr("room-101"),
		SpecialtyID: "spec-cardio",
		Date:        mustDate(t, "2025-03-17"),
		Start:       mustClock(t, "09:00"), End: mustClock(t, "09:30"),
	}

	// Internal doctor moved out of their fixed room.
	otherRoom := "room-201"
	_, err := f.service.Reschedule(context.Background(), "appt-1", dto.RescheduleAppointmentRequest{RoomID: &otherRoom})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	require.NotEmpty(t, appErr.Violations)
	assert.Equal(t, scheduling.KindRoomTypeMismatch, appErr.Violations[0].Code)

	// Stored row untouched.
	assert.Equal(t, "room-101", *f.view.appointments["appt-1"].RoomID)
}

func TestRescheduleMissingAppointment(t *testing.T) {
	f := newBookingFixture(t)

	start := "10:00"
	_, err := f.service.Reschedule(context.Background(), "appt-missing", dto.RescheduleAppointmentRequest{Start: &start})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRepairOrphanAssignsRoom(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{
		ID: "appt-1", PatientID: "patient-1", DoctorID: "doc-1", RoomID: nil,
		SpecialtyID: "spec-cardio",
		Date:        mustDate(t, "2025-03-17"),
		Start:       mustClock(t, "09:00"), End: mustClock(t, "09:30"),
	}

	appt, err := f.service.RepairOrphan(context.Background(), "appt-1", dto.RepairOrphanRequest{
		RoomID: "room-101",
	})
	require.NoError(t, err)
	require.NotNil(t, appt.RoomID)
	assert.Equal(t, "room-101", *appt.RoomID)
}

func TestCancelAppointment(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{ID: "appt-1", DoctorID: "doc-1"}

	require.NoError(t, f.service.Cancel(context.Background(), "appt-1"))
	assert.Empty(t, f.view.appointments)
	assert.Equal(t, 1, f.cache.calls)

	err := f.service.Cancel(context.Background(), "appt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPurgeOrphans(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{ID: "appt-1", DoctorID: "doc-1"}
	f.view.appointments["appt-2"] = &models.Appointment{ID: "appt-2", DoctorID: "doc-1", RoomID: strPtr("room-101")}

	purged, err := f.service.PurgeOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Len(t, f.view.appointments, 1)
}

func TestDayAgendaPDF(t *testing.T) {
	f := newBookingFixture(t)
	f.view.appointments["appt-1"] = &models.Appointment{
		ID: "appt-1", PatientID: "patient-1", DoctorID: "doc-1", RoomID: strPtr("room-101"),
		SpecialtyID: "spec-cardio",
		Date:        mustDate(t, "2025-03-17"),
		Start:       mustClock(t, "09:00"), End: mustClock(t, "09:30"),
	}

	payload, err := f.service.DayAgendaPDF(context.Background(), "doc-1", mustDate(t, "2025-03-17"))
	require.NoError(t, err)
	assert.True(t, len(payload) > 0)
	assert.Equal(t, "%PDF", string(payload[:4]))
}

func mustDate(t *testing.T, raw string) scheduling.Date {
	t.Helper()
	d, err := scheduling.ParseDate(raw)
	require.NoError(t, err)
	return d
}
