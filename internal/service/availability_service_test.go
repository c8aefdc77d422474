package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type fakeSpecialtyReader struct {
	specialties map[string]*models.Specialty
}

func (f *fakeSpecialtyReader) FindByID(_ context.Context, id string) (*models.Specialty, error) {
	if s, ok := f.specialties[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeDoctorLister struct {
	doctors []models.Doctor
}

func (f *fakeDoctorLister) ListBySpecialty(_ context.Context, specialtyID string) ([]models.Doctor, error) {
	var out []models.Doctor
	for _, d := range f.doctors {
		if d.SpecialtyID != nil && *d.SpecialtyID == specialtyID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeScheduleReader struct {
	// keyed by doctorID, weekday
	windows map[string]map[int]*models.WeeklySchedule
}

func (f *fakeScheduleReader) FindForDay(_ context.Context, doctorID string, weekday int) (*models.WeeklySchedule, error) {
	if byDay, ok := f.windows[doctorID]; ok {
		return byDay[weekday], nil
	}
	return nil, nil
}

type fakeRoomReader struct {
	rooms map[string]*models.Room
}

func (f *fakeRoomReader) FindByID(_ context.Context, id string) (*models.Room, error) {
	if r, ok := f.rooms[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRoomReader) ListActiveByType(_ context.Context, roomType string) ([]models.Room, error) {
	var out []models.Room
	for _, r := range f.rooms {
		if r.Type == roomType && r.Active {
			out = append(out, *r)
		}
	}
	// Deterministic first-fit order.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Number < out[i].Number {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type fakeAppointmentReader struct {
	byDoctor map[string][]models.Appointment
	byRoom   map[string][]models.Appointment
}

func (f *fakeAppointmentReader) ListByDoctorAndDate(_ context.Context, doctorID string, _ scheduling.Date) ([]models.Appointment, error) {
	return f.byDoctor[doctorID], nil
}

func (f *fakeAppointmentReader) ListByRoomAndDate(_ context.Context, roomID string, _ scheduling.Date) ([]models.Appointment, error) {
	return f.byRoom[roomID], nil
}

type availabilityFixture struct {
	specialties  *fakeSpecialtyReader
	doctors      *fakeDoctorLister
	schedules    *fakeScheduleReader
	rooms        *fakeRoomReader
	appointments *fakeAppointmentReader
}

func mustClock(t *testing.T, raw string) scheduling.ClockTime {
	t.Helper()
	parsed, err := scheduling.ParseClock(raw)
	require.NoError(t, err)
	return parsed
}

func appointment(t *testing.T, id, doctorID, roomID, start, end string) models.Appointment {
	t.Helper()
	room := roomID
	return models.Appointment{
		ID:       id,
		DoctorID: doctorID,
		RoomID:   &room,
		Start:    mustClock(t, start),
		End:      mustClock(t, end),
	}
}

func newAvailabilityFixture(t *testing.T) *availabilityFixture {
	t.Helper()
	cardiology := "spec-cardio"
	return &availabilityFixture{
		specialties: &fakeSpecialtyReader{specialties: map[string]*models.Specialty{
			cardiology: {ID: cardiology, Name: "Cardiología", DurationMinutes: 30},
		}},
		doctors: &fakeDoctorLister{doctors: []models.Doctor{
			{ID: "doc-1", FullName: "Dr. Soto", SpecialtyID: &cardiology, Type: scheduling.TypeInternal, RoomID: strPtr("room-101")},
		}},
		schedules: &fakeScheduleReader{windows: map[string]map[int]*models.WeeklySchedule{
			"doc-1": {0: {DoctorID: "doc-1", Weekday: 0, Start: mustClock(t, "07:00"), End: mustClock(t, "15:00")}},
		}},
		rooms: &fakeRoomReader{rooms: map[string]*models.Room{
			"room-101": {ID: "room-101", Number: 101, Type: scheduling.TypeInternal, Active: true},
		}},
		appointments: &fakeAppointmentReader{
			byDoctor: map[string][]models.Appointment{},
			byRoom:   map[string][]models.Appointment{},
		},
	}
}

func strPtr(s string) *string { return &s }

func (f *availabilityFixture) service() *AvailabilityService {
	svc := NewAvailabilityService(f.specialties, f.doctors, f.schedules, f.rooms, f.appointments, zap.NewNop())
	// A fixed instant well before the searched date.
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestFindSlotFirstFreeSlotAfterExisting(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.appointments.byDoctor["doc-1"] = []models.Appointment{
		appointment(t, "appt-1", "doc-1", "room-101", "07:00", "07:30"),
		appointment(t, "appt-2", "doc-1", "room-101", "08:00", "08:30"),
	}
	f.appointments.byRoom["room-101"] = f.appointments.byDoctor["doc-1"]

	monday, err := scheduling.ParseDate("2025-03-17")
	require.NoError(t, err)

	slot, err := f.service().FindSlot(context.Background(), monday, "spec-cardio")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", slot.DoctorID)
	assert.Equal(t, "07:30", slot.Start.String())
	assert.Equal(t, "08:00", slot.End.String())
	assert.Equal(t, 101, slot.RoomNumber)
}

func TestFindSlotJumpsPastBusyStretch(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.appointments.byDoctor["doc-1"] = []models.Appointment{
		appointment(t, "appt-1", "doc-1", "room-101", "07:00", "08:30"),
	}
	f.appointments.byRoom["room-101"] = f.appointments.byDoctor["doc-1"]

	monday, _ := scheduling.ParseDate("2025-03-17")
	slot, err := f.service().FindSlot(context.Background(), monday, "spec-cardio")
	require.NoError(t, err)
	assert.Equal(t, "08:30", slot.Start.String())
}

func TestFindSlotNoScheduleThatDay(t *testing.T) {
	f := newAvailabilityFixture(t)

	sunday, _ := scheduling.ParseDate("2025-03-16")
	_, err := f.service().FindSlot(context.Background(), sunday, "spec-cardio")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoAvailability.Code, appErrors.FromError(err).Code)
}

func TestFindSlotFullDayReturnsNoAvailability(t *testing.T) {
	f := newAvailabilityFixture(t)
	f.appointments.byDoctor["doc-1"] = []models.Appointment{
		appointment(t, "appt-1", "doc-1", "room-101", "07:00", "15:00"),
	}

	monday, _ := scheduling.ParseDate("2025-03-17")
	_, err := f.service().FindSlot(context.Background(), monday, "spec-cardio")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoAvailability.Code, appErrors.FromError(err).Code)
}

func TestFindSlotTodaySkipsPastSlots(t *testing.T) {
	f := newAvailabilityFixture(t)
	svc := f.service()
	// Monday 2025-03-17 at 10:12 local clock.
	svc.now = func() time.Time { return time.Date(2025, 3, 17, 10, 12, 0, 0, time.UTC) }

	monday, _ := scheduling.ParseDate("2025-03-17")
	slot, err := svc.FindSlot(context.Background(), monday, "spec-cardio")
	require.NoError(t, err)
	// Cursor aligned forward in 30-minute steps from 07:00 past 10:12.
	assert.Equal(t, "10:30", slot.Start.String())
}

func TestFindSlotExternalDoctorPicksFirstFreeExternalRoom(t *testing.T) {
	f := newAvailabilityFixture(t)
	dermatology := "spec-derma"
	f.specialties.specialties[dermatology] = &models.Specialty{ID: dermatology, Name: "Dermatología", DurationMinutes: 15}
	f.doctors.doctors = append(f.doctors.doctors, models.Doctor{
		ID: "doc-2", FullName: "Dr. Vega", SpecialtyID: &dermatology, Type: scheduling.TypeExternal,
	})
	f.schedules.windows["doc-2"] = map[int]*models.WeeklySchedule{
		0: {DoctorID: "doc-2", Weekday: 0, Start: mustClock(t, "09:00"), End: mustClock(t, "13:00")},
	}
	f.rooms.rooms["room-201"] = &models.Room{ID: "room-201", Number: 201, Type: scheduling.TypeExternal, Active: true}
	f.rooms.rooms["room-202"] = &models.Room{ID: "room-202", Number: 202, Type: scheduling.TypeExternal, Active: true}
	// Room 201 taken for the first slot; first-fit falls through to 202.
	f.appointments.byRoom["room-201"] = []models.Appointment{
		appointment(t, "appt-9", "doc-9", "room-201", "09:00", "09:15"),
	}

	monday, _ := scheduling.ParseDate("2025-03-17")
	slot, err := f.service().FindSlot(context.Background(), monday, dermatology)
	require.NoError(t, err)
	assert.Equal(t, "doc-2", slot.DoctorID)
	assert.Equal(t, "09:00", slot.Start.String())
	assert.Equal(t, 202, slot.RoomNumber)
}

func TestFindSlotUnknownSpecialty(t *testing.T) {
	f := newAvailabilityFixture(t)

	monday, _ := scheduling.ParseDate("2025-03-17")
	_, err := f.service().FindSlot(context.Background(), monday, "spec-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
