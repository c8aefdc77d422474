package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type fakeBoardRooms struct {
	rooms []models.Room
}

func (f *fakeBoardRooms) List(ctx context.Context) ([]models.Room, error) {
	return f.rooms, nil
}

type fakeBoardSchedules struct {
	schedules []models.WeeklyScheduleDetail
}

func (f *fakeBoardSchedules) ListByWeekday(ctx context.Context, weekday int) ([]models.WeeklyScheduleDetail, error) {
	return f.schedules, nil
}

type fakeBoardAppointments struct {
	details []models.AppointmentDetail
	orphans []models.AppointmentDetail
}

func (f *fakeBoardAppointments) ListDetailsByDate(ctx context.Context, date scheduling.Date) ([]models.AppointmentDetail, error) {
	return f.details, nil
}

func (f *fakeBoardAppointments) ListOrphans(ctx context.Context, date *scheduling.Date) ([]models.AppointmentDetail, error) {
	return f.orphans, nil
}

// fakeBoardCache stores marshalled values like the redis-backed cache does,
// so Get exercises the same JSON round trip.
type fakeBoardCache struct {
	entries map[string][]byte
	gets    int
	sets    int
}

func newFakeBoardCache() *fakeBoardCache {
	return &fakeBoardCache{entries: map[string][]byte{}}
}

func (f *fakeBoardCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.gets++
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeBoardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func boardDate(t *testing.T) scheduling.Date {
	t.Helper()
	d, err := scheduling.ParseDate("2025-03-17")
	require.NoError(t, err)
	return d
}

func boardAppointment(t *testing.T, roomID string) models.AppointmentDetail {
	t.Helper()
	id := roomID
	return models.AppointmentDetail{
		Appointment: models.Appointment{
			ID:          "appt-" + roomID,
			PatientID:   "patient-1",
			DoctorID:    "doc-1",
			RoomID:      &id,
			SpecialtyID: "spec-1",
			Date:        boardDate(t),
			Start:       mustClock(t, "09:00"),
			End:         mustClock(t, "09:30"),
		},
		DoctorName:    "Dr. Soto",
		PatientName:   "Ana López",
		SpecialtyName: "Cardiología",
	}
}

func TestBoardServiceGroupsAppointmentsIntoRoomLanes(t *testing.T) {
	rooms := &fakeBoardRooms{rooms: []models.Room{
		{ID: "room-101", Number: 101, Type: scheduling.TypeInternal, Active: true},
		{ID: "room-201", Number: 201, Type: scheduling.TypeExternal, Active: true},
	}}
	appts := &fakeBoardAppointments{
		details: []models.AppointmentDetail{boardAppointment(t, "room-101")},
	}
	schedules := &fakeBoardSchedules{schedules: []models.WeeklyScheduleDetail{
		{WeeklySchedule: models.WeeklySchedule{DoctorID: "doc-1", Weekday: 0}, DoctorName: "Dr. Soto"},
	}}

	svc := NewBoardService(rooms, schedules, appts, nil, 0, nil)
	board, err := svc.Board(context.Background(), boardDate(t))
	require.NoError(t, err)

	require.Len(t, board.Rooms, 2)
	assert.Len(t, board.Rooms[0].Appointments, 1)
	assert.Equal(t, "Dr. Soto", board.Rooms[0].Appointments[0].DoctorName)
	assert.Empty(t, board.Rooms[1].Appointments)
	assert.NotNil(t, board.Rooms[1].Appointments)
	require.Len(t, board.DoctorSchedules, 1)
	assert.NotNil(t, board.Orphans)
	assert.Empty(t, board.Orphans)
}

func TestBoardServiceIncludesOrphans(t *testing.T) {
	orphan := boardAppointment(t, "room-101")
	orphan.RoomID = nil
	appts := &fakeBoardAppointments{orphans: []models.AppointmentDetail{orphan}}

	svc := NewBoardService(&fakeBoardRooms{}, &fakeBoardSchedules{}, appts, nil, 0, nil)
	board, err := svc.Board(context.Background(), boardDate(t))
	require.NoError(t, err)
	require.Len(t, board.Orphans, 1)
	assert.Nil(t, board.Orphans[0].RoomID)
}

func TestBoardServiceServesSecondReadFromCache(t *testing.T) {
	rooms := &fakeBoardRooms{rooms: []models.Room{
		{ID: "room-101", Number: 101, Type: scheduling.TypeInternal, Active: true},
	}}
	appts := &fakeBoardAppointments{
		details: []models.AppointmentDetail{boardAppointment(t, "room-101")},
	}
	cache := newFakeBoardCache()

	svc := NewBoardService(rooms, &fakeBoardSchedules{}, appts, cache, time.Minute, nil)

	first, err := svc.Board(context.Background(), boardDate(t))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Mutate the fake store: a cached board must not see it.
	appts.details = nil

	second, err := svc.Board(context.Background(), boardDate(t))
	require.NoError(t, err)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.sets)
	require.Len(t, second.Rooms, 1)
	assert.Len(t, second.Rooms[0].Appointments, len(first.Rooms[0].Appointments))
}

func TestBoardServiceCacheKeyIsPerDate(t *testing.T) {
	cache := newFakeBoardCache()
	svc := NewBoardService(&fakeBoardRooms{}, &fakeBoardSchedules{}, &fakeBoardAppointments{}, cache, time.Minute, nil)

	_, err := svc.Board(context.Background(), boardDate(t))
	require.NoError(t, err)

	other, err := scheduling.ParseDate("2025-03-18")
	require.NoError(t, err)
	_, err = svc.Board(context.Background(), other)
	require.NoError(t, err)

	assert.Len(t, cache.entries, 2)
	assert.Contains(t, cache.entries, "board:2025-03-17")
	assert.Contains(t, cache.entries, "board:2025-03-18")
}
