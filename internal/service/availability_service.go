package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type availabilitySpecialtyReader interface {
	FindByID(ctx context.Context, id string) (*models.Specialty, error)
}

type availabilityDoctorReader interface {
	ListBySpecialty(ctx context.Context, specialtyID string) ([]models.Doctor, error)
}

type availabilityScheduleReader interface {
	FindForDay(ctx context.Context, doctorID string, weekday int) (*models.WeeklySchedule, error)
}

type availabilityRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ListActiveByType(ctx context.Context, roomType string) ([]models.Room, error)
}

type availabilityAppointmentReader interface {
	ListByDoctorAndDate(ctx context.Context, doctorID string, date scheduling.Date) ([]models.Appointment, error)
	ListByRoomAndDate(ctx context.Context, roomID string, date scheduling.Date) ([]models.Appointment, error)
}

// AvailabilityService finds the first free (doctor, slot, room) tuple for a
// date and specialty. The search is a deliberate greedy first-fit over
// stable orderings: doctors by id, slots by time, rooms by number. It works
// on a plain read snapshot; the booking transaction re-validates whatever
// the caller decides to book.
type AvailabilityService struct {
	specialties  availabilitySpecialtyReader
	doctors      availabilityDoctorReader
	schedules    availabilityScheduleReader
	rooms        availabilityRoomReader
	appointments availabilityAppointmentReader
	logger       *zap.Logger
	now          func() time.Time
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(
	specialties availabilitySpecialtyReader,
	doctors availabilityDoctorReader,
	schedules availabilityScheduleReader,
	rooms availabilityRoomReader,
	appointments availabilityAppointmentReader,
	logger *zap.Logger,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		specialties:  specialties,
		doctors:      doctors,
		schedules:    schedules,
		rooms:        rooms,
		appointments: appointments,
		logger:       logger,
		now:          time.Now,
	}
}

// FindSlot returns the first valid slot for the date and specialty, or
// ErrNoAvailability when every doctor, slot and room combination is taken.
func (s *AvailabilityService) FindSlot(ctx context.Context, date scheduling.Date, specialtyID string) (*models.Slot, error) {
	specialty, err := s.specialties.FindByID(ctx, specialtyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "specialty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load specialty")
	}

	doctors, err := s.doctors.ListBySpecialty(ctx, specialtyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}

	duration := specialty.DurationMinutes
	weekday := date.Weekday()

	for _, doctor := range doctors {
		workday, err := s.schedules.FindForDay(ctx, doctor.ID, weekday)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
		}
		if workday == nil {
			continue
		}

		existing, err := s.appointments.ListByDoctorAndDate(ctx, doctor.ID, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
		}
		booked := toBookedSlots(existing)

		cursor := workday.Start
		if date.Equal(scheduling.DateOf(s.now())) {
			// Never offer slots already in the past today.
			cursor = scheduling.AlignAfter(cursor, scheduling.ClockOf(s.now()), duration)
		}

		for cursor.Add(duration) <= workday.End {
			end := cursor.Add(duration)

			if conflict, ok := scheduling.FirstConflict(cursor, end, booked); ok {
				// Jump past the busy stretch instead of probing minute by minute.
				next := conflict.End
				if next <= cursor {
					next = cursor.Add(duration)
				}
				cursor = next
				continue
			}

			room, err := s.resolveRoom(ctx, doctor, date, cursor, end)
			if err != nil {
				return nil, err
			}
			if room != nil {
				return &models.Slot{
					DoctorID:   doctor.ID,
					DoctorName: doctor.FullName,
					Date:       date,
					Start:      cursor,
					End:        end,
					RoomID:     room.ID,
					RoomNumber: room.Number,
				}, nil
			}

			cursor = end
		}
	}

	s.logger.Info("no availability",
		zap.String("specialty_id", specialtyID),
		zap.String("date", date.String()),
	)
	return nil, appErrors.Clone(appErrors.ErrNoAvailability, fmt.Sprintf("no availability for %s on %s", specialty.Name, date))
}

// resolveRoom picks the room for a candidate slot: internal doctors always
// use their fixed room, external doctors get the first free active
// external room. A nil room (without error) means this slot has no room
// and the caller keeps walking.
func (s *AvailabilityService) resolveRoom(ctx context.Context, doctor models.Doctor, date scheduling.Date, start, end scheduling.ClockTime) (*models.Room, error) {
	if doctor.Type == scheduling.TypeInternal {
		if doctor.RoomID == nil {
			// Broken internal doctor record; skip rather than offer a roomless slot.
			s.logger.Warn("internal doctor without fixed room", zap.String("doctor_id", doctor.ID))
			return nil, nil
		}
		room, err := s.rooms.FindByID(ctx, *doctor.RoomID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
		return room, nil
	}

	rooms, err := s.rooms.ListActiveByType(ctx, scheduling.TypeExternal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list external rooms")
	}
	for i := range rooms {
		existing, err := s.appointments.ListByRoomAndDate(ctx, rooms[i].ID, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room appointments")
		}
		if !scheduling.HasConflict(start, end, toBookedSlots(existing)) {
			return &rooms[i], nil
		}
	}
	return nil, nil
}

func toBookedSlots(appts []models.Appointment) []scheduling.BookedSlot {
	slots := make([]scheduling.BookedSlot, 0, len(appts))
	for _, a := range appts {
		slots = append(slots, scheduling.BookedSlot{ID: a.ID, Start: a.Start, End: a.End})
	}
	return slots
}
