package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medagenda/citas-api/internal/dto"
	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/repository"
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
	"github.com/medagenda/citas-api/pkg/export"
)

const boardCachePattern = "board:*"

type appointmentRepository interface {
	Booking(ctx context.Context, fn func(tx repository.BookingView) error) error
	FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error)
	ListDetailsByDate(ctx context.Context, date scheduling.Date) ([]models.AppointmentDetail, error)
	ListDetailsByDoctorAndDate(ctx context.Context, doctorID string, date scheduling.Date) ([]models.AppointmentDetail, error)
	ListDetailsByPatient(ctx context.Context, patientID string, limit, offset int) ([]models.AppointmentDetail, int, error)
	ListOrphans(ctx context.Context, date *scheduling.Date) ([]models.AppointmentDetail, error)
	DeleteOrphans(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type appointmentDoctorReader interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

type boardInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AppointmentService owns the booking lifecycle: create, reschedule, cancel,
// and the repair and purge paths for orphaned appointments. Every write runs
// inside one transaction that locks the doctor and room rows before
// validating, so two concurrent requests for the same slot cannot both pass.
type AppointmentService struct {
	repo     appointmentRepository
	doctors  appointmentDoctorReader
	cache    boardInvalidator
	exporter *export.PDFExporter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAppointmentService instantiates AppointmentService. cache may be nil
// when the board cache is disabled.
func NewAppointmentService(
	repo appointmentRepository,
	doctors appointmentDoctorReader,
	cache boardInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		repo:     repo,
		doctors:  doctors,
		cache:    cache,
		exporter: export.NewPDFExporter(),
		validate: validate,
		logger:   logger,
	}
}

// Create books an appointment after full validation under row locks. The
// specialty is denormalized from the doctor at booking time so the record
// keeps its duration rule even if the doctor changes specialty later.
func (s *AppointmentService) Create(ctx context.Context, req dto.CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	start, err := scheduling.ParseClock(req.Start)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := scheduling.ParseClock(req.End)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}

	var created *models.Appointment
	err = s.repo.Booking(ctx, func(tx repository.BookingView) error {
		doctor, err := tx.LockDoctor(ctx, req.DoctorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock doctor")
		}
		if doctor.SpecialtyID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "doctor has no specialty assigned")
		}

		appt := &models.Appointment{
			PatientID:   req.PatientID,
			DoctorID:    doctor.ID,
			SpecialtyID: *doctor.SpecialtyID,
			Date:        date,
			Start:       start,
			End:         end,
		}
		if req.RoomID != "" {
			appt.RoomID = &req.RoomID
		}

		if err := s.validateBooking(ctx, tx, appt, doctor); err != nil {
			return err
		}
		if err := tx.Insert(ctx, appt); err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, s.mapBookingError(err)
	}

	s.invalidateBoard(ctx)
	s.logger.Info("appointment created",
		zap.String("appointment_id", created.ID),
		zap.String("doctor_id", created.DoctorID),
		zap.String("date", created.Date.String()),
		zap.String("start", created.Start.String()),
	)
	return created, nil
}

// Reschedule patches date, start, end or room and revalidates the whole
// appointment, excluding its own row from the overlap scans. A reschedule
// that changes nothing still revalidates and succeeds.
func (s *AppointmentService) Reschedule(ctx context.Context, id string, req dto.RescheduleAppointmentRequest) (*models.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}

	var updated *models.Appointment
	err := s.repo.Booking(ctx, func(tx repository.BookingView) error {
		appt, err := tx.GetAppointment(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
		}

		if req.Date != nil {
			date, err := scheduling.ParseDate(*req.Date)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
			}
			appt.Date = date
		}
		if req.Start != nil {
			start, err := scheduling.ParseClock(*req.Start)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, "invalid start time")
			}
			appt.Start = start
		}
		if req.End != nil {
			end, err := scheduling.ParseClock(*req.End)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, "invalid end time")
			}
			appt.End = end
		}
		if req.RoomID != nil {
			if *req.RoomID == "" {
				appt.RoomID = nil
			} else {
				appt.RoomID = req.RoomID
			}
		}

		doctor, err := tx.LockDoctor(ctx, appt.DoctorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock doctor")
		}

		if err := s.validateBooking(ctx, tx, appt, doctor); err != nil {
			return err
		}
		if err := tx.Update(ctx, appt); err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, s.mapBookingError(err)
	}

	s.invalidateBoard(ctx)
	s.logger.Info("appointment rescheduled",
		zap.String("appointment_id", updated.ID),
		zap.String("date", updated.Date.String()),
		zap.String("start", updated.Start.String()),
	)
	return updated, nil
}

// RepairOrphan reassigns a room to an orphaned appointment. It is a
// reschedule limited to the room field, so every invariant including room
// overlap and type consistency applies.
func (s *AppointmentService) RepairOrphan(ctx context.Context, id string, req dto.RepairOrphanRequest) (*models.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid repair payload")
	}
	return s.Reschedule(ctx, id, dto.RescheduleAppointmentRequest{RoomID: &req.RoomID})
}

// Cancel hard-deletes an appointment, immediately freeing the slot.
func (s *AppointmentService) Cancel(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel appointment")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}

	s.invalidateBoard(ctx)
	s.logger.Info("appointment cancelled", zap.String("appointment_id", id))
	return nil
}

// PurgeOrphans deletes every orphaned appointment and reports the count.
func (s *AppointmentService) PurgeOrphans(ctx context.Context) (int64, error) {
	purged, err := s.repo.DeleteOrphans(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge orphaned appointments")
	}
	if purged > 0 {
		s.invalidateBoard(ctx)
	}
	s.logger.Info("orphaned appointments purged", zap.Int64("count", purged))
	return purged, nil
}

// Get loads an appointment with joined display fields.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.AppointmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return detail, nil
}

// ListByPatient returns a patient's appointment history, newest first.
func (s *AppointmentService) ListByPatient(ctx context.Context, patientID string, page, limit int) ([]models.AppointmentDetail, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	details, total, err := s.repo.ListDetailsByPatient(ctx, patientID, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return details, models.NewPagination(page, limit, total), nil
}

// ListOrphans returns orphaned appointments, optionally narrowed to a date.
func (s *AppointmentService) ListOrphans(ctx context.Context, date *scheduling.Date) ([]models.AppointmentDetail, error) {
	details, err := s.repo.ListOrphans(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orphaned appointments")
	}
	return details, nil
}

// DayAgendaPDF renders a doctor's appointments for a date as a printable
// agenda.
func (s *AppointmentService) DayAgendaPDF(ctx context.Context, doctorID string, date scheduling.Date) ([]byte, error) {
	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}

	details, err := s.repo.ListDetailsByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}

	data := agendaDataset(details)
	title := fmt.Sprintf("Agenda %s (%s, %s)", doctor.FullName, date.WeekdayName(), date)
	return s.exporter.Render(data, title)
}

// agendaDataset turns appointment rows into the tabular shape shared by the
// PDF and CSV exporters.
func agendaDataset(details []models.AppointmentDetail) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Start", "End", "Patient", "Specialty", "Room"},
	}
	for _, d := range details {
		room := "unassigned"
		if d.RoomNumber != nil {
			room = fmt.Sprintf("%d", *d.RoomNumber)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Start":     d.Start.String(),
			"End":       d.End.String(),
			"Patient":   d.PatientName,
			"Specialty": d.SpecialtyName,
			"Room":      room,
		})
	}
	return data
}

// validateBooking assembles the in-transaction snapshot around the candidate
// and runs the invariant checks. Rows read here are stable for the rest of
// the transaction because the doctor (and room) rows are already locked.
func (s *AppointmentService) validateBooking(ctx context.Context, tx repository.BookingView, appt *models.Appointment, doctor *models.Doctor) error {
	specialty, err := tx.GetSpecialty(ctx, appt.SpecialtyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "specialty not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load specialty")
	}
	snap := scheduling.Snapshot{
		DoctorType:      doctor.Type,
		SpecialtyName:   specialty.Name,
		DurationMinutes: specialty.DurationMinutes,
	}
	if doctor.RoomID != nil {
		snap.DoctorRoomID = *doctor.RoomID
	}

	candidate := scheduling.Candidate{
		ID:          appt.ID,
		DoctorID:    appt.DoctorID,
		SpecialtyID: appt.SpecialtyID,
		Date:        appt.Date,
		Start:       appt.Start,
		End:         appt.End,
	}

	if appt.RoomID != nil {
		room, err := tx.LockRoom(ctx, *appt.RoomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock room")
		}
		if !room.Active {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %d is inactive", room.Number))
		}
		candidate.RoomID = room.ID
		snap.RoomType = room.Type
		snap.RoomNumber = room.Number

		roomDay, err := tx.ListRoomDay(ctx, room.ID, appt.Date)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room appointments")
		}
		snap.RoomBooked = toBookedSlots(roomDay)
	}

	workday, err := tx.GetScheduleForDay(ctx, appt.DoctorID, appt.Date.Weekday())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if workday != nil {
		snap.Workday = &scheduling.Window{Start: workday.Start, End: workday.End}
	}

	doctorDay, err := tx.ListDoctorDay(ctx, appt.DoctorID, appt.Date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}
	snap.DoctorBooked = toBookedSlots(doctorDay)

	if violations := scheduling.Check(candidate, snap); len(violations) > 0 {
		out := make([]appErrors.Violation, 0, len(violations))
		for _, v := range violations {
			out = append(out, appErrors.Violation{Field: v.Field, Code: v.Kind, Message: v.Message})
		}
		return appErrors.WithViolations("appointment violates scheduling constraints", out)
	}
	return nil
}

// mapBookingError translates the unique-constraint backstop into the
// retryable concurrency conflict exposed to callers.
func (s *AppointmentService) mapBookingError(err error) error {
	if errors.Is(err, repository.ErrDuplicateSlot) {
		return appErrors.Clone(appErrors.ErrConcurrencyClash, "")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "booking failed")
}

func (s *AppointmentService) invalidateBoard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, boardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate board cache", zap.Error(err))
	}
}
