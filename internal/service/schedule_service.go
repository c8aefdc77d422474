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
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type scheduleRepository interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySchedule, error)
	FindByID(ctx context.Context, id string) (*models.WeeklySchedule, error)
	ExistsForDay(ctx context.Context, doctorID string, weekday int, excludeID string) (bool, error)
	Create(ctx context.Context, schedule *models.WeeklySchedule) error
	Update(ctx context.Context, schedule *models.WeeklySchedule) error
	Delete(ctx context.Context, id string) error
}

type scheduleDoctorReader interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

// ScheduleService manages weekly availability windows, one per doctor and
// weekday.
type ScheduleService struct {
	repo     scheduleRepository
	doctors  scheduleDoctorReader
	validate *validator.Validate
	logger   *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, doctors scheduleDoctorReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, doctors: doctors, validate: validate, logger: logger}
}

// ListByDoctor returns a doctor's availability windows ordered by weekday.
func (s *ScheduleService) ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySchedule, error) {
	schedules, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, nil
}

// Create adds an availability window for a weekday the doctor has none yet.
func (s *ScheduleService) Create(ctx context.Context, req dto.ScheduleRequest) (*models.WeeklySchedule, error) {
	schedule, err := s.buildSchedule(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.logger.Info("schedule created",
		zap.String("schedule_id", schedule.ID),
		zap.String("doctor_id", schedule.DoctorID),
		zap.Int("weekday", schedule.Weekday),
	)
	return schedule, nil
}

// Update saves changes to an availability window.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.ScheduleRequest) (*models.WeeklySchedule, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	schedule, err := s.buildSchedule(ctx, req, id)
	if err != nil {
		return nil, err
	}
	schedule.ID = id
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return schedule, nil
}

// Delete removes an availability window. Existing appointments stay booked;
// they only block new ones.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.logger.Info("schedule deleted", zap.String("schedule_id", id))
	return nil
}

func (s *ScheduleService) get(ctx context.Context, id string) (*models.WeeklySchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

func (s *ScheduleService) buildSchedule(ctx context.Context, req dto.ScheduleRequest, excludeID string) (*models.WeeklySchedule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	if _, err := s.doctors.FindByID(ctx, req.DoctorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}

	start, err := scheduling.ParseClock(req.Start)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := scheduling.ParseClock(req.End)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	exists, err := s.repo.ExistsForDay(ctx, req.DoctorID, req.Weekday, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule day")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("doctor already has a schedule on %s", models.WeekdayNames[req.Weekday]))
	}

	return &models.WeeklySchedule{
		DoctorID: req.DoctorID,
		Weekday:  req.Weekday,
		Start:    start,
		End:      end,
	}, nil
}
