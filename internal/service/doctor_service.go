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

type doctorRepository interface {
	List(ctx context.Context) ([]models.DoctorDetail, error)
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByRoom(ctx context.Context, roomID, excludeID string) (*models.Doctor, error)
	Create(ctx context.Context, doctor *models.Doctor) error
	Update(ctx context.Context, doctor *models.Doctor) error
	Delete(ctx context.Context, id string) error
}

type doctorSpecialtyReader interface {
	FindByID(ctx context.Context, id string) (*models.Specialty, error)
}

type doctorRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// DoctorService manages doctor profiles and enforces the room assignment
// rules: an internal doctor holds exactly one internal room exclusively, an
// external doctor holds none.
type DoctorService struct {
	repo        doctorRepository
	specialties doctorSpecialtyReader
	rooms       doctorRoomReader
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewDoctorService instantiates DoctorService.
func NewDoctorService(repo doctorRepository, specialties doctorSpecialtyReader, rooms doctorRoomReader, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{repo: repo, specialties: specialties, rooms: rooms, validate: validate, logger: logger}
}

// List returns every doctor with specialty and room display fields.
func (s *DoctorService) List(ctx context.Context) ([]models.DoctorDetail, error) {
	doctors, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}
	return doctors, nil
}

// Get loads one doctor.
func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

// Create registers a doctor profile.
func (s *DoctorService) Create(ctx context.Context, req dto.DoctorRequest) (*models.Doctor, error) {
	if err := s.checkRequest(ctx, req, ""); err != nil {
		return nil, err
	}
	doctor := &models.Doctor{
		UserID:      req.UserID,
		FullName:    req.FullName,
		SpecialtyID: req.SpecialtyID,
		Type:        req.Type,
		RoomID:      req.RoomID,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create doctor")
	}
	s.logger.Info("doctor created", zap.String("doctor_id", doctor.ID), zap.String("type", doctor.Type))
	return doctor, nil
}

// Update saves doctor changes under the same room assignment rules.
func (s *DoctorService) Update(ctx context.Context, id string, req dto.DoctorRequest) (*models.Doctor, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRequest(ctx, req, id); err != nil {
		return nil, err
	}

	current.UserID = req.UserID
	current.FullName = req.FullName
	current.SpecialtyID = req.SpecialtyID
	current.Type = req.Type
	current.RoomID = req.RoomID
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update doctor")
	}
	return current, nil
}

// Delete removes a doctor profile along with their schedules and
// appointments.
func (s *DoctorService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete doctor")
	}
	s.logger.Info("doctor deleted", zap.String("doctor_id", id))
	return nil
}

// checkRequest enforces the type and room invariants before any write.
func (s *DoctorService) checkRequest(ctx context.Context, req dto.DoctorRequest, excludeID string) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}

	if req.SpecialtyID != nil {
		if _, err := s.specialties.FindByID(ctx, *req.SpecialtyID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "specialty not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load specialty")
		}
	}

	switch req.Type {
	case scheduling.TypeInternal:
		if req.RoomID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "an internal doctor requires a fixed room")
		}
		room, err := s.rooms.FindByID(ctx, *req.RoomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "room not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
		if room.Type != scheduling.TypeInternal {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %d is not an internal room", room.Number))
		}
		holder, err := s.repo.FindByRoom(ctx, room.ID, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room assignment")
		}
		if holder != nil {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room %d is already assigned to doctor %s", room.Number, holder.FullName))
		}
	case scheduling.TypeExternal:
		if req.RoomID != nil {
			return appErrors.Clone(appErrors.ErrValidation, "an external doctor cannot have a fixed room")
		}
	}
	return nil
}
