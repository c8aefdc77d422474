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
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ExistsByNumber(ctx context.Context, number int, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
}

type roomDoctorReader interface {
	FindByRoom(ctx context.Context, roomID, excludeID string) (*models.Doctor, error)
}

// RoomService manages the consulting room catalog. Deleting a room detaches
// its appointments, which then surface on the board as orphans for repair.
type RoomService struct {
	repo     roomRepository
	doctors  roomDoctorReader
	cache    boardInvalidator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRoomService instantiates RoomService.
func NewRoomService(repo roomRepository, doctors roomDoctorReader, cache boardInvalidator, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, doctors: doctors, cache: cache, validate: validate, logger: logger}
}

// List returns every room ordered by number.
func (s *RoomService) List(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// Get loads one room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create adds a room. Rooms are active unless explicitly created inactive.
func (s *RoomService) Create(ctx context.Context, req dto.RoomRequest) (*models.Room, error) {
	if err := s.checkRequest(ctx, req, ""); err != nil {
		return nil, err
	}
	room := &models.Room{
		Number:      req.Number,
		Type:        req.Type,
		Active:      true,
		Description: req.Description,
	}
	if req.Active != nil {
		room.Active = *req.Active
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	s.logger.Info("room created", zap.String("room_id", room.ID), zap.Int("number", room.Number))
	return room, nil
}

// Update saves room changes. The type cannot change while an internal doctor
// holds the room as their fixed assignment.
func (s *RoomService) Update(ctx context.Context, id string, req dto.RoomRequest) (*models.Room, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRequest(ctx, req, id); err != nil {
		return nil, err
	}

	if req.Type != current.Type {
		holder, err := s.doctors.FindByRoom(ctx, id, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room assignment")
		}
		if holder != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room is the fixed room of doctor %s", holder.FullName))
		}
	}

	current.Number = req.Number
	current.Type = req.Type
	current.Description = req.Description
	if req.Active != nil {
		current.Active = *req.Active
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}

	s.invalidateBoard(ctx)
	return current, nil
}

// Delete removes a room unless it is a doctor's fixed assignment. Its
// appointments keep existing without a room and show up as orphans.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	holder, err := s.doctors.FindByRoom(ctx, id, "")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room assignment")
	}
	if holder != nil {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room is the fixed room of doctor %s", holder.FullName))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}

	s.invalidateBoard(ctx)
	s.logger.Info("room deleted", zap.String("room_id", id))
	return nil
}

func (s *RoomService) checkRequest(ctx context.Context, req dto.RoomRequest, excludeID string) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	taken, err := s.repo.ExistsByNumber(ctx, req.Number, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room number")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room number %d already exists", req.Number))
	}
	return nil
}

func (s *RoomService) invalidateBoard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, boardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate board cache", zap.Error(err))
	}
}
