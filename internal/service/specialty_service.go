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

type specialtyRepository interface {
	List(ctx context.Context) ([]models.Specialty, error)
	FindByID(ctx context.Context, id string) (*models.Specialty, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	InUse(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, specialty *models.Specialty) error
	Update(ctx context.Context, specialty *models.Specialty) error
	Delete(ctx context.Context, id string) error
}

// SpecialtyService manages the specialty catalog.
type SpecialtyService struct {
	repo     specialtyRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSpecialtyService instantiates SpecialtyService.
func NewSpecialtyService(repo specialtyRepository, validate *validator.Validate, logger *zap.Logger) *SpecialtyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpecialtyService{repo: repo, validate: validate, logger: logger}
}

// List returns every specialty ordered by name.
func (s *SpecialtyService) List(ctx context.Context) ([]models.Specialty, error) {
	specialties, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list specialties")
	}
	return specialties, nil
}

// Get loads one specialty.
func (s *SpecialtyService) Get(ctx context.Context, id string) (*models.Specialty, error) {
	specialty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "specialty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load specialty")
	}
	return specialty, nil
}

// Create adds a specialty after checking name uniqueness and the duration
// whitelist.
func (s *SpecialtyService) Create(ctx context.Context, req dto.SpecialtyRequest) (*models.Specialty, error) {
	if err := s.checkRequest(ctx, req, ""); err != nil {
		return nil, err
	}
	specialty := &models.Specialty{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Description:     req.Description,
	}
	if err := s.repo.Create(ctx, specialty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create specialty")
	}
	s.logger.Info("specialty created", zap.String("specialty_id", specialty.ID), zap.String("name", specialty.Name))
	return specialty, nil
}

// Update saves specialty changes. The duration is frozen once appointments
// or doctors reference the specialty, otherwise historical slot sizing would
// silently change.
func (s *SpecialtyService) Update(ctx context.Context, id string, req dto.SpecialtyRequest) (*models.Specialty, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRequest(ctx, req, id); err != nil {
		return nil, err
	}

	if req.DurationMinutes != current.DurationMinutes {
		inUse, err := s.repo.InUse(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check specialty usage")
		}
		if inUse {
			return nil, appErrors.Clone(appErrors.ErrConflict, "cannot change duration of a specialty that is in use")
		}
	}

	current.Name = req.Name
	current.DurationMinutes = req.DurationMinutes
	current.Description = req.Description
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update specialty")
	}
	return current, nil
}

// Delete removes an unused specialty.
func (s *SpecialtyService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.InUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check specialty usage")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrConflict, "specialty is referenced by doctors or appointments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete specialty")
	}
	s.logger.Info("specialty deleted", zap.String("specialty_id", id))
	return nil
}

func (s *SpecialtyService) checkRequest(ctx context.Context, req dto.SpecialtyRequest, excludeID string) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid specialty payload")
	}
	if !models.ValidDuration(req.DurationMinutes) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duration must be one of %v minutes", models.AllowedDurations))
	}
	taken, err := s.repo.ExistsByName(ctx, req.Name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check specialty name")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("specialty %q already exists", req.Name))
	}
	return nil
}
