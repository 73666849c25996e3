package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

type unavailabilityRepository interface {
	ListByVolunteer(ctx context.Context, volunteerID string) ([]models.UnavailabilityDetail, error)
	Create(ctx context.Context, item *models.Unavailability) error
	Delete(ctx context.Context, id, volunteerID string) error
}

type unavailabilityEventStore interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// UnavailabilityService lets volunteers declare themselves out for events.
// Declarations are self-service and only for dates that have not passed.
type UnavailabilityService struct {
	repo      unavailabilityRepository
	events    unavailabilityEventStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUnavailabilityService constructs an UnavailabilityService.
func NewUnavailabilityService(repo unavailabilityRepository, events unavailabilityEventStore, validate *validator.Validate, logger *zap.Logger) *UnavailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnavailabilityService{repo: repo, events: events, validator: validate, logger: logger, now: time.Now}
}

// ListMine returns the caller's declarations, newest event first.
func (s *UnavailabilityService) ListMine(ctx context.Context, volunteerID string) ([]models.UnavailabilityDetail, error) {
	items, err := s.repo.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list unavailabilities")
	}
	return items, nil
}

// Declare marks the caller unavailable for one event. Declaring twice for the
// same event is a no-op.
func (s *UnavailabilityService) Declare(ctx context.Context, volunteerID string, req dto.CreateUnavailabilityRequest) (*models.Unavailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unavailability payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load event")
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	if event.Date.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot declare unavailability for a past event")
	}

	item := &models.Unavailability{VolunteerID: volunteerID, EventID: event.ID}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to save unavailability")
	}
	return item, nil
}

// Remove withdraws one of the caller's declarations.
func (s *UnavailabilityService) Remove(ctx context.Context, id, volunteerID string) error {
	if err := s.repo.Delete(ctx, id, volunteerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "unavailability not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to remove unavailability")
	}
	return nil
}
