package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/internal/repository"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

type volunteerRepository interface {
	List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error)
	FindByID(ctx context.Context, id string) (*models.Volunteer, error)
	FindByPhone(ctx context.Context, phone string) (*models.Volunteer, error)
	Create(ctx context.Context, volunteer *models.Volunteer) error
	Update(ctx context.Context, volunteer *models.Volunteer) error
	UpdatePINHash(ctx context.Context, id, pinHash string) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

var nonDigits = regexp.MustCompile(`\D`)

// VolunteerService manages the volunteer roster records.
type VolunteerService struct {
	repo      volunteerRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVolunteerService constructs a VolunteerService.
func NewVolunteerService(repo volunteerRepository, validate *validator.Validate, logger *zap.Logger) *VolunteerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolunteerService{repo: repo, validator: validate, logger: logger}
}

// List returns volunteers matching the query with the total count.
func (s *VolunteerService) List(ctx context.Context, query dto.VolunteerListQuery) ([]models.Volunteer, int, error) {
	filter := models.VolunteerFilter{
		Search:   query.Search,
		Role:     models.Role(query.Role),
		Active:   query.Active,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Role != "" && !filter.Role.Valid() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list volunteers")
	}
	return list, total, nil
}

// Get fetches one volunteer.
func (s *VolunteerService) Get(ctx context.Context, id string) (*models.Volunteer, error) {
	volunteer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load volunteer")
	}
	return volunteer, nil
}

// Create registers a volunteer. Phone numbers are stored digits-only so login
// lookups are exact.
func (s *VolunteerService) Create(ctx context.Context, req dto.CreateVolunteerRequest) (*models.Volunteer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid volunteer payload")
	}

	phone := normalizePhone(req.Phone)
	if existing, err := s.repo.FindByPhone(ctx, phone); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "phone already registered")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check phone")
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash PIN")
	}

	volunteer := &models.Volunteer{
		Phone:   phone,
		PINHash: string(pinHash),
		Name:    req.Name,
		Role:    models.Role(req.Role),
		Active:  true,
	}
	if req.Room != nil {
		room := models.Room(*req.Room)
		volunteer.Room = &room
	}

	if err := s.repo.Create(ctx, volunteer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create volunteer")
	}
	s.logger.Info("volunteer created", zap.String("volunteer_id", volunteer.ID), zap.String("role", string(volunteer.Role)))
	return volunteer, nil
}

// Update applies a partial edit to an existing volunteer.
func (s *VolunteerService) Update(ctx context.Context, id string, req dto.UpdateVolunteerRequest) (*models.Volunteer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid volunteer payload")
	}

	volunteer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Phone != nil {
		volunteer.Phone = normalizePhone(*req.Phone)
	}
	if req.Name != nil {
		volunteer.Name = *req.Name
	}
	if req.Role != nil {
		volunteer.Role = models.Role(*req.Role)
	}
	if req.Room != nil {
		if *req.Room == "" {
			volunteer.Room = nil
		} else {
			room := models.Room(*req.Room)
			volunteer.Room = &room
		}
	}
	if req.Active != nil {
		volunteer.Active = *req.Active
	}

	if err := s.repo.Update(ctx, volunteer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update volunteer")
	}
	return volunteer, nil
}

// ResetPIN sets a volunteer's PIN without knowing the old one. Admin only.
func (s *VolunteerService) ResetPIN(ctx context.Context, id string, req dto.ResetPINRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid PIN payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash PIN")
	}
	if err := s.repo.UpdatePINHash(ctx, id, string(pinHash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to reset PIN")
	}
	return nil
}

// Delete removes a volunteer. When schedule or unavailability history still
// references the row the record is deactivated instead, preserving past
// rosters.
func (s *VolunteerService) Delete(ctx context.Context, id string) (*dto.DeleteVolunteerResult, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	err := s.repo.Delete(ctx, id)
	if err == nil {
		return &dto.DeleteVolunteerResult{Deleted: true}, nil
	}
	if errors.Is(err, repository.ErrForeignKeyViolation) {
		if err := s.repo.Deactivate(ctx, id); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to deactivate volunteer")
		}
		s.logger.Info("volunteer deactivated instead of deleted", zap.String("volunteer_id", id))
		return &dto.DeleteVolunteerResult{Deactivated: true}, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
	}
	return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete volunteer")
}

func normalizePhone(raw string) string {
	return nonDigits.ReplaceAllString(raw, "")
}
