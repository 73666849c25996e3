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
	"github.com/ieab-app/escala-api/pkg/config"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

type substitutionScheduleStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error)
	ListVolunteerIDsByEvent(ctx context.Context, eventID string) ([]string, error)
	ListVolunteerIDsByEventRole(ctx context.Context, eventID string, role models.Role) ([]string, error)
	ListVolunteerIDsByDate(ctx context.Context, date time.Time) ([]string, error)
	CountsByVolunteer(ctx context.Context, month, year int) (map[string]int, error)
	UpdateVolunteer(ctx context.Context, id, volunteerID string) error
}

type substitutionPairStore interface {
	ListWindow(ctx context.Context, month, year, months int) ([]models.PairHistory, error)
}

type substitutionVolunteerStore interface {
	ListActiveByRole(ctx context.Context, role models.Role) ([]models.Volunteer, error)
}

type substitutionAbsenceStore interface {
	ListVolunteerIDsByEvent(ctx context.Context, eventID string) ([]string, error)
}

// SubstitutionService finds replacements for individual assignments after the
// roster is out. Candidates pass the same checks the generator applies; the
// swap itself is trusted, so an admin can force an exception the engine would
// not propose.
type SubstitutionService struct {
	schedules  substitutionScheduleStore
	volunteers substitutionVolunteerStore
	absences   substitutionAbsenceStore
	pairs      substitutionPairStore
	cache      rosterCacheInvalidator
	cfg        config.SchedulerConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSubstitutionService wires the substitution dependencies.
func NewSubstitutionService(
	schedules substitutionScheduleStore,
	volunteers substitutionVolunteerStore,
	absences substitutionAbsenceStore,
	pairs substitutionPairStore,
	cache rosterCacheInvalidator,
	cfg config.SchedulerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SubstitutionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionService{
		schedules:  schedules,
		volunteers: volunteers,
		absences:   absences,
		pairs:      pairs,
		cache:      cache,
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// ListSubstitutes returns valid replacements for the assignment, least loaded
// first.
func (s *SubstitutionService) ListSubstitutes(ctx context.Context, scheduleID string) ([]dto.SubstituteCandidate, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}

	detail, err := s.schedules.FindDetailByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load schedule")
	}

	candidates, err := s.volunteers.ListActiveByRole(ctx, detail.AssignedRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load volunteers")
	}

	unavailable, err := s.idSet(s.absences.ListVolunteerIDsByEvent(ctx, detail.EventID))
	if err != nil {
		return nil, err
	}
	onEvent, err := s.idSet(s.schedules.ListVolunteerIDsByEvent(ctx, detail.EventID))
	if err != nil {
		return nil, err
	}
	onPrevDay, err := s.idSet(s.schedules.ListVolunteerIDsByDate(ctx, detail.EventDate.AddDate(0, 0, -1)))
	if err != nil {
		return nil, err
	}
	counts, err := s.schedules.CountsByVolunteer(ctx, detail.Month, detail.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load month counts")
	}

	ec := eligibilityContext{
		Role:        detail.AssignedRole,
		Room:        detail.AssignedRoom,
		Unavailable: unavailable,
		OnEvent:     onEvent,
		OnPrevDay:   onPrevDay,
	}
	if detail.EventType == models.EventSabado && detail.AssignedRole == models.RoleProfessor {
		if err := s.loadPairContext(ctx, detail, &ec); err != nil {
			return nil, err
		}
	}
	eligible := eligibleVolunteers(candidates, ec, false)

	ranked := rankByLoad(eligible, counts)
	result := make([]dto.SubstituteCandidate, 0, len(ranked))
	for _, v := range ranked {
		if v.ID == detail.VolunteerID {
			continue
		}
		result = append(result, dto.SubstituteCandidate{ID: v.ID, Name: v.Name, Count: counts[v.ID]})
	}
	return result, nil
}

// loadPairContext seeds the pair exclusion for an EBD professor row: the
// replacement will co-teach with whoever keeps the other seat, so candidates
// repeating a recorded pair with them are ruled out, same as in generation.
// The outgoing professor does not count as a seat.
func (s *SubstitutionService) loadPairContext(ctx context.Context, detail *models.ScheduleDetail, ec *eligibilityContext) error {
	seated, err := s.schedules.ListVolunteerIDsByEventRole(ctx, detail.EventID, models.RoleProfessor)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load seated professors")
	}
	for _, id := range seated {
		if id != detail.VolunteerID {
			ec.SeatedProfessors = append(ec.SeatedProfessors, id)
		}
	}
	if len(ec.SeatedProfessors) == 0 {
		return nil
	}

	history, err := s.pairs.ListWindow(ctx, detail.Month, detail.Year, s.cfg.PairLookbackMonths)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load pair history")
	}
	ec.Pairs = make(map[models.PairKey]bool, len(history))
	for _, pair := range history {
		ec.Pairs[models.NewPairKey(pair.ProfessorAID, pair.ProfessorBID)] = true
	}
	return nil
}

// Swap replaces the volunteer on the assignment. The new volunteer is taken
// as-is; eligibility was the admin's call.
func (s *SubstitutionService) Swap(ctx context.Context, scheduleID string, req dto.SwapRequest) error {
	if scheduleID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap payload")
	}

	detail, err := s.schedules.FindDetailByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load schedule")
	}

	if err := s.schedules.UpdateVolunteer(ctx, scheduleID, req.VolunteerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to swap volunteer")
	}

	if s.cache != nil {
		s.cache.InvalidateMonth(ctx, detail.Month, detail.Year)
	}
	s.logger.Info("assignment swapped",
		zap.String("schedule_id", scheduleID),
		zap.String("from", detail.VolunteerID),
		zap.String("to", req.VolunteerID))
	return nil
}

func (s *SubstitutionService) idSet(ids []string, err error) (map[string]bool, error) {
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load assignments")
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
