package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

type scheduleEventStore interface {
	ListByMonth(ctx context.Context, month, year int) ([]models.Event, error)
	PublishMonth(ctx context.Context, month, year int) error
}

type scheduleDetailStore interface {
	ListDetailsByMonth(ctx context.Context, month, year int) ([]models.ScheduleDetail, error)
}

// ScheduleService serves the assembled month view and handles publication.
// Month views are cached; any write that touches a month goes through
// InvalidateMonth.
type ScheduleService struct {
	events    scheduleEventStore
	schedules scheduleDetailStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService wires the roster view dependencies.
func NewScheduleService(
	events scheduleEventStore,
	schedules scheduleDetailStore,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{events: events, schedules: schedules, cache: cache, validator: validate, logger: logger}
}

func monthCacheKey(month, year int) string {
	return fmt.Sprintf("roster:%04d-%02d", year, month)
}

// MonthView returns the month's events with their assignments grouped per day.
func (s *ScheduleService) MonthView(ctx context.Context, month, year int) (*dto.RosterMonthResponse, bool, error) {
	if month < 1 || month > 12 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	key := monthCacheKey(month, year)
	var cached dto.RosterMonthResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	events, err := s.events.ListByMonth(ctx, month, year)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list events")
	}
	details, err := s.schedules.ListDetailsByMonth(ctx, month, year)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list assignments")
	}

	byEvent := make(map[string][]models.ScheduleDetail, len(events))
	for _, detail := range details {
		byEvent[detail.EventID] = append(byEvent[detail.EventID], detail)
	}

	days := make([]dto.RosterDay, 0, len(events))
	for _, event := range events {
		assignments := byEvent[event.ID]
		if assignments == nil {
			assignments = []models.ScheduleDetail{}
		}
		days = append(days, dto.RosterDay{Event: event, Assignments: assignments})
	}

	resp := &dto.RosterMonthResponse{Month: month, Year: year, Days: days}
	_ = s.cache.Set(ctx, key, resp, 0)
	return resp, false, nil
}

// Publish flips the month to published so volunteers can see it.
func (s *ScheduleService) Publish(ctx context.Context, req dto.PublishRosterRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish payload")
	}
	if err := s.events.PublishMonth(ctx, req.Month, req.Year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "month has no events")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to publish month")
	}
	s.InvalidateMonth(ctx, req.Month, req.Year)
	s.logger.Info("roster published", zap.Int("month", req.Month), zap.Int("year", req.Year))
	return nil
}

// InvalidateMonth drops the cached view for the month. Failures are logged
// inside the cache service and otherwise ignored.
func (s *ScheduleService) InvalidateMonth(ctx context.Context, month, year int) {
	_ = s.cache.Invalidate(ctx, monthCacheKey(month, year))
}
