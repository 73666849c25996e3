package service

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/pkg/config"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

type calendarEventStore interface {
	InsertIfAbsent(ctx context.Context, event *models.Event) (bool, error)
	ListByMonth(ctx context.Context, month, year int) ([]models.Event, error)
}

var weekdayCodes = map[string]rrule.Weekday{
	"MO": rrule.MO,
	"TU": rrule.TU,
	"WE": rrule.WE,
	"TH": rrule.TH,
	"FR": rrule.FR,
	"SA": rrule.SA,
	"SU": rrule.SU,
}

// CalendarService materializes the recurring service calendar. Events recur
// weekly on the configured weekdays and are created at most once per date.
type CalendarService struct {
	events   calendarEventStore
	weekdays []rrule.Weekday
	logger   *zap.Logger
}

// NewCalendarService wires the calendar dependencies. Unknown weekday codes in
// the configuration are rejected up front.
func NewCalendarService(events calendarEventStore, cfg config.SchedulerConfig, logger *zap.Logger) (*CalendarService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	codes := cfg.Weekdays
	if len(codes) == 0 {
		codes = []string{"TU", "SA", "SU"}
	}
	weekdays := make([]rrule.Weekday, 0, len(codes))
	for _, code := range codes {
		day, ok := weekdayCodes[code]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday code %q", code))
		}
		weekdays = append(weekdays, day)
	}
	return &CalendarService{events: events, weekdays: weekdays, logger: logger}, nil
}

// EnsureEvents creates any missing events for the month and returns how many
// were created. Existing dates are left untouched, so repeated calls converge
// on the same calendar.
func (s *CalendarService) EnsureEvents(ctx context.Context, month, year int) (int, error) {
	occurrences, err := s.monthOccurrences(month, year)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, date := range occurrences {
		eventType, ok := models.EventTypeForWeekday(date.Weekday())
		if !ok {
			continue
		}
		inserted, err := s.events.InsertIfAbsent(ctx, &models.Event{
			Date:  date,
			Type:  eventType,
			Month: month,
			Year:  year,
		})
		if err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create event")
		}
		if inserted {
			created++
		}
	}

	s.logger.Info("calendar ensured",
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int("occurrences", len(occurrences)),
		zap.Int("created", created))
	return created, nil
}

// ListMonth returns the month's events in chronological order.
func (s *CalendarService) ListMonth(ctx context.Context, month, year int) ([]models.Event, error) {
	events, err := s.events.ListByMonth(ctx, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list events")
	}
	return events, nil
}

func (s *CalendarService) monthOccurrences(month, year int) ([]time.Time, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: s.weekdays,
		Dtstart:   start,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build recurrence rule")
	}
	return rule.Between(start, end, true), nil
}
