package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/pkg/config"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

type rosterCalendar interface {
	EnsureEvents(ctx context.Context, month, year int) (int, error)
	ListMonth(ctx context.Context, month, year int) ([]models.Event, error)
}

type rosterVolunteerStore interface {
	ListActiveByRole(ctx context.Context, role models.Role) ([]models.Volunteer, error)
}

type rosterUnavailabilityStore interface {
	ListByMonth(ctx context.Context, month, year int) ([]models.Unavailability, error)
}

type rosterScheduleStore interface {
	DeleteByMonthTx(ctx context.Context, tx *sqlx.Tx, month, year int) error
	BulkCreateTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error
	ListVolunteerIDsByDate(ctx context.Context, date time.Time) ([]string, error)
}

type rosterPairStore interface {
	ListWindow(ctx context.Context, month, year, months int) ([]models.PairHistory, error)
	BulkCreateTx(ctx context.Context, tx *sqlx.Tx, pairs []models.PairHistory) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type rosterCacheInvalidator interface {
	InvalidateMonth(ctx context.Context, month, year int)
}

// RosterService generates the monthly assignment roster. Regeneration is a
// full replace: the month is rebuilt in memory event by event, then swapped
// into the database in one transaction.
type RosterService struct {
	calendar   rosterCalendar
	volunteers rosterVolunteerStore
	absences   rosterUnavailabilityStore
	schedules  rosterScheduleStore
	pairs      rosterPairStore
	tx         txProvider
	cache      rosterCacheInvalidator
	metrics    *MetricsService
	cfg        config.SchedulerConfig
	validator  *validator.Validate
	logger     *zap.Logger
	months     *monthLocks
}

// NewRosterService wires the generator dependencies.
func NewRosterService(
	calendar rosterCalendar,
	volunteers rosterVolunteerStore,
	absences rosterUnavailabilityStore,
	schedules rosterScheduleStore,
	pairs rosterPairStore,
	tx txProvider,
	cache rosterCacheInvalidator,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PairLookbackMonths < 1 {
		cfg.PairLookbackMonths = 1
	}
	return &RosterService{
		calendar:   calendar,
		volunteers: volunteers,
		absences:   absences,
		schedules:  schedules,
		pairs:      pairs,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
		months:     newMonthLocks(),
	}
}

// EnsureEvents materializes the month's events without touching assignments.
func (s *RosterService) EnsureEvents(ctx context.Context, req dto.EnsureEventsRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ensure events payload")
	}
	return s.calendar.EnsureEvents(ctx, req.Month, req.Year)
}

// Generate rebuilds the month's roster. Slots with no eligible candidate are
// reported in the response logs and left empty; only infrastructure failures
// abort the run.
func (s *RosterService) Generate(ctx context.Context, req dto.GenerateRosterRequest) (*dto.GenerateRosterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster generation payload")
	}

	unlock, ok := s.months.tryAcquire(req.Month, req.Year)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation already in progress for this month")
	}
	defer unlock()

	if _, err := s.calendar.EnsureEvents(ctx, req.Month, req.Year); err != nil {
		return nil, err
	}
	events, err := s.calendar.ListMonth(ctx, req.Month, req.Year)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month has no events")
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}
	unavailByEvent, err := s.loadUnavailability(ctx, req.Month, req.Year)
	if err != nil {
		return nil, err
	}
	pairSet, err := s.loadPairWindow(ctx, req.Month, req.Year)
	if err != nil {
		return nil, err
	}

	state := newRunState(req.Month, req.Year, pairSet)
	for _, event := range events {
		s.fillEvent(ctx, state, event, candidates, unavailByEvent[event.ID])
	}

	if err := s.persist(ctx, state); err != nil {
		s.metrics.RecordGenerationRun(false, len(state.logs))
		return nil, err
	}
	s.metrics.RecordGenerationRun(true, len(state.logs))
	if s.cache != nil {
		s.cache.InvalidateMonth(ctx, req.Month, req.Year)
	}

	s.logger.Info("roster generated",
		zap.Int("month", req.Month),
		zap.Int("year", req.Year),
		zap.Int("events", len(events)),
		zap.Int("assignments", len(state.schedules)),
		zap.Int("unfilled", len(state.logs)))

	return &dto.GenerateRosterResponse{Success: true, Logs: state.logs}, nil
}

func (s *RosterService) loadCandidates(ctx context.Context) (map[models.Role][]models.Volunteer, error) {
	result := make(map[models.Role][]models.Volunteer, 2)
	for _, role := range []models.Role{models.RoleProfessor, models.RoleAuxiliar} {
		list, err := s.volunteers.ListActiveByRole(ctx, role)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load volunteers")
		}
		result[role] = list
	}
	return result, nil
}

func (s *RosterService) loadUnavailability(ctx context.Context, month, year int) (map[string]map[string]bool, error) {
	items, err := s.absences.ListByMonth(ctx, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load unavailabilities")
	}
	result := make(map[string]map[string]bool)
	for _, item := range items {
		if result[item.EventID] == nil {
			result[item.EventID] = make(map[string]bool)
		}
		result[item.EventID][item.VolunteerID] = true
	}
	return result, nil
}

func (s *RosterService) loadPairWindow(ctx context.Context, month, year int) (map[models.PairKey]bool, error) {
	history, err := s.pairs.ListWindow(ctx, month, year, s.cfg.PairLookbackMonths)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load pair history")
	}
	set := make(map[models.PairKey]bool, len(history))
	for _, pair := range history {
		set[models.NewPairKey(pair.ProfessorAID, pair.ProfessorBID)] = true
	}
	return set, nil
}

// fillEvent places volunteers into every opening of one event, updating the
// in-memory run state as it goes so later slots see earlier picks.
func (s *RosterService) fillEvent(
	ctx context.Context,
	state *runState,
	event models.Event,
	candidates map[models.Role][]models.Volunteer,
	unavailable map[string]bool,
) {
	onPrevDay := s.previousDayAssignments(ctx, state, event.Date)

	for _, opening := range slotsForEvent(event.Type) {
		ec := eligibilityContext{
			Role:        opening.Role,
			Room:        opening.Room,
			Unavailable: unavailable,
			OnEvent:     state.onEvent(event.ID),
			OnPrevDay:   onPrevDay,
		}
		if event.Type == models.EventSabado && opening.Role == models.RoleProfessor {
			ec.SeatedProfessors = state.seatedProfessors(event.ID)
			ec.Pairs = state.pairs
		}

		eligible := eligibleVolunteers(candidates[opening.Role], ec, false)
		if len(eligible) == 0 && s.cfg.AllowRoomFallback && opening.Room != models.RoomUnificada {
			eligible = eligibleVolunteers(candidates[opening.Role], ec, true)
		}
		if len(eligible) == 0 {
			entry := fmt.Sprintf("no candidate for %s %s on %s", opening.Room, opening.Role, event.Date.Format("2006-01-02"))
			state.logs = append(state.logs, entry)
			s.logger.Warn("unfilled slot",
				zap.String("date", event.Date.Format("2006-01-02")),
				zap.String("room", string(opening.Room)),
				zap.String("role", string(opening.Role)))
			continue
		}

		pick := rankByLoad(eligible, state.counts)[0]
		state.assign(event, opening, pick, ec.SeatedProfessors)
	}
}

// previousDayAssignments implements the rest rule. Days inside the month
// being generated are answered from the run state, since the stored rows for
// this month are about to be replaced. Days before the month come from the
// database.
func (s *RosterService) previousDayAssignments(ctx context.Context, state *runState, eventDate time.Time) map[string]bool {
	prev := eventDate.AddDate(0, 0, -1)
	if int(prev.Month()) == state.month && prev.Year() == state.year {
		return state.onDate(prev)
	}

	ids, err := s.schedules.ListVolunteerIDsByDate(ctx, prev)
	if err != nil {
		// A failed lookup must not silently relax the rest rule for the
		// whole event; surface it and treat the day as unknown-empty.
		s.logger.Error("rest rule lookup failed", zap.String("date", prev.Format("2006-01-02")), zap.Error(err))
		return nil
	}
	result := make(map[string]bool, len(ids))
	for _, id := range ids {
		result[id] = true
	}
	return result
}

func (s *RosterService) persist(ctx context.Context, state *runState) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.schedules.DeleteByMonthTx(ctx, tx, state.month, state.year); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to clear month")
	}
	if err = s.schedules.BulkCreateTx(ctx, tx, state.schedules); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store roster")
	}
	if err = s.pairs.BulkCreateTx(ctx, tx, state.newPairs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store pair history")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to commit roster")
	}
	return nil
}

// --- Run state ---

const dateKeyLayout = "2006-01-02"

// runState is the in-memory picture of the month under construction. The
// generator reads its own picks from here, never from the database, so the
// pass sees consistent data even though nothing is persisted yet.
type runState struct {
	month     int
	year      int
	counts    map[string]int
	byDate    map[string]map[string]bool
	byEvent   map[string]map[string]bool
	profs     map[string][]string
	pairs     map[models.PairKey]bool
	newPairs  []models.PairHistory
	schedules []models.Schedule
	logs      []string
}

func newRunState(month, year int, pairs map[models.PairKey]bool) *runState {
	if pairs == nil {
		pairs = make(map[models.PairKey]bool)
	}
	return &runState{
		month:   month,
		year:    year,
		counts:  make(map[string]int),
		byDate:  make(map[string]map[string]bool),
		byEvent: make(map[string]map[string]bool),
		profs:   make(map[string][]string),
		pairs:   pairs,
		logs:    []string{},
	}
}

func (st *runState) onEvent(eventID string) map[string]bool {
	if st.byEvent[eventID] == nil {
		st.byEvent[eventID] = make(map[string]bool)
	}
	return st.byEvent[eventID]
}

func (st *runState) onDate(date time.Time) map[string]bool {
	return st.byDate[date.Format(dateKeyLayout)]
}

func (st *runState) seatedProfessors(eventID string) []string {
	return st.profs[eventID]
}

func (st *runState) assign(event models.Event, opening slotOpening, v models.Volunteer, seated []string) {
	st.schedules = append(st.schedules, models.Schedule{
		EventID:      event.ID,
		VolunteerID:  v.ID,
		AssignedRole: opening.Role,
		AssignedRoom: opening.Room,
		Month:        st.month,
		Year:         st.year,
	})
	st.counts[v.ID]++
	st.onEvent(event.ID)[v.ID] = true

	dateKey := event.Date.Format(dateKeyLayout)
	if st.byDate[dateKey] == nil {
		st.byDate[dateKey] = make(map[string]bool)
	}
	st.byDate[dateKey][v.ID] = true

	if event.Type == models.EventSabado && opening.Role == models.RoleProfessor {
		for _, other := range seated {
			key := models.NewPairKey(v.ID, other)
			st.pairs[key] = true
			st.newPairs = append(st.newPairs, models.PairHistory{
				ProfessorAID: key.A,
				ProfessorBID: key.B,
				Month:        st.month,
				Year:         st.year,
			})
		}
		st.profs[event.ID] = append(st.profs[event.ID], v.ID)
	}
}

// --- Month serialization ---

// monthLocks serializes generation per (month, year) so two concurrent runs
// cannot interleave their delete and insert phases. A second caller for the
// same month is rejected rather than queued.
type monthLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMonthLocks() *monthLocks {
	return &monthLocks{locks: make(map[string]*sync.Mutex)}
}

func (m *monthLocks) tryAcquire(month, year int) (func(), bool) {
	key := fmt.Sprintf("%04d-%02d", year, month)
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	m.mu.Unlock()
	if !lock.TryLock() {
		return nil, false
	}
	return lock.Unlock, true
}
