package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/pkg/config"
)

type mockSubSchedules struct {
	details      map[string]*models.ScheduleDetail
	onEvent      []string
	profsOnEvent []string
	onPrev       []string
	counts       map[string]int
	swapped      map[string]string
	updateErr    error
}

func (m *mockSubSchedules) FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	if detail, ok := m.details[id]; ok {
		return detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubSchedules) ListVolunteerIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	return m.onEvent, nil
}

func (m *mockSubSchedules) ListVolunteerIDsByEventRole(ctx context.Context, eventID string, role models.Role) ([]string, error) {
	return m.profsOnEvent, nil
}

func (m *mockSubSchedules) ListVolunteerIDsByDate(ctx context.Context, date time.Time) ([]string, error) {
	return m.onPrev, nil
}

func (m *mockSubSchedules) CountsByVolunteer(ctx context.Context, month, year int) (map[string]int, error) {
	return m.counts, nil
}

func (m *mockSubSchedules) UpdateVolunteer(ctx context.Context, id, volunteerID string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.swapped == nil {
		m.swapped = map[string]string{}
	}
	m.swapped[id] = volunteerID
	return nil
}

type mockSubVolunteers struct {
	list []models.Volunteer
}

func (m *mockSubVolunteers) ListActiveByRole(ctx context.Context, role models.Role) ([]models.Volunteer, error) {
	return m.list, nil
}

type mockSubAbsences struct {
	ids []string
}

func (m *mockSubAbsences) ListVolunteerIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	return m.ids, nil
}

type mockSubPairs struct {
	window []models.PairHistory
}

func (m *mockSubPairs) ListWindow(ctx context.Context, month, year, months int) ([]models.PairHistory, error) {
	return m.window, nil
}

func newSubService(schedules *mockSubSchedules, volunteers *mockSubVolunteers, absences *mockSubAbsences, pairs *mockSubPairs) *SubstitutionService {
	if volunteers == nil {
		volunteers = &mockSubVolunteers{}
	}
	if absences == nil {
		absences = &mockSubAbsences{}
	}
	if pairs == nil {
		pairs = &mockSubPairs{}
	}
	return NewSubstitutionService(schedules, volunteers, absences, pairs, nil,
		config.SchedulerConfig{PairLookbackMonths: 1}, validator.New(), zap.NewNop())
}

func subDetail() *models.ScheduleDetail {
	return &models.ScheduleDetail{
		Schedule: models.Schedule{
			ID:           "s1",
			EventID:      "e1",
			VolunteerID:  "p1",
			AssignedRole: models.RoleProfessor,
			AssignedRoom: models.RoomBebes,
			Month:        3,
			Year:         2025,
		},
		EventDate: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		EventType: models.EventDomingo,
	}
}

func subDetailEBD() *models.ScheduleDetail {
	return &models.ScheduleDetail{
		Schedule: models.Schedule{
			ID:           "s2",
			EventID:      "e2",
			VolunteerID:  "p1",
			AssignedRole: models.RoleProfessor,
			AssignedRoom: models.RoomUnificada,
			Month:        3,
			Year:         2025,
		},
		EventDate: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		EventType: models.EventSabado,
	}
}

func TestSubstitutionListRanksAndFilters(t *testing.T) {
	schedules := &mockSubSchedules{
		details: map[string]*models.ScheduleDetail{"s1": subDetail()},
		onEvent: []string{"p1", "p5"},
		onPrev:  []string{"p4"},
		counts:  map[string]int{"p1": 2, "p2": 3, "p3": 1},
	}
	volunteers := &mockSubVolunteers{list: []models.Volunteer{
		professor("p2", roomPtr(models.RoomBebes)),
		professor("p3", roomPtr(models.RoomBebes)),
		professor("p4", roomPtr(models.RoomBebes)),    // worked the previous day
		professor("p5", roomPtr(models.RoomBebes)),    // already on the event
		professor("p6", roomPtr(models.RoomPequenos)), // fixed to another room
		professor("p7", roomPtr(models.RoomBebes)),    // declared unavailable
		professor("p8", nil),                          // no fixed room, never covers a specific room
	}}
	absences := &mockSubAbsences{ids: []string{"p7"}}

	svc := newSubService(schedules, volunteers, absences, nil)

	candidates, err := svc.ListSubstitutes(context.Background(), "s1")
	require.NoError(t, err)

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	// p3 has the lightest month, p2 the heaviest; everyone else is filtered.
	assert.Equal(t, []string{"p3", "p2"}, ids)
	assert.Equal(t, 1, candidates[0].Count)
	assert.Equal(t, 3, candidates[1].Count)
}

func TestSubstitutionListExcludesRecentPairOnEBD(t *testing.T) {
	schedules := &mockSubSchedules{
		details:      map[string]*models.ScheduleDetail{"s2": subDetailEBD()},
		onEvent:      []string{"p1", "p2", "a1"},
		profsOnEvent: []string{"p1", "p2"},
	}
	volunteers := &mockSubVolunteers{list: []models.Volunteer{
		professor("p3", nil),
		professor("p4", nil),
	}}
	// p3 taught with the remaining professor p2 inside the lookback window.
	pairs := &mockSubPairs{window: []models.PairHistory{
		{ProfessorAID: "p2", ProfessorBID: "p3", Month: 2, Year: 2025},
	}}

	svc := newSubService(schedules, volunteers, nil, pairs)

	candidates, err := svc.ListSubstitutes(context.Background(), "s2")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p4", candidates[0].ID)
}

func TestSubstitutionListNotFound(t *testing.T) {
	schedules := &mockSubSchedules{details: map[string]*models.ScheduleDetail{}}
	svc := newSubService(schedules, nil, nil, nil)

	_, err := svc.ListSubstitutes(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSubstitutionSwap(t *testing.T) {
	schedules := &mockSubSchedules{details: map[string]*models.ScheduleDetail{"s1": subDetail()}}
	svc := newSubService(schedules, nil, nil, nil)

	err := svc.Swap(context.Background(), "s1", dto.SwapRequest{VolunteerID: "1b671a64-40d5-491e-99b0-da01ff1f3341"})
	require.NoError(t, err)
	assert.Equal(t, "1b671a64-40d5-491e-99b0-da01ff1f3341", schedules.swapped["s1"])
}

func TestSubstitutionSwapMissingSchedule(t *testing.T) {
	schedules := &mockSubSchedules{details: map[string]*models.ScheduleDetail{}}
	svc := newSubService(schedules, nil, nil, nil)

	err := svc.Swap(context.Background(), "ghost", dto.SwapRequest{VolunteerID: "1b671a64-40d5-491e-99b0-da01ff1f3341"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
