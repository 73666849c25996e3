package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/pkg/config"
)

type mockRosterCalendar struct {
	events []models.Event
}

func (m *mockRosterCalendar) EnsureEvents(ctx context.Context, month, year int) (int, error) {
	return 0, nil
}

func (m *mockRosterCalendar) ListMonth(ctx context.Context, month, year int) ([]models.Event, error) {
	return m.events, nil
}

type mockRosterVolunteers struct {
	byRole map[models.Role][]models.Volunteer
}

func (m *mockRosterVolunteers) ListActiveByRole(ctx context.Context, role models.Role) ([]models.Volunteer, error) {
	return m.byRole[role], nil
}

type mockRosterAbsences struct {
	items []models.Unavailability
}

func (m *mockRosterAbsences) ListByMonth(ctx context.Context, month, year int) ([]models.Unavailability, error) {
	return m.items, nil
}

type mockRosterSchedules struct {
	deleted   int
	created   [][]models.Schedule
	priorDays map[string][]string
}

func (m *mockRosterSchedules) DeleteByMonthTx(ctx context.Context, tx *sqlx.Tx, month, year int) error {
	m.deleted++
	return nil
}

func (m *mockRosterSchedules) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error {
	m.created = append(m.created, schedules)
	return nil
}

func (m *mockRosterSchedules) ListVolunteerIDsByDate(ctx context.Context, date time.Time) ([]string, error) {
	return m.priorDays[date.Format("2006-01-02")], nil
}

type mockRosterPairs struct {
	window  []models.PairHistory
	created [][]models.PairHistory
}

func (m *mockRosterPairs) ListWindow(ctx context.Context, month, year, months int) ([]models.PairHistory, error) {
	return m.window, nil
}

func (m *mockRosterPairs) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, pairs []models.PairHistory) error {
	m.created = append(m.created, pairs)
	return nil
}

type rosterFixture struct {
	calendar  *mockRosterCalendar
	vols      *mockRosterVolunteers
	absences  *mockRosterAbsences
	schedules *mockRosterSchedules
	pairs     *mockRosterPairs
	mock      sqlmock.Sqlmock
	service   *RosterService
	cleanup   func()
}

func newRosterFixture(t *testing.T, events []models.Event, professors, auxiliars []models.Volunteer) *rosterFixture {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	f := &rosterFixture{
		calendar: &mockRosterCalendar{events: events},
		vols: &mockRosterVolunteers{byRole: map[models.Role][]models.Volunteer{
			models.RoleProfessor: professors,
			models.RoleAuxiliar:  auxiliars,
		}},
		absences:  &mockRosterAbsences{},
		schedules: &mockRosterSchedules{priorDays: map[string][]string{}},
		pairs:     &mockRosterPairs{},
		mock:      mock,
		cleanup:   func() { db.Close() },
	}
	f.service = NewRosterService(
		f.calendar, f.vols, f.absences, f.schedules, f.pairs,
		sqlxDB, nil, nil,
		config.SchedulerConfig{PairLookbackMonths: 1},
		validator.New(), zap.NewNop(),
	)
	return f
}

func (f *rosterFixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *rosterFixture) lastRun() []models.Schedule {
	if len(f.schedules.created) == 0 {
		return nil
	}
	return f.schedules.created[len(f.schedules.created)-1]
}

func professor(id string, room *models.Room) models.Volunteer {
	return models.Volunteer{ID: id, Name: "Prof " + id, Role: models.RoleProfessor, Room: room, Active: true}
}

func auxiliar(id string) models.Volunteer {
	return models.Volunteer{ID: id, Name: "Aux " + id, Role: models.RoleAuxiliar, Active: true}
}

func roomPtr(r models.Room) *models.Room {
	return &r
}

func domingo(day int) models.Event {
	return models.Event{
		ID:    "sun-" + time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC).Format("02"),
		Date:  time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Type:  models.EventDomingo,
		Month: 3, Year: 2025,
	}
}

func sabado(day int) models.Event {
	return models.Event{
		ID:    "sat-" + time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC).Format("02"),
		Date:  time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Type:  models.EventSabado,
		Month: 3, Year: 2025,
	}
}

func terca(day int) models.Event {
	return models.Event{
		ID:    "tue-" + time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC).Format("02"),
		Date:  time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Type:  models.EventTerca,
		Month: 3, Year: 2025,
	}
}

func TestRosterGenerateFillsEveryRoomOnCulto(t *testing.T) {
	f := newRosterFixture(t,
		[]models.Event{domingo(2)},
		[]models.Volunteer{
			professor("p1", roomPtr(models.RoomBebes)),
			professor("p2", roomPtr(models.RoomPequenos)),
			professor("p3", roomPtr(models.RoomGrandes)),
		},
		[]models.Volunteer{auxiliar("a1"), auxiliar("a2"), auxiliar("a3")},
	)
	defer f.cleanup()
	f.expectTx()

	resp, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Logs)

	run := f.lastRun()
	require.Len(t, run, 6)
	byRoom := map[models.Room]map[models.Role]string{}
	for _, s := range run {
		if byRoom[s.AssignedRoom] == nil {
			byRoom[s.AssignedRoom] = map[models.Role]string{}
		}
		byRoom[s.AssignedRoom][s.AssignedRole] = s.VolunteerID
	}
	assert.Equal(t, "p1", byRoom[models.RoomBebes][models.RoleProfessor])
	assert.Equal(t, "p2", byRoom[models.RoomPequenos][models.RoleProfessor])
	assert.Equal(t, "p3", byRoom[models.RoomGrandes][models.RoleProfessor])
	for _, room := range models.ServiceRooms {
		assert.NotEmpty(t, byRoom[room][models.RoleAuxiliar])
	}
}

func TestRosterGenerateFixedRoomBindsProfessorsNotAuxiliars(t *testing.T) {
	fixedAux := auxiliar("a1")
	fixedAux.Room = roomPtr(models.RoomGrandes)
	f := newRosterFixture(t,
		[]models.Event{terca(4)},
		[]models.Volunteer{professor("p1", nil), professor("p2", roomPtr(models.RoomBebes))},
		[]models.Volunteer{fixedAux},
	)
	defer f.cleanup()
	f.expectTx()

	resp, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	run := f.lastRun()
	require.Len(t, run, 2)
	byRole := map[models.Role]models.Schedule{}
	for _, s := range run {
		assert.NotEqual(t, "p1", s.VolunteerID, "a professor without a fixed room cannot cover a specific room")
		byRole[s.AssignedRole] = s
	}
	assert.Equal(t, "p2", byRole[models.RoleProfessor].VolunteerID)
	assert.Equal(t, models.RoomBebes, byRole[models.RoleProfessor].AssignedRoom)
	// The auxiliar's fixed room is ignored: a1 lands in the first open room.
	assert.Equal(t, "a1", byRole[models.RoleAuxiliar].VolunteerID)
	assert.Equal(t, models.RoomBebes, byRole[models.RoleAuxiliar].AssignedRoom)
	// Pequenos and grandes stay without a professor and without an auxiliar.
	assert.Len(t, resp.Logs, 4)
}

func TestRosterGenerateFloatingProfessorServesUnifiedClass(t *testing.T) {
	f := newRosterFixture(t,
		[]models.Event{terca(4), sabado(8)},
		[]models.Volunteer{professor("p1", nil), professor("p2", roomPtr(models.RoomBebes))},
		[]models.Volunteer{auxiliar("a1")},
	)
	defer f.cleanup()
	f.expectTx()

	_, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	var p1Rows []models.Schedule
	for _, s := range f.lastRun() {
		if s.VolunteerID == "p1" {
			p1Rows = append(p1Rows, s)
		}
	}
	require.Len(t, p1Rows, 1)
	assert.Equal(t, "sat-08", p1Rows[0].EventID)
	assert.Equal(t, models.RoomUnificada, p1Rows[0].AssignedRoom)
}

func TestRosterGenerateNeverDoubleBooksAnEvent(t *testing.T) {
	f := newRosterFixture(t,
		[]models.Event{domingo(2)},
		[]models.Volunteer{professor("p1", roomPtr(models.RoomBebes))},
		[]models.Volunteer{auxiliar("a1")},
	)
	defer f.cleanup()
	f.expectTx()

	resp, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	run := f.lastRun()
	seen := map[string]int{}
	for _, s := range run {
		seen[s.VolunteerID]++
	}
	assert.Equal(t, 1, seen["p1"])
	assert.Equal(t, 1, seen["a1"])
	// Two professor rooms and two auxiliar rooms stay empty.
	assert.Len(t, resp.Logs, 4)
}

func TestRosterGenerateRestRuleAcrossConsecutiveDays(t *testing.T) {
	f := newRosterFixture(t,
		[]models.Event{sabado(8), domingo(9)},
		[]models.Volunteer{
			professor("p1", roomPtr(models.RoomBebes)),
			professor("p2", roomPtr(models.RoomPequenos)),
			professor("p3", roomPtr(models.RoomGrandes)),
		},
		[]models.Volunteer{auxiliar("a1"), auxiliar("a2")},
	)
	defer f.cleanup()
	f.expectTx()

	resp, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	saturdayWorkers := map[string]bool{}
	for _, s := range f.lastRun() {
		if s.EventID == "sat-08" {
			saturdayWorkers[s.VolunteerID] = true
		}
	}
	require.NotEmpty(t, saturdayWorkers)
	for _, s := range f.lastRun() {
		if s.EventID == "sun-09" {
			assert.False(t, saturdayWorkers[s.VolunteerID], "volunteer %s worked the previous day", s.VolunteerID)
		}
	}
}

func TestRosterGenerateRestRuleConsultsPriorMonth(t *testing.T) {
	f := newRosterFixture(t,
		// March 1st: the previous day belongs to February.
		[]models.Event{sabado(1)},
		[]models.Volunteer{professor("p1", nil), professor("p2", nil), professor("p3", nil)},
		[]models.Volunteer{auxiliar("a1")},
	)
	defer f.cleanup()
	f.schedules.priorDays["2025-02-28"] = []string{"p1"}
	f.expectTx()

	_, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	for _, s := range f.lastRun() {
		assert.NotEqual(t, "p1", s.VolunteerID)
	}
}

func TestRosterGenerateSkipsUnavailableVolunteers(t *testing.T) {
	f := newRosterFixture(t,
		[]models.Event{domingo(2)},
		[]models.Volunteer{
			professor("p1", roomPtr(models.RoomBebes)),
			professor("p2", roomPtr(models.RoomBebes)),
			professor("p3", roomPtr(models.RoomPequenos)),
			professor("p4", roomPtr(models.RoomGrandes)),
		},
		[]models.Volunteer{auxiliar("a1"), auxiliar("a2"), auxiliar("a3")},
	)
	defer f.cleanup()
	f.absences.items = []models.Unavailability{{VolunteerID: "p1", EventID: "sun-02"}}
	f.expectTx()

	_, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	for _, s := range f.lastRun() {
		assert.NotEqual(t, "p1", s.VolunteerID)
	}
}

func TestRosterGenerateExcludesRecentPairs(t *testing.T) {
	f := newRosterFixture(t,
		[]models.Event{sabado(1)},
		[]models.Volunteer{professor("p1", nil), professor("p2", nil), professor("p3", nil)},
		[]models.Volunteer{auxiliar("a1")},
	)
	defer f.cleanup()
	f.pairs.window = []models.PairHistory{{ProfessorAID: "p1", ProfessorBID: "p2", Month: 2, Year: 2025}}
	f.expectTx()

	_, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	var profs []string
	for _, s := range f.lastRun() {
		if s.AssignedRole == models.RoleProfessor {
			profs = append(profs, s.VolunteerID)
		}
	}
	require.Len(t, profs, 2)
	assert.Equal(t, []string{"p1", "p3"}, profs)

	require.Len(t, f.pairs.created, 1)
	require.Len(t, f.pairs.created[0], 1)
	pair := f.pairs.created[0][0]
	assert.Equal(t, "p1", pair.ProfessorAID)
	assert.Equal(t, "p3", pair.ProfessorBID)
	assert.Equal(t, 3, pair.Month)
	assert.Equal(t, 2025, pair.Year)
}

func TestRosterGenerateIsDeterministicAndFullReplace(t *testing.T) {
	events := []models.Event{terca(4), sabado(8), domingo(9)}
	professors := []models.Volunteer{
		professor("p1", roomPtr(models.RoomBebes)), professor("p2", roomPtr(models.RoomBebes)),
		professor("p3", roomPtr(models.RoomPequenos)), professor("p4", roomPtr(models.RoomPequenos)),
		professor("p5", roomPtr(models.RoomGrandes)), professor("p6", roomPtr(models.RoomGrandes)),
	}
	auxiliars := []models.Volunteer{auxiliar("a1"), auxiliar("a2"), auxiliar("a3"), auxiliar("a4")}

	f := newRosterFixture(t, events, professors, auxiliars)
	defer f.cleanup()
	f.expectTx()
	f.expectTx()

	_, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	first := f.lastRun()

	_, err = f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	second := f.lastRun()

	assert.Equal(t, 2, f.schedules.deleted)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].EventID, second[i].EventID)
		assert.Equal(t, first[i].VolunteerID, second[i].VolunteerID)
		assert.Equal(t, first[i].AssignedRole, second[i].AssignedRole)
		assert.Equal(t, first[i].AssignedRoom, second[i].AssignedRoom)
	}
}

func TestRosterGenerateBalancesLoad(t *testing.T) {
	events := []models.Event{sabado(1), sabado(8), sabado(15), sabado(22), sabado(29)}
	professors := []models.Volunteer{
		professor("p1", nil), professor("p2", nil), professor("p3", nil), professor("p4", nil),
	}

	f := newRosterFixture(t, events, professors, []models.Volunteer{auxiliar("a1"), auxiliar("a2")})
	defer f.cleanup()
	f.expectTx()

	resp, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, resp.Logs)

	counts := map[string]int{}
	for _, s := range f.lastRun() {
		if s.AssignedRole == models.RoleProfessor {
			counts[s.VolunteerID]++
		}
	}
	min, max := 100, 0
	for _, p := range professors {
		c := counts[p.ID]
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	assert.LessOrEqual(t, max-min, 1)
}

func TestRosterGenerateMarch2025(t *testing.T) {
	var events []models.Event
	for _, day := range []int{4, 11, 18, 25} {
		events = append(events, terca(day))
	}
	for _, day := range []int{1, 8, 15, 22, 29} {
		events = append(events, sabado(day))
	}
	for _, day := range []int{2, 9, 16, 23, 30} {
		events = append(events, domingo(day))
	}

	professors := []models.Volunteer{
		professor("p1", roomPtr(models.RoomBebes)),
		professor("p2", roomPtr(models.RoomBebes)),
		professor("p3", roomPtr(models.RoomPequenos)),
		professor("p4", roomPtr(models.RoomPequenos)),
		professor("p5", roomPtr(models.RoomGrandes)),
		professor("p6", roomPtr(models.RoomGrandes)),
		professor("p7", nil),
		professor("p8", nil),
	}
	auxiliars := []models.Volunteer{
		auxiliar("a1"), auxiliar("a2"), auxiliar("a3"),
		auxiliar("a4"), auxiliar("a5"), auxiliar("a6"),
	}

	f := newRosterFixture(t, events, professors, auxiliars)
	defer f.cleanup()
	f.expectTx()

	resp, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	run := f.lastRun()
	dateByEvent := map[string]time.Time{}
	for _, e := range events {
		dateByEvent[e.ID] = e.Date
	}

	perEvent := map[string]map[string]bool{}
	perDate := map[string]map[string]bool{}
	for _, s := range run {
		assert.Equal(t, 3, s.Month)
		assert.Equal(t, 2025, s.Year)

		if perEvent[s.EventID] == nil {
			perEvent[s.EventID] = map[string]bool{}
		}
		assert.False(t, perEvent[s.EventID][s.VolunteerID], "double booking on %s", s.EventID)
		perEvent[s.EventID][s.VolunteerID] = true

		dateKey := dateByEvent[s.EventID].Format("2006-01-02")
		if perDate[dateKey] == nil {
			perDate[dateKey] = map[string]bool{}
		}
		perDate[dateKey][s.VolunteerID] = true
	}

	for _, s := range run {
		prev := dateByEvent[s.EventID].AddDate(0, 0, -1).Format("2006-01-02")
		assert.False(t, perDate[prev][s.VolunteerID],
			"volunteer %s on consecutive days ending %s", s.VolunteerID, dateByEvent[s.EventID].Format("2006-01-02"))
	}

	for _, s := range run {
		if dateByEvent[s.EventID].Weekday() == time.Saturday {
			assert.Equal(t, models.RoomUnificada, s.AssignedRoom)
		} else {
			assert.NotEqual(t, models.RoomUnificada, s.AssignedRoom)
		}
	}

	require.Len(t, f.pairs.created, 1)
	for _, pair := range f.pairs.created[0] {
		assert.Less(t, pair.ProfessorAID, pair.ProfessorBID)
	}
}

func TestRosterGenerateValidatesPayload(t *testing.T) {
	f := newRosterFixture(t, nil, nil, nil)
	defer f.cleanup()

	_, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 13, Year: 2025})
	require.Error(t, err)
}

func TestRosterGenerateRejectsConcurrentRun(t *testing.T) {
	f := newRosterFixture(t,
		[]models.Event{domingo(2)},
		[]models.Volunteer{professor("p1", nil)},
		[]models.Volunteer{auxiliar("a1")},
	)
	defer f.cleanup()

	unlock, ok := f.service.months.tryAcquire(3, 2025)
	require.True(t, ok)
	defer unlock()

	_, err := f.service.Generate(context.Background(), dto.GenerateRosterRequest{Month: 3, Year: 2025})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")
}
