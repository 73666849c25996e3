package service

import (
	"sort"

	"github.com/ieab-app/escala-api/internal/models"
)

// slotOpening is one position to fill on an event.
type slotOpening struct {
	Role models.Role
	Room models.Room
}

// slotsForEvent returns the openings an event type requires. Cultos staff each
// age room with a professor and an auxiliar; the EBD runs a single unified
// class with two professors and an auxiliar.
func slotsForEvent(eventType models.EventType) []slotOpening {
	if eventType == models.EventSabado {
		return []slotOpening{
			{Role: models.RoleProfessor, Room: models.RoomUnificada},
			{Role: models.RoleProfessor, Room: models.RoomUnificada},
			{Role: models.RoleAuxiliar, Room: models.RoomUnificada},
		}
	}
	openings := make([]slotOpening, 0, len(models.ServiceRooms)*2)
	for _, room := range models.ServiceRooms {
		openings = append(openings,
			slotOpening{Role: models.RoleProfessor, Room: room},
			slotOpening{Role: models.RoleAuxiliar, Room: room},
		)
	}
	return openings
}

// eligibilityContext carries everything needed to judge one candidate for one
// opening. Maps hold volunteer ids.
type eligibilityContext struct {
	Role        models.Role
	Room        models.Room
	Unavailable map[string]bool
	OnEvent     map[string]bool
	OnPrevDay   map[string]bool
	// SeatedProfessors are professors already placed in the same EBD class.
	// A candidate is rejected when pairing with any of them repeats a pair
	// from the lookback window.
	SeatedProfessors []string
	Pairs            map[models.PairKey]bool
}

// roomMatches applies the fixed-room rule, which binds professors only. A
// specific room takes exactly the professors fixed to it; professors without
// a fixed room serve the unified class. Auxiliars rotate through every room
// regardless of any fixed room on their record.
func roomMatches(v models.Volunteer, role models.Role, room models.Room) bool {
	if role != models.RoleProfessor || room == models.RoomUnificada {
		return true
	}
	return v.Room != nil && *v.Room == room
}

func repeatsPair(v models.Volunteer, ec eligibilityContext) bool {
	for _, seated := range ec.SeatedProfessors {
		if ec.Pairs[models.NewPairKey(v.ID, seated)] {
			return true
		}
	}
	return false
}

// eligibleVolunteers filters candidates for one opening. The ignoreRoom flag
// is the room-scarcity fallback: every other rule still applies.
func eligibleVolunteers(candidates []models.Volunteer, ec eligibilityContext, ignoreRoom bool) []models.Volunteer {
	var result []models.Volunteer
	for _, v := range candidates {
		if !v.Active {
			continue
		}
		if !ignoreRoom && !roomMatches(v, ec.Role, ec.Room) {
			continue
		}
		if ec.Unavailable[v.ID] || ec.OnEvent[v.ID] || ec.OnPrevDay[v.ID] {
			continue
		}
		if repeatsPair(v, ec) {
			continue
		}
		result = append(result, v)
	}
	return result
}

// rankByLoad orders candidates by ascending month load. Ties fall back to id
// so repeated runs over the same data pick the same volunteer.
func rankByLoad(candidates []models.Volunteer, counts map[string]int) []models.Volunteer {
	ranked := make([]models.Volunteer, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := counts[ranked[i].ID], counts[ranked[j].ID]
		if ci != cj {
			return ci < cj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
