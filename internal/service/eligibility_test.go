package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ieab-app/escala-api/internal/models"
)

func eligibleIDs(candidates []models.Volunteer, ec eligibilityContext) []string {
	var ids []string
	for _, v := range eligibleVolunteers(candidates, ec, false) {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestEligibilityRoomRuleBindsProfessorsOnly(t *testing.T) {
	professors := []models.Volunteer{
		professor("p1", nil),
		professor("p2", roomPtr(models.RoomBebes)),
		professor("p3", roomPtr(models.RoomPequenos)),
	}

	// A specific room takes only the professors fixed to it; floaters are out.
	got := eligibleIDs(professors, eligibilityContext{Role: models.RoleProfessor, Room: models.RoomBebes})
	assert.Equal(t, []string{"p2"}, got)

	// The unified class takes every professor, fixed room or not.
	got = eligibleIDs(professors, eligibilityContext{Role: models.RoleProfessor, Room: models.RoomUnificada})
	assert.Equal(t, []string{"p1", "p2", "p3"}, got)
}

func TestEligibilityAuxiliarsServeAnyRoom(t *testing.T) {
	fixed := auxiliar("a1")
	fixed.Room = roomPtr(models.RoomBebes)
	candidates := []models.Volunteer{fixed, auxiliar("a2")}

	got := eligibleIDs(candidates, eligibilityContext{Role: models.RoleAuxiliar, Room: models.RoomPequenos})
	assert.Equal(t, []string{"a1", "a2"}, got)
}

func TestEligibilityRoomFallbackKeepsOtherRules(t *testing.T) {
	candidates := []models.Volunteer{
		professor("p1", roomPtr(models.RoomGrandes)),
		professor("p2", roomPtr(models.RoomGrandes)),
	}
	ec := eligibilityContext{
		Role:        models.RoleProfessor,
		Room:        models.RoomBebes,
		Unavailable: map[string]bool{"p2": true},
	}

	assert.Empty(t, eligibleVolunteers(candidates, ec, false))

	relaxed := eligibleVolunteers(candidates, ec, true)
	assert.Len(t, relaxed, 1)
	assert.Equal(t, "p1", relaxed[0].ID)
}
