package dto

import "github.com/ieab-app/escala-api/internal/models"

// GenerateRosterRequest asks for a full month rebuild.
type GenerateRosterRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2020,max=2100"`
}

// GenerateRosterResponse reports the outcome of a generation run. Success is
// false only on infrastructure failure; a partially filled month still
// succeeds and the gaps show up in Logs.
type GenerateRosterResponse struct {
	Success bool     `json:"success"`
	Logs    []string `json:"logs"`
	Message string   `json:"message,omitempty"`
}

// EnsureEventsRequest materializes the month's recurring events.
type EnsureEventsRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2020,max=2100"`
}

// PublishRosterRequest marks the month's events as published.
type PublishRosterRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,min=2020,max=2100"`
}

// SubstituteCandidate is one valid replacement for an existing assignment,
// ranked by current month load.
type SubstituteCandidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SwapRequest replaces the volunteer on a schedule row.
type SwapRequest struct {
	VolunteerID string `json:"volunteer_id" validate:"required,uuid4"`
}

// RosterDay groups a single event's assignments for the month view.
type RosterDay struct {
	Event       models.Event            `json:"event"`
	Assignments []models.ScheduleDetail `json:"assignments"`
}

// RosterMonthResponse is the month view returned by GET /roster.
type RosterMonthResponse struct {
	Month int         `json:"month"`
	Year  int         `json:"year"`
	Days  []RosterDay `json:"days"`
}
