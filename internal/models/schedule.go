package models

import "time"

// Schedule is one filled slot: a volunteer assigned to a role and room on an
// event. Rows are written in bulk by the generator and individually by the
// substitution flow, never edited elsewhere.
type Schedule struct {
	ID           string    `db:"id" json:"id"`
	EventID      string    `db:"event_id" json:"event_id"`
	VolunteerID  string    `db:"volunteer_id" json:"volunteer_id"`
	AssignedRole Role      `db:"assigned_role" json:"assigned_role"`
	AssignedRoom Room      `db:"assigned_room" json:"assigned_room"`
	Month        int       `db:"month" json:"month"`
	Year         int       `db:"year" json:"year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ScheduleDetail joins the event and volunteer for read endpoints.
type ScheduleDetail struct {
	Schedule
	EventDate     time.Time `db:"event_date" json:"event_date"`
	EventType     EventType `db:"event_type" json:"event_type"`
	VolunteerName string    `db:"volunteer_name" json:"volunteer_name"`
}
