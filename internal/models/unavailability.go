package models

import "time"

// Unavailability declares that a volunteer cannot serve a specific event.
type Unavailability struct {
	ID          string    `db:"id" json:"id"`
	VolunteerID string    `db:"volunteer_id" json:"volunteer_id"`
	EventID     string    `db:"event_id" json:"event_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UnavailabilityDetail joins the declared event for listing.
type UnavailabilityDetail struct {
	Unavailability
	EventDate time.Time `db:"event_date" json:"event_date"`
	EventType EventType `db:"event_type" json:"event_type"`
}
