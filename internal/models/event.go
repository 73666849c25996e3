package models

import "time"

// EventType identifies the weekly service an event belongs to.
type EventType string

const (
	EventTerca   EventType = "terca"
	EventSabado  EventType = "sabado"
	EventDomingo EventType = "domingo"
)

// EventTypeForWeekday maps a calendar weekday to its service type. Weekdays
// outside the recurrence return false.
func EventTypeForWeekday(day time.Weekday) (EventType, bool) {
	switch day {
	case time.Tuesday:
		return EventTerca, true
	case time.Saturday:
		return EventSabado, true
	case time.Sunday:
		return EventDomingo, true
	}
	return "", false
}

// Event is a single service occurrence. Rows are immutable after creation
// except for the publication flag.
type Event struct {
	ID        string    `db:"id" json:"id"`
	Date      time.Time `db:"event_date" json:"event_date"`
	Type      EventType `db:"event_type" json:"event_type"`
	Month     int       `db:"month" json:"month"`
	Year      int       `db:"year" json:"year"`
	Published bool      `db:"is_published" json:"is_published"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
