package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ieab-app/escala-api/internal/models"
)

const eventColumns = "id, event_date, event_type, month, year, is_published, created_at"

// EventRepository manages persistence for service events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID fetches an event by ID.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByDate fetches the event occurring on the given calendar date, if any.
func (r *EventRepository) FindByDate(ctx context.Context, date time.Time) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE event_date = $1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, date.Format("2006-01-02")); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByMonth returns the month's events in chronological order.
func (r *EventRepository) ListByMonth(ctx context.Context, month, year int) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE month = $1 AND year = $2 ORDER BY event_date ASC", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, month, year); err != nil {
		return nil, fmt.Errorf("list events by month: %w", err)
	}
	return events, nil
}

// InsertIfAbsent creates the event unless one already exists for its date.
// The unique constraint on event_date makes repeated and concurrent calls
// idempotent. Returns true when a row was actually inserted.
func (r *EventRepository) InsertIfAbsent(ctx context.Context, event *models.Event) (bool, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO events (id, event_date, event_type, month, year, is_published, created_at)
		VALUES (:id, :event_date, :event_type, :month, :year, :is_published, :created_at)
		ON CONFLICT (event_date) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return affected > 0, nil
}

// PublishMonth flips the publication flag for every event in the month.
func (r *EventRepository) PublishMonth(ctx context.Context, month, year int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE events SET is_published = TRUE WHERE month = $1 AND year = $2`, month, year)
	if err != nil {
		return fmt.Errorf("publish month: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish month: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasPublished reports whether the month has at least one published event.
func (r *EventRepository) HasPublished(ctx context.Context, month, year int) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM events WHERE month = $1 AND year = $2 AND is_published = TRUE LIMIT 1`, month, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check published month: %w", err)
	}
	return true, nil
}
