package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ieab-app/escala-api/internal/models"
)

// UnavailabilityRepository manages declared absences.
type UnavailabilityRepository struct {
	db *sqlx.DB
}

// NewUnavailabilityRepository constructs an UnavailabilityRepository.
func NewUnavailabilityRepository(db *sqlx.DB) *UnavailabilityRepository {
	return &UnavailabilityRepository{db: db}
}

// ListByVolunteer returns the volunteer's declarations joined with event data,
// newest event first.
func (r *UnavailabilityRepository) ListByVolunteer(ctx context.Context, volunteerID string) ([]models.UnavailabilityDetail, error) {
	const query = `SELECT u.id, u.volunteer_id, u.event_id, u.created_at, e.event_date, e.event_type
		FROM unavailabilities u
		JOIN events e ON e.id = u.event_id
		WHERE u.volunteer_id = $1
		ORDER BY e.event_date DESC`
	var items []models.UnavailabilityDetail
	if err := r.db.SelectContext(ctx, &items, query, volunteerID); err != nil {
		return nil, fmt.Errorf("list unavailabilities by volunteer: %w", err)
	}
	return items, nil
}

// ListVolunteerIDsByEvent returns the ids of volunteers unavailable for the event.
func (r *UnavailabilityRepository) ListVolunteerIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT volunteer_id FROM unavailabilities WHERE event_id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("list unavailable volunteers: %w", err)
	}
	return ids, nil
}

// ListByMonth returns every declaration touching the month's events.
func (r *UnavailabilityRepository) ListByMonth(ctx context.Context, month, year int) ([]models.Unavailability, error) {
	const query = `SELECT u.id, u.volunteer_id, u.event_id, u.created_at
		FROM unavailabilities u
		JOIN events e ON e.id = u.event_id
		WHERE e.month = $1 AND e.year = $2`
	var items []models.Unavailability
	if err := r.db.SelectContext(ctx, &items, query, month, year); err != nil {
		return nil, fmt.Errorf("list unavailabilities by month: %w", err)
	}
	return items, nil
}

// Create records a declaration. Duplicate (volunteer, event) pairs are ignored.
func (r *UnavailabilityRepository) Create(ctx context.Context, item *models.Unavailability) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO unavailabilities (id, volunteer_id, event_id, created_at)
		VALUES (:id, :volunteer_id, :event_id, :created_at)
		ON CONFLICT (volunteer_id, event_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create unavailability: %w", err)
	}
	return nil
}

// Delete removes a declaration owned by the volunteer.
func (r *UnavailabilityRepository) Delete(ctx context.Context, id, volunteerID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM unavailabilities WHERE id = $1 AND volunteer_id = $2`, id, volunteerID)
	if err != nil {
		return fmt.Errorf("delete unavailability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete unavailability: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
