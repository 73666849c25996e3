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

// ScheduleRepository manages persisted assignments.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindDetailByID fetches a schedule row joined with its event and volunteer.
func (r *ScheduleRepository) FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.event_id, s.volunteer_id, s.assigned_role, s.assigned_room, s.month, s.year, s.created_at,
			e.event_date, e.event_type, v.name AS volunteer_name
		FROM schedules s
		JOIN events e ON e.id = s.event_id
		JOIN volunteers v ON v.id = s.volunteer_id
		WHERE s.id = $1`
	var detail models.ScheduleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListDetailsByMonth returns the month's assignments joined for display,
// ordered chronologically then by room and role.
func (r *ScheduleRepository) ListDetailsByMonth(ctx context.Context, month, year int) ([]models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.event_id, s.volunteer_id, s.assigned_role, s.assigned_room, s.month, s.year, s.created_at,
			e.event_date, e.event_type, v.name AS volunteer_name
		FROM schedules s
		JOIN events e ON e.id = s.event_id
		JOIN volunteers v ON v.id = s.volunteer_id
		WHERE s.month = $1 AND s.year = $2
		ORDER BY e.event_date ASC, s.assigned_room ASC, s.assigned_role ASC`
	var details []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &details, query, month, year); err != nil {
		return nil, fmt.Errorf("list schedule details: %w", err)
	}
	return details, nil
}

// CountsByVolunteer returns per-volunteer assignment totals for the month.
func (r *ScheduleRepository) CountsByVolunteer(ctx context.Context, month, year int) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT volunteer_id, COUNT(*) FROM schedules WHERE month = $1 AND year = $2 GROUP BY volunteer_id`, month, year)
	if err != nil {
		return nil, fmt.Errorf("count schedules by volunteer: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan schedule count: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule counts: %w", err)
	}
	return counts, nil
}

// ListVolunteerIDsByEvent returns who already holds a slot on the event.
func (r *ScheduleRepository) ListVolunteerIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT volunteer_id FROM schedules WHERE event_id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("list event assignments: %w", err)
	}
	return ids, nil
}

// ListVolunteerIDsByEventRole returns who holds the given role on the event.
func (r *ScheduleRepository) ListVolunteerIDsByEventRole(ctx context.Context, eventID string, role models.Role) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT volunteer_id FROM schedules WHERE event_id = $1 AND assigned_role = $2`, eventID, role); err != nil {
		return nil, fmt.Errorf("list event role assignments: %w", err)
	}
	return ids, nil
}

// ListVolunteerIDsByDate returns who is assigned on the given calendar date.
// An empty result means either no event that day or an empty rota.
func (r *ScheduleRepository) ListVolunteerIDsByDate(ctx context.Context, date time.Time) ([]string, error) {
	const query = `SELECT s.volunteer_id FROM schedules s
		JOIN events e ON e.id = s.event_id
		WHERE e.event_date = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list assignments by date: %w", err)
	}
	return ids, nil
}

// DeleteByMonthTx removes every schedule row for the month inside the
// generation transaction. Regeneration is a full replace.
func (r *ScheduleRepository) DeleteByMonthTx(ctx context.Context, tx *sqlx.Tx, month, year int) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE month = $1 AND year = $2`, month, year); err != nil {
		return fmt.Errorf("delete schedules for month: %w", err)
	}
	return nil
}

// BulkCreateTx inserts generated rows inside the generation transaction.
func (r *ScheduleRepository) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	const query = `INSERT INTO schedules (id, event_id, volunteer_id, assigned_role, assigned_room, month, year, created_at)
		VALUES (:id, :event_id, :volunteer_id, :assigned_role, :assigned_room, :month, :year, :created_at)`
	now := time.Now().UTC()
	for i := range schedules {
		if schedules[i].ID == "" {
			schedules[i].ID = uuid.NewString()
		}
		if schedules[i].CreatedAt.IsZero() {
			schedules[i].CreatedAt = now
		}
	}
	if _, err := tx.NamedExecContext(ctx, query, schedules); err != nil {
		return fmt.Errorf("bulk create schedules: %w", err)
	}
	return nil
}

// UpdateVolunteer swaps the assignee on a single row.
func (r *ScheduleRepository) UpdateVolunteer(ctx context.Context, id, volunteerID string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE schedules SET volunteer_id = $2 WHERE id = $1`, id, volunteerID)
	if err != nil {
		return fmt.Errorf("swap schedule volunteer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("swap schedule volunteer: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
