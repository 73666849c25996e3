package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ieab-app/escala-api/internal/models"
)

const volunteerColumns = "id, phone, pin_hash, name, role, room, is_active, created_at, updated_at"

// VolunteerRepository manages persistence for volunteers.
type VolunteerRepository struct {
	db *sqlx.DB
}

// NewVolunteerRepository constructs a VolunteerRepository.
func NewVolunteerRepository(db *sqlx.DB) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

// List returns volunteers matching filters along with total count.
func (r *VolunteerRepository) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error) {
	base := "FROM volunteers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR phone LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", volunteerColumns, base, size, offset)
	var volunteers []models.Volunteer
	if err := r.db.SelectContext(ctx, &volunteers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list volunteers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count volunteers: %w", err)
	}

	return volunteers, total, nil
}

// FindByID fetches a volunteer by ID.
func (r *VolunteerRepository) FindByID(ctx context.Context, id string) (*models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE id = $1", volunteerColumns)
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, query, id); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// FindByPhone fetches an active volunteer by normalized phone number.
func (r *VolunteerRepository) FindByPhone(ctx context.Context, phone string) (*models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE phone = $1 AND is_active = TRUE", volunteerColumns)
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, query, phone); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// ListActiveByRole returns active volunteers with the given role, ordered by
// id so the scheduling engine sees a stable candidate order.
func (r *VolunteerRepository) ListActiveByRole(ctx context.Context, role models.Role) ([]models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE is_active = TRUE AND role = $1 ORDER BY id ASC", volunteerColumns)
	var volunteers []models.Volunteer
	if err := r.db.SelectContext(ctx, &volunteers, query, role); err != nil {
		return nil, fmt.Errorf("list active volunteers by role: %w", err)
	}
	return volunteers, nil
}

// Create inserts a new volunteer record.
func (r *VolunteerRepository) Create(ctx context.Context, volunteer *models.Volunteer) error {
	if volunteer.ID == "" {
		volunteer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if volunteer.CreatedAt.IsZero() {
		volunteer.CreatedAt = now
	}
	volunteer.UpdatedAt = now

	const query = `INSERT INTO volunteers (id, phone, pin_hash, name, role, room, is_active, created_at, updated_at)
		VALUES (:id, :phone, :pin_hash, :name, :role, :room, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	return nil
}

// Update modifies an existing volunteer record. The PIN hash is managed
// separately through UpdatePINHash.
func (r *VolunteerRepository) Update(ctx context.Context, volunteer *models.Volunteer) error {
	volunteer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE volunteers SET phone = :phone, name = :name, role = :role, room = :room, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("update volunteer: %w", err)
	}
	return nil
}

// UpdatePINHash replaces the stored PIN hash.
func (r *VolunteerRepository) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	const query = `UPDATE volunteers SET pin_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, pinHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update volunteer pin: %w", err)
	}
	return nil
}

// Deactivate sets a volunteer's active flag to false.
func (r *VolunteerRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE volunteers SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate volunteer: %w", err)
	}
	return nil
}

// Delete removes a volunteer permanently. Returns ErrForeignKeyViolation when
// schedules or unavailabilities still reference the row.
func (r *VolunteerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM volunteers WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if asPQError(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return ErrForeignKeyViolation
		}
		return fmt.Errorf("delete volunteer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete volunteer: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
