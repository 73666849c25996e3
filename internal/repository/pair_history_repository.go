package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ieab-app/escala-api/internal/models"
)

// PairHistoryRepository manages the append-only EBD pair log.
type PairHistoryRepository struct {
	db *sqlx.DB
}

// NewPairHistoryRepository constructs a PairHistoryRepository.
func NewPairHistoryRepository(db *sqlx.DB) *PairHistoryRepository {
	return &PairHistoryRepository{db: db}
}

// ListWindow returns pairs recorded in the lookback window: the `months`
// calendar months immediately before (month, year). Month arithmetic is done
// on a linear month index so year boundaries behave.
func (r *PairHistoryRepository) ListWindow(ctx context.Context, month, year, months int) ([]models.PairHistory, error) {
	if months < 1 {
		months = 1
	}
	target := year*12 + (month - 1)
	from := target - months

	const query = `SELECT id, professor_a_id, professor_b_id, month, year, created_at
		FROM ebd_pair_history
		WHERE (year * 12 + month - 1) >= $1 AND (year * 12 + month - 1) < $2`
	var pairs []models.PairHistory
	if err := r.db.SelectContext(ctx, &pairs, query, from, target); err != nil {
		return nil, fmt.Errorf("list pair history window: %w", err)
	}
	return pairs, nil
}

// BulkCreateTx appends newly formed pairs inside the generation transaction.
func (r *PairHistoryRepository) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, pairs []models.PairHistory) error {
	if len(pairs) == 0 {
		return nil
	}
	const query = `INSERT INTO ebd_pair_history (id, professor_a_id, professor_b_id, month, year, created_at)
		VALUES (:id, :professor_a_id, :professor_b_id, :month, :year, :created_at)`
	now := time.Now().UTC()
	for i := range pairs {
		if pairs[i].ID == "" {
			pairs[i].ID = uuid.NewString()
		}
		if pairs[i].CreatedAt.IsZero() {
			pairs[i].CreatedAt = now
		}
	}
	if _, err := tx.NamedExecContext(ctx, query, pairs); err != nil {
		return fmt.Errorf("bulk create pair history: %w", err)
	}
	return nil
}
