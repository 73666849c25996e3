package models

import "time"

// PairHistory records that two professors co-taught an EBD class in a given
// month. Rows are append-only and stored order-normalized (professor_a_id <
// professor_b_id) so (A,B) and (B,A) are the same pair.
type PairHistory struct {
	ID           string    `db:"id" json:"id"`
	ProfessorAID string    `db:"professor_a_id" json:"professor_a_id"`
	ProfessorBID string    `db:"professor_b_id" json:"professor_b_id"`
	Month        int       `db:"month" json:"month"`
	Year         int       `db:"year" json:"year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PairKey is the normalized identity of an unordered professor pair.
type PairKey struct {
	A string
	B string
}

// NewPairKey orders the two ids so lookups are symmetric.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}
