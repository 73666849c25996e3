package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrForeignKeyViolation signals that a delete was blocked by referencing rows.
var ErrForeignKeyViolation = errors.New("foreign key violation")

func asPQError(err error, target **pq.Error) bool {
	return errors.As(err, target)
}
