package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieab-app/escala-api/internal/models"
)

func newVolunteerRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestVolunteerRepositoryList(t *testing.T) {
	db, mock, cleanup := newVolunteerRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "phone", "pin_hash", "name", "role", "room", "is_active", "created_at", "updated_at"}).
		AddRow("v1", "11999990000", "hash", "Ana", "professor", "bebes", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, phone, pin_hash, name, role, room, is_active, created_at, updated_at FROM volunteers WHERE 1=1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM volunteers WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.VolunteerFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryListActiveByRoleOrdersByID(t *testing.T) {
	db, mock, cleanup := newVolunteerRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "phone", "pin_hash", "name", "role", "room", "is_active", "created_at", "updated_at"}).
		AddRow("a1", "1", "h", "Ana", "professor", "bebes", true, time.Now(), time.Now()).
		AddRow("b2", "2", "h", "Bia", "professor", nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM volunteers WHERE is_active = TRUE AND role = $1 ORDER BY id ASC")).
		WithArgs(models.RoleProfessor).
		WillReturnRows(rows)

	list, err := repo.ListActiveByRole(context.Background(), models.RoleProfessor)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a1", list[0].ID)
	assert.Nil(t, list[1].Room)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newVolunteerRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectExec("INSERT INTO volunteers").
		WithArgs(sqlmock.AnyArg(), "11999990000", "hash", "Ana", "professor", sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Volunteer{
		Phone:   "11999990000",
		PINHash: "hash",
		Name:    "Ana",
		Role:    models.RoleProfessor,
		Active:  true,
	})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE volunteers SET is_active = FALSE").
		WithArgs("v1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "v1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newVolunteerRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectExec("DELETE FROM volunteers").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
