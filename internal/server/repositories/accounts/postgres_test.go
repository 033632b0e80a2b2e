package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

const insertQ = `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*email,\s*is_anonymous,\s*display_name\)\s*VALUES\s*\(\$1,\s*NULLIF\(\$2,\s*''\),\s*\$3,\s*\$4\)\s*RETURNING\s+created_at\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(insertQ).
		WithArgs("a-1", "", true, "CrispyWaffle").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	a := &models.Account{ID: "a-1", IsAnonymous: true, DisplayName: "CrispyWaffle"}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, now, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WithArgs("a-2", "x@y.z", false, "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.Account{ID: "a-2", Email: "x@y.z"})
	assert.ErrorIs(t, err, common.ErrCredentialInUse)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^SELECT\s+id,\s*email,\s*is_anonymous,\s*display_name,\s*created_at\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("found with null email", func(t *testing.T) {
		mock.ExpectQuery(q).WithArgs("a-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_anonymous", "display_name", "created_at"}).
				AddRow("a-1", nil, true, "CrispyWaffle", time.Now()))

		a, err := repo.GetByID(context.Background(), "a-1")
		require.NoError(t, err)
		assert.Equal(t, "", a.Email)
		assert.True(t, a.IsAnonymous)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(q).WithArgs("nope").WillReturnError(sql.ErrNoRows)
		_, err := repo.GetByID(context.Background(), "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(q).WithArgs("a-1").WillReturnError(errors.New("db down"))
		_, err := repo.GetByID(context.Background(), "a-1")
		assert.ErrorContains(t, err, "db error: db down")
	})
}

func TestGetByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^SELECT\s+.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1$`

	mock.ExpectQuery(q).WithArgs("x@y.z").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_anonymous", "display_name", "created_at"}).
			AddRow("a-1", "x@y.z", false, "Ann", time.Now()))

	a, err := repo.GetByEmail(context.Background(), "x@y.z")
	require.NoError(t, err)
	assert.Equal(t, "x@y.z", a.Email)
	assert.False(t, a.IsAnonymous)
}

func TestLinkEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^UPDATE\s+accounts\s+SET\s+email\s*=\s*\$2,\s*is_anonymous\s*=\s*FALSE\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("a-1", "x@y.z").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.LinkEmail(context.Background(), "a-1", "x@y.z"))

	mock.ExpectExec(q).WithArgs("a-1", "taken@y.z").WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.LinkEmail(context.Background(), "a-1", "taken@y.z"), common.ErrCredentialInUse)

	mock.ExpectExec(q).WithArgs("ghost", "x@y.z").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.LinkEmail(context.Background(), "ghost", "x@y.z"), common.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDisplayName(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^UPDATE\s+accounts\s+SET\s+display_name\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`

	mock.ExpectExec(q).WithArgs("a-1", "Ann").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateDisplayName(context.Background(), "a-1", "Ann"))

	mock.ExpectExec(q).WithArgs("a-1", "Ann").WillReturnError(errors.New("boom"))
	assert.Error(t, repo.UpdateDisplayName(context.Background(), "a-1", "Ann"))
}
