package follows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recipelab/internal/models"
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

func TestCreateAndDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	f := &models.Follow{FollowerID: "a", FollowingID: "b", FollowerDisplayName: "Ann", CreatedAt: time.Now()}

	ins := `(?s)^INSERT\s+INTO\s+follows.*ON\s+CONFLICT\s*\(follower_id,\s*following_id\)\s*DO\s+NOTHING\s*$`
	mock.ExpectExec(ins).WithArgs("a", "b", "Ann", f.CreatedAt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(ins).WithArgs("a", "b", "Ann", f.CreatedAt).WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Create(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Create(context.Background(), f)
	require.NoError(t, err)
	assert.False(t, created)

	del := `(?s)^DELETE\s+FROM\s+follows\s+WHERE\s+follower_id\s*=\s*\$1\s+AND\s+following_id\s*=\s*\$2$`
	mock.ExpectExec(del).WithArgs("a", "b").WillReturnResult(sqlmock.NewResult(0, 1))
	removed, err := repo.Delete(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, removed)

	mock.ExpectExec(del).WithArgs("a", "b").WillReturnError(errors.New("boom"))
	_, err = repo.Delete(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "db error")
}

func TestExists(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+follows\s+WHERE\s+follower_id\s*=\s*\$1\s+AND\s+following_id\s*=\s*\$2\)$`

	mock.ExpectQuery(q).WithArgs("a", "b").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.Exists(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListFollowing(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^SELECT\s+following_id\s+FROM\s+follows\s+WHERE\s+follower_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s*$`

	mock.ExpectQuery(q).WithArgs("a").WillReturnRows(sqlmock.NewRows([]string{"following_id"}).AddRow("c").AddRow("b"))
	ids, err := repo.ListFollowing(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids)
}

func TestRekeyBatches(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	follower := `(?s)^WITH\s+moved\s+AS\s*\(\s*DELETE\s+FROM\s+follows\s+WHERE\s+follower_id\s*=\s*\$1.*WHERE\s+following_id\s*<>\s*\$2.*SELECT\s+count\(\*\)\s+FROM\s+moved\s*$`
	mock.ExpectQuery(follower).WithArgs("old", "new", 500).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	n, err := repo.RekeyFollowerBatch(context.Background(), "old", "new", 500)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	following := `(?s)^WITH\s+moved\s+AS\s*\(\s*DELETE\s+FROM\s+follows\s+WHERE\s+following_id\s*=\s*\$1.*WHERE\s+follower_id\s*<>\s*\$2.*SELECT\s+count\(\*\)\s+FROM\s+moved\s*$`
	mock.ExpectQuery(following).WithArgs("old", "new", 500).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	n, err = repo.RekeyFollowingBatch(context.Background(), "old", "new", 500)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}
