package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "secret"})
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name, secret FROM users WHERE id=\$1`).
		WithArgs(int64(2)).
		WillReturnRows(userRows().AddRow(int64(2), "hugo", "h"))
	u, err := r.GetByID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), u.ID)
	require.Equal(t, "hugo", u.Name)

	mock.ExpectQuery(`SELECT id, name, secret FROM users WHERE id=\$1`).
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, 3)
	require.ErrorIs(t, err, errs.ErrNotFound)

	boom := errors.New("conn reset")
	mock.ExpectQuery(`SELECT id, name, secret FROM users WHERE id=\$1`).
		WithArgs(int64(4)).
		WillReturnError(boom)
	_, err = r.GetByID(ctx, 4)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByCredentials(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name, secret FROM users WHERE name=\$1`).
		WithArgs("bia").
		WillReturnRows(userRows().AddRow(int64(1), "bia", "b"))
	u, err := r.GetByCredentials(ctx, "bia", "b")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)

	mock.ExpectQuery(`SELECT id, name, secret FROM users WHERE name=\$1`).
		WithArgs("bia").
		WillReturnRows(userRows().AddRow(int64(1), "bia", "b"))
	_, err = r.GetByCredentials(ctx, "bia", "wrong")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`SELECT id, name, secret FROM users WHERE name=\$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByCredentials(ctx, "nobody", "b")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`SELECT id, name, secret FROM users WHERE name=\$1`).
		WithArgs("bia").
		WillReturnError(context.DeadlineExceeded)
	_, err = r.GetByCredentials(ctx, "bia", "b")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, mock.ExpectationsWereMet())
}
