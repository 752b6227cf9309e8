package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwijaya/identity-service/internal/domain/entity"
	"github.com/adiwijaya/identity-service/internal/domain/repository"
)

func newStoreWithMock(t *testing.T) (*UserStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserStore(mock), mock
}

func docBytes(t *testing.T, u *entity.User) []byte {
	t.Helper()
	raw, err := json.Marshal(u.Document())
	require.NoError(t, err)
	return raw
}

func testUser(t *testing.T) *entity.User {
	t.Helper()
	u, err := entity.NewUser("user@example.com", "SecurePass123")
	require.NoError(t, err)
	return u
}

func TestUserStoreGetByID(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT doc FROM users WHERE id = $1`)

	t.Run("Found", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		want := testUser(t)
		want.Extra = map[string]any{"display_name": "Sam"}

		mock.ExpectQuery(query).
			WithArgs(want.ID).
			WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(docBytes(t, want)))

		got, err := store.GetByID(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Email, got.Email)
		assert.Equal(t, "Sam", got.Extra["display_name"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Absent", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(query).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		_, err := store.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserStoreFindByField(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT doc FROM users WHERE doc->>$1 = $2`)

	t.Run("Matches", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		u := testUser(t)

		mock.ExpectQuery(query).
			WithArgs("email", u.Email).
			WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(docBytes(t, u)))

		got, err := store.FindByField(ctx, "email", u.Email)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, u.ID, got[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(query).
			WithArgs("email", "nobody@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"doc"}))

		got, err := store.FindByField(ctx, "email", "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectQuery(query).
			WithArgs("email", "x@y.com").
			WillReturnError(errors.New("connection reset"))

		_, err := store.FindByField(ctx, "email", "x@y.com")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserStoreInsert(t *testing.T) {
	ctx := context.Background()
	stmt := regexp.QuoteMeta(`INSERT INTO users (id, doc) VALUES ($1, $2)`)

	t.Run("OK", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		u := testUser(t)

		mock.ExpectExec(stmt).
			WithArgs(u.ID, docBytes(t, u)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Insert(ctx, u))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		u := testUser(t)

		mock.ExpectExec(stmt).
			WithArgs(u.ID, docBytes(t, u)).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})

		assert.ErrorIs(t, store.Insert(ctx, u), repository.ErrDuplicateKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserStoreReplace(t *testing.T) {
	ctx := context.Background()
	stmt := regexp.QuoteMeta(`UPDATE users SET doc = $2 WHERE id = $1`)

	t.Run("OK", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		u := testUser(t)

		mock.ExpectExec(stmt).
			WithArgs(u.ID, docBytes(t, u)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, store.Replace(ctx, u))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Absent", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		u := testUser(t)

		mock.ExpectExec(stmt).
			WithArgs(u.ID, docBytes(t, u)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, store.Replace(ctx, u), repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
