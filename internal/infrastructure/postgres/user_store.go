package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adiwijaya/identity-service/internal/domain/entity"
	"github.com/adiwijaya/identity-service/internal/domain/repository"
)

const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool the store needs. Narrowed so unit tests
// can drive the store with pgxmock.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UserStore persists one JSONB document per user, keyed by id. Field queries
// go through the document itself so records keep arbitrary extra fields.
type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByField(ctx context.Context, field, value string) ([]*entity.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT doc FROM users WHERE doc->>$1 = $2
	`, field, value)
	if err != nil {
		return nil, fmt.Errorf("query users by %s: %w", field, err)
	}
	defer rows.Close()

	var out []*entity.User
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		u, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var raw []byte
	row := s.db.QueryRow(ctx, `
		SELECT doc FROM users WHERE id = $1
	`, id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return decodeDoc(raw)
}

func (s *UserStore) Insert(ctx context.Context, u *entity.User) error {
	raw, err := json.Marshal(u.Document())
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO users (id, doc) VALUES ($1, $2)
	`, u.ID, raw); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *UserStore) Replace(ctx context.Context, u *entity.User) error {
	raw, err := json.Marshal(u.Document())
	if err != nil {
		return err
	}
	res, err := s.db.Exec(ctx, `
		UPDATE users SET doc = $2 WHERE id = $1
	`, u.ID, raw)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func decodeDoc(raw []byte) (*entity.User, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode user document: %w", err)
	}
	return entity.UserFromDocument(doc)
}

var _ repository.UserStore = (*UserStore)(nil)
