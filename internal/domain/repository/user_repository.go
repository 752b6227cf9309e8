package repository

import (
	"context"
	"errors"

	"github.com/adiwijaya/identity-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no record exists at the given key.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned by Insert when the key already exists.
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserStore is the keyed document store capability consumed by the identity
// service. The store is the sole durable owner of user records; callers hold
// request-scoped copies only.
type UserStore interface {
	// FindByField returns every record whose top-level document field equals
	// value. The result may be empty and its ordering is unspecified.
	FindByField(ctx context.Context, field, value string) ([]*entity.User, error)
	// GetByID looks a record up by its partition key.
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// Insert writes a new record keyed by its id.
	Insert(ctx context.Context, u *entity.User) error
	// Replace overwrites the record at u.ID unconditionally.
	Replace(ctx context.Context, u *entity.User) error
}
