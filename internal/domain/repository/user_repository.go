package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/user-directory/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no record matches the given id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a write violates the unique email index.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserRepository defines the interface for user-related store operations.
// Callers must pass ids that satisfy entity.ValidID.
type UserRepository interface {
	Insert(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	// Find returns users matching f sorted by name then id, windowed by p.
	Find(ctx context.Context, f entity.ListFilter, p entity.Page) ([]entity.User, error)
	// UpdateByID applies only the fields set in patch and returns the updated record.
	UpdateByID(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error)
	DeleteByID(ctx context.Context, id string) error
	// EnsureIndexes creates the unique email index; run once at startup.
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
}
