package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/internal/domain/repository"
)

// UserRepository keeps users in process memory. Email uniqueness is
// case-sensitive, matching the default collation of the other backends.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Insert(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[u.Email]; taken {
		return repository.ErrDuplicateEmail
	}
	u.ID = entity.NewID()
	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[strings.ToLower(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) Find(_ context.Context, f entity.ListFilter, p entity.Page) ([]entity.User, error) {
	r.mu.RLock()
	out := make([]entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		if f.Matches(u) {
			out = append(out, u)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})

	skip := p.Skip()
	if skip >= len(out) {
		return []entity.User{}, nil
	}
	end := len(out)
	if p.Limit < end-skip {
		end = skip + p.Limit
	}
	return out[skip:end], nil
}

func (r *UserRepository) UpdateByID(_ context.Context, id string, patch entity.UserPatch) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = strings.ToLower(id)
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Email != nil && *patch.Email != u.Email {
		if _, taken := r.byEmail[*patch.Email]; taken {
			return nil, repository.ErrDuplicateEmail
		}
		delete(r.byEmail, u.Email)
		r.byEmail[*patch.Email] = id
	}
	patch.Apply(&u)
	r.byID[id] = u
	return &u, nil
}

func (r *UserRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = strings.ToLower(id)
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	return nil
}

// EnsureIndexes is a no-op: the email index is maintained on every write.
func (r *UserRepository) EnsureIndexes(context.Context) error { return nil }

func (r *UserRepository) Ping(context.Context) error { return nil }

var _ repository.UserRepository = (*UserRepository)(nil)
