package application

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/internal/domain/event"
	repo "github.com/oksasatya/user-directory/internal/domain/repository"
	"github.com/oksasatya/user-directory/pkg/validation"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// EventPublisher ships user lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev event.Event) error
}

// UserSearcher queries the full-text search mirror.
type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]entity.User, error)
}

type Service struct {
	Repo      repo.UserRepository
	Validate  *validator.Validate
	Events    EventPublisher
	Searcher  UserSearcher
	Logger    *logrus.Logger
	OpTimeout time.Duration
}

// NewService wires the service. events and searcher may be nil.
func NewService(r repo.UserRepository, events EventPublisher, searcher UserSearcher, logger *logrus.Logger, opTimeout time.Duration) *Service {
	return &Service{
		Repo:      r,
		Validate:  validation.New(),
		Events:    events,
		Searcher:  searcher,
		Logger:    logger,
		OpTimeout: opTimeout,
	}
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.OpTimeout)
}

// CreateUser validates in, inserts it and returns the stored record.
func (s *Service) CreateUser(ctx context.Context, in entity.NewUser) (*entity.User, error) {
	if err := s.Validate.Struct(in); err != nil {
		return nil, &ValidationError{Details: validation.ToDetails(err)}
	}
	u := in.Build()

	c, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Repo.Insert(c, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, s.storeError(OpCreate, err)
	}

	s.publish(ctx, event.UserCreated, *u)
	return u, nil
}

// ListUsers returns one page of users matching f, sorted by name.
func (s *Service) ListUsers(ctx context.Context, f entity.ListFilter, p entity.Page) ([]entity.User, error) {
	details := map[string]string{}
	if err := s.Validate.Struct(f); err != nil {
		mergeDetails(details, validation.ToDetails(err))
	}
	if err := s.Validate.Struct(p); err != nil {
		mergeDetails(details, validation.ToDetails(err))
	}
	if len(details) > 0 {
		return nil, &ValidationError{Details: details}
	}

	c, cancel := s.storeCtx(ctx)
	defer cancel()
	users, err := s.Repo.Find(c, f, p)
	if err != nil {
		return nil, s.storeError(OpList, err)
	}
	if users == nil {
		users = []entity.User{}
	}
	return users, nil
}

// GetUser fetches a single user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	if !entity.ValidID(id) {
		return nil, ErrInvalidID
	}
	c, cancel := s.storeCtx(ctx)
	defer cancel()
	u, err := s.Repo.FindByID(c, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.storeError(OpGet, err)
	}
	return u, nil
}

// UpdateUser applies the provided fields of patch and returns the updated record.
func (s *Service) UpdateUser(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error) {
	if !entity.ValidID(id) {
		return nil, ErrInvalidID
	}
	if patch.IsEmpty() {
		return nil, ErrNothingToUpdate
	}
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}

	c, cancel := s.storeCtx(ctx)
	defer cancel()
	u, err := s.Repo.UpdateByID(c, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, s.storeError(OpUpdate, err)
	}

	s.publish(ctx, event.UserUpdated, *u)
	return u, nil
}

// DeleteUser removes the user with the given id.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if !entity.ValidID(id) {
		return ErrInvalidID
	}
	c, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Repo.DeleteByID(c, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return s.storeError(OpDelete, err)
	}

	s.publish(ctx, event.UserDeleted, entity.User{ID: id})
	return nil
}

// SearchUsers runs a full-text query against the search mirror.
// Without a configured mirror it returns an empty result.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]entity.User, error) {
	if s.Searcher == nil {
		return []entity.User{}, nil
	}
	switch {
	case size <= 0:
		size = defaultSearchSize
	case size > maxSearchSize:
		size = maxSearchSize
	}
	users, err := s.Searcher.Search(ctx, q, size)
	if err != nil {
		return nil, s.storeError(OpSearch, err)
	}
	if users == nil {
		users = []entity.User{}
	}
	return users, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	c, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Repo.Ping(c)
}

func (s *Service) validatePatch(p entity.UserPatch) error {
	details := map[string]string{}
	check := func(field string, value any, tag string) {
		err := s.Validate.Var(value, tag)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			details[field] = validation.FieldMessage(verrs[0])
		}
	}
	if p.Name != nil {
		check("name", *p.Name, "username")
	}
	if p.Email != nil {
		check("email", *p.Email, "required,email")
	}
	if p.Age != nil {
		check("age", *p.Age, "userage")
	}
	if len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}

func (s *Service) storeError(op string, err error) error {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("op", op).Error("user store operation failed")
	}
	return &StoreError{Op: op, Err: err}
}

func (s *Service) publish(ctx context.Context, eventType string, u entity.User) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event.New(eventType, u)); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"event": eventType, "user_id": u.ID}).Warn("publish user event failed")
	}
}

func mergeDetails(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
