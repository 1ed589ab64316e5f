// Package memory provides process-local repository implementations used when no
// Postgres DSN is configured. Every operation holds one mutex, so the refresh
// slot swap and the unique relationship key behave like their SQL counterparts.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/repository"
)

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewUserRepository returns an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicateKey
		}
	}

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) GetByLogin(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lowered := strings.ToLower(identifier)
	var byEmail *domain.User
	for _, user := range r.users {
		if user.Username == lowered {
			return cloneUser(user), nil
		}
		if user.Email == identifier {
			byEmail = user
		}
	}
	if byEmail == nil {
		return nil, domain.ErrNotFound
	}
	return cloneUser(byEmail), nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lowered := strings.ToLower(username)
	for _, user := range r.users {
		if user.Username == lowered {
			return cloneUser(user), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			out = append(out, *cloneUser(user))
		}
	}
	return out, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.mutate(id, func(u *domain.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *UserRepository) UpdateAccount(_ context.Context, id, fullName, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID != id && other.Email == email {
			return repository.ErrDuplicateKey
		}
	}
	user.FullName = fullName
	user.Email = email
	user.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepository) UpdateImage(_ context.Context, id string, kind domain.ImageKind, url string) error {
	return r.mutate(id, func(u *domain.User) error {
		switch kind {
		case domain.ImageKindAvatar:
			u.AvatarURL = url
		case domain.ImageKindCover:
			u.CoverImageURL = url
		default:
			return fmt.Errorf("unknown image kind %q", kind)
		}
		return nil
	})
}

func (r *UserRepository) GetRefreshToken(_ context.Context, id string) (*string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyString(user.RefreshToken), nil
}

func (r *UserRepository) SetRefreshToken(_ context.Context, id string, token *string) error {
	return r.mutate(id, func(u *domain.User) error {
		u.RefreshToken = copyString(token)
		return nil
	})
}

func (r *UserRepository) SwapRefreshToken(_ context.Context, id, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if user.RefreshToken == nil || *user.RefreshToken != expected {
		return false, nil
	}
	user.RefreshToken = &next
	user.UpdatedAt = time.Now()
	return true, nil
}

func (r *UserRepository) mutate(id string, fn func(*domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.RefreshToken = copyString(u.RefreshToken)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
