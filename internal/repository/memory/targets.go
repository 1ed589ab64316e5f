package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/repository"
)

// TargetRepository tracks videos, comments and posts by id. Channel lookups are
// answered by the user repository so identities stay the single source.
type TargetRepository struct {
	mu      sync.RWMutex
	targets map[domain.TargetKind]map[string]struct{}
	users   repository.UserRepository
}

// NewTargetRepository returns an empty store resolving channels through users.
func NewTargetRepository(users repository.UserRepository) *TargetRepository {
	return &TargetRepository{
		targets: make(map[domain.TargetKind]map[string]struct{}),
		users:   users,
	}
}

var _ repository.TargetRepository = (*TargetRepository)(nil)

// Add registers a target id of the given kind.
func (r *TargetRepository) Add(kind domain.TargetKind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.targets[kind] == nil {
		r.targets[kind] = make(map[string]struct{})
	}
	r.targets[kind][id] = struct{}{}
}

func (r *TargetRepository) Exists(ctx context.Context, kind domain.TargetKind, id string) (bool, error) {
	if kind == domain.TargetChannel {
		if _, err := r.users.GetByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.targets[kind][id]
	return ok, nil
}
