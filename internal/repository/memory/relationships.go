package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/repository"
)

// RelationshipRepository is an in-memory repository.RelationshipRepository with
// the composite key enforced as a hard constraint.
type RelationshipRepository struct {
	mu   sync.Mutex
	rels map[domain.RelationshipKey]domain.Relationship
}

// NewRelationshipRepository returns an empty store.
func NewRelationshipRepository() *RelationshipRepository {
	return &RelationshipRepository{rels: make(map[domain.RelationshipKey]domain.Relationship)}
}

var _ repository.RelationshipRepository = (*RelationshipRepository)(nil)

func (r *RelationshipRepository) Exists(_ context.Context, key domain.RelationshipKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rels[key]
	return ok, nil
}

func (r *RelationshipRepository) Insert(_ context.Context, rel *domain.Relationship) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := rel.Key()
	if _, ok := r.rels[key]; ok {
		return repository.ErrDuplicateKey
	}
	rel.CreatedAt = time.Now()
	r.rels[key] = *rel
	return nil
}

func (r *RelationshipRepository) Delete(_ context.Context, key domain.RelationshipKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rels[key]; !ok {
		return false, nil
	}
	delete(r.rels, key)
	return true, nil
}

func (r *RelationshipRepository) ListBySubject(_ context.Context, subjectID string, predicate domain.Predicate, limit, offset int) ([]domain.Relationship, error) {
	return r.filter(func(rel domain.Relationship) bool {
		return rel.SubjectID == subjectID && rel.Predicate == predicate
	}, limit, offset), nil
}

func (r *RelationshipRepository) ListByTarget(_ context.Context, predicate domain.Predicate, targetID string, limit, offset int) ([]domain.Relationship, error) {
	return r.filter(func(rel domain.Relationship) bool {
		return rel.TargetID == targetID && rel.Predicate == predicate
	}, limit, offset), nil
}

func (r *RelationshipRepository) CountBySubject(_ context.Context, subjectID string, predicate domain.Predicate) (int64, error) {
	return r.count(func(rel domain.Relationship) bool {
		return rel.SubjectID == subjectID && rel.Predicate == predicate
	}), nil
}

func (r *RelationshipRepository) CountByTarget(_ context.Context, predicate domain.Predicate, targetID string) (int64, error) {
	return r.count(func(rel domain.Relationship) bool {
		return rel.TargetID == targetID && rel.Predicate == predicate
	}), nil
}

func (r *RelationshipRepository) count(match func(domain.Relationship) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rel := range r.rels {
		if match(rel) {
			n++
		}
	}
	return n
}

// Count returns the number of stored relationships.
func (r *RelationshipRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rels)
}

func (r *RelationshipRepository) filter(match func(domain.Relationship) bool, limit, offset int) []domain.Relationship {
	r.mu.Lock()
	var out []domain.Relationship
	for _, rel := range r.rels {
		if match(rel) {
			out = append(out, rel)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
