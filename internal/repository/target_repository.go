package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/media-service/internal/domain"
)

// TargetRepository answers whether a relationship target exists.
type TargetRepository interface {
	Exists(ctx context.Context, kind domain.TargetKind, id string) (bool, error)
}

type targetRepository struct {
	db DBTX
}

// NewTargetRepository returns a Postgres-backed implementation.
func NewTargetRepository(db DBTX) TargetRepository {
	return &targetRepository{db: db}
}

var targetQueries = map[domain.TargetKind]string{
	domain.TargetVideo:   `SELECT EXISTS (SELECT 1 FROM videos WHERE id=$1)`,
	domain.TargetComment: `SELECT EXISTS (SELECT 1 FROM comments WHERE id=$1)`,
	domain.TargetPost:    `SELECT EXISTS (SELECT 1 FROM tweets WHERE id=$1)`,
	domain.TargetChannel: `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`,
}

func (r *targetRepository) Exists(ctx context.Context, kind domain.TargetKind, id string) (bool, error) {
	query, ok := targetQueries[kind]
	if !ok {
		return false, fmt.Errorf("unknown target kind %q", kind)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
