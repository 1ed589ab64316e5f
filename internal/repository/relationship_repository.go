package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/media-service/internal/domain"
)

// RelationshipRepository persists likes and subscriptions keyed by
// (subject_id, predicate, target_id), which the schema declares UNIQUE.
type RelationshipRepository interface {
	Exists(ctx context.Context, key domain.RelationshipKey) (bool, error)
	// Insert returns ErrDuplicateKey when the key already exists.
	Insert(ctx context.Context, rel *domain.Relationship) error
	// Delete removes the record for key and reports whether one was removed.
	Delete(ctx context.Context, key domain.RelationshipKey) (bool, error)
	ListBySubject(ctx context.Context, subjectID string, predicate domain.Predicate, limit, offset int) ([]domain.Relationship, error)
	ListByTarget(ctx context.Context, predicate domain.Predicate, targetID string, limit, offset int) ([]domain.Relationship, error)
	CountBySubject(ctx context.Context, subjectID string, predicate domain.Predicate) (int64, error)
	CountByTarget(ctx context.Context, predicate domain.Predicate, targetID string) (int64, error)
}

type relationshipRepository struct {
	db DBTX
}

// NewRelationshipRepository returns a Postgres-backed implementation.
func NewRelationshipRepository(db DBTX) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) Exists(ctx context.Context, key domain.RelationshipKey) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM relationships
            WHERE subject_id=$1 AND predicate=$2 AND target_id=$3
        )`

	var exists bool
	if err := r.db.QueryRow(ctx, query, key.SubjectID, key.Predicate, key.TargetID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *relationshipRepository) Insert(ctx context.Context, rel *domain.Relationship) error {
	const query = `
        INSERT INTO relationships (id, subject_id, predicate, target_id)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`

	err := r.db.QueryRow(ctx, query, rel.ID, rel.SubjectID, rel.Predicate, rel.TargetID).Scan(&rel.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *relationshipRepository) Delete(ctx context.Context, key domain.RelationshipKey) (bool, error) {
	const query = `
        DELETE FROM relationships
        WHERE subject_id=$1 AND predicate=$2 AND target_id=$3
        RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, query, key.SubjectID, key.Predicate, key.TargetID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *relationshipRepository) ListBySubject(ctx context.Context, subjectID string, predicate domain.Predicate, limit, offset int) ([]domain.Relationship, error) {
	const query = `
        SELECT id, subject_id, predicate, target_id, created_at
        FROM relationships
        WHERE subject_id=$1 AND predicate=$2
        ORDER BY created_at DESC, id
        LIMIT $3 OFFSET $4`

	return r.list(ctx, query, subjectID, predicate, limit, offset)
}

func (r *relationshipRepository) ListByTarget(ctx context.Context, predicate domain.Predicate, targetID string, limit, offset int) ([]domain.Relationship, error) {
	const query = `
        SELECT id, subject_id, predicate, target_id, created_at
        FROM relationships
        WHERE predicate=$1 AND target_id=$2
        ORDER BY created_at DESC, id
        LIMIT $3 OFFSET $4`

	return r.list(ctx, query, predicate, targetID, limit, offset)
}

func (r *relationshipRepository) CountBySubject(ctx context.Context, subjectID string, predicate domain.Predicate) (int64, error) {
	const query = `SELECT COUNT(*) FROM relationships WHERE subject_id=$1 AND predicate=$2`
	return r.count(ctx, query, subjectID, predicate)
}

func (r *relationshipRepository) CountByTarget(ctx context.Context, predicate domain.Predicate, targetID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM relationships WHERE predicate=$1 AND target_id=$2`
	return r.count(ctx, query, predicate, targetID)
}

func (r *relationshipRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *relationshipRepository) list(ctx context.Context, query string, args ...any) ([]domain.Relationship, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Relationship
	for rows.Next() {
		var rel domain.Relationship
		if err := rows.Scan(&rel.ID, &rel.SubjectID, &rel.Predicate, &rel.TargetID, &rel.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rel)
	}
	return result, rows.Err()
}
