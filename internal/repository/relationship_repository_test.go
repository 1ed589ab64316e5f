package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/media-service/internal/domain"
)

var videoLikeKey = domain.RelationshipKey{SubjectID: "u-1", Predicate: domain.PredicateVideoLike, TargetID: "v-1"}

func TestRelationshipInsert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRelationshipRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO relationships`).
		WithArgs("r-1", "u-1", domain.PredicateVideoLike, "v-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery(`INSERT INTO relationships`).
		WithArgs("r-2", "u-1", domain.PredicateVideoLike, "v-1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	rel := &domain.Relationship{ID: "r-1", SubjectID: "u-1", Predicate: domain.PredicateVideoLike, TargetID: "v-1"}
	require.NoError(t, repo.Insert(context.Background(), rel))
	assert.Equal(t, now, rel.CreatedAt)

	dup := &domain.Relationship{ID: "r-2", SubjectID: "u-1", Predicate: domain.PredicateVideoLike, TargetID: "v-1"}
	assert.ErrorIs(t, repo.Insert(context.Background(), dup), ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationshipDelete(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRelationshipRepository(mock)

	mock.ExpectQuery(`DELETE FROM relationships`).
		WithArgs("u-1", domain.PredicateVideoLike, "v-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("r-1"))
	mock.ExpectQuery(`DELETE FROM relationships`).
		WithArgs("u-1", domain.PredicateVideoLike, "v-1").
		WillReturnError(pgx.ErrNoRows)

	removed, err := repo.Delete(context.Background(), videoLikeKey)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), videoLikeKey)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRelationshipExists(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRelationshipRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u-1", domain.PredicateVideoLike, "v-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), videoLikeKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRelationshipListByTarget(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRelationshipRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`WHERE predicate=\$1 AND target_id=\$2`).
		WithArgs(domain.PredicateSubscription, "c-1", 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "subject_id", "predicate", "target_id", "created_at"}).
			AddRow("r-1", "u-1", domain.PredicateSubscription, "c-1", now).
			AddRow("r-2", "u-2", domain.PredicateSubscription, "c-1", now))

	rels, err := repo.ListByTarget(context.Background(), domain.PredicateSubscription, "c-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "u-2", rels[1].SubjectID)
}

func TestTargetExists(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTargetRepository(mock)

	mock.ExpectQuery(`FROM tweets WHERE id=\$1`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.Exists(context.Background(), domain.TargetPost, "t-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Exists(context.Background(), domain.TargetKind("playlist"), "p-1")
	assert.Error(t, err)
}

func TestRelationshipCounts(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRelationshipRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM relationships WHERE predicate=\$1 AND target_id=\$2`).
		WithArgs(domain.PredicateSubscription, "c-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM relationships WHERE subject_id=\$1 AND predicate=\$2`).
		WithArgs("c-1", domain.PredicateSubscription).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := repo.CountByTarget(context.Background(), domain.PredicateSubscription, "c-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = repo.CountBySubject(context.Background(), "c-1", domain.PredicateSubscription)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
