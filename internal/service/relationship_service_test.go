package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/events"
	"github.com/spec-kit/media-service/internal/repository"
	"github.com/spec-kit/media-service/internal/repository/memory"
)

type relFixture struct {
	svc        *RelationshipService
	users      *memory.UserRepository
	rels       *memory.RelationshipRepository
	targets    *memory.TargetRepository
	dispatcher *recordingDispatcher
	clock      *testClock
}

func newRelFixture(t *testing.T, wrap func(repository.RelationshipRepository) repository.RelationshipRepository) *relFixture {
	t.Helper()
	users := memory.NewUserRepository()
	rels := memory.NewRelationshipRepository()
	targets := memory.NewTargetRepository(users)
	dispatcher := &recordingDispatcher{}
	clock := &testClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}

	var store repository.RelationshipRepository = rels
	if wrap != nil {
		store = wrap(rels)
	}
	return &relFixture{
		svc: NewRelationshipService(RelationshipDependencies{
			UserRepo:         users,
			RelationshipRepo: store,
			TargetRepo:       targets,
			Dispatcher:       dispatcher,
			Clock:            clock,
		}),
		users:      users,
		rels:       rels,
		targets:    targets,
		dispatcher: dispatcher,
		clock:      clock,
	}
}

func (f *relFixture) user(t *testing.T, name string) string {
	t.Helper()
	u := &domain.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *relFixture) target(kind domain.TargetKind) string {
	id := uuid.NewString()
	f.targets.Add(kind, id)
	return id
}

func TestToggleCreatedRemovedCreated(t *testing.T) {
	f := newRelFixture(t, nil)
	ctx := context.Background()
	u1 := f.user(t, "u1")
	v1 := f.target(domain.TargetVideo)

	res, err := f.svc.ToggleVideoLike(ctx, u1, v1)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleCreated, res.Outcome)
	require.NotNil(t, res.Relationship)
	assert.Equal(t, u1, res.Relationship.SubjectID)
	assert.Equal(t, v1, res.Relationship.TargetID)
	assert.Equal(t, domain.PredicateVideoLike, res.Relationship.Predicate)
	assert.Equal(t, 1, f.rels.Count())

	res, err = f.svc.ToggleVideoLike(ctx, u1, v1)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleRemoved, res.Outcome)
	assert.Nil(t, res.Relationship)
	assert.Equal(t, 0, f.rels.Count())

	res, err = f.svc.ToggleVideoLike(ctx, u1, v1)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleCreated, res.Outcome)
	assert.Equal(t, 1, f.rels.Count())

	assert.Equal(t, 2, f.dispatcher.count(events.EventRelationshipCreated))
	assert.Equal(t, 1, f.dispatcher.count(events.EventRelationshipRemoved))
}

func TestTogglePredicatesAreIndependent(t *testing.T) {
	f := newRelFixture(t, nil)
	ctx := context.Background()
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")
	comment := f.target(domain.TargetComment)
	post := f.target(domain.TargetPost)

	for _, call := range []func() (*domain.ToggleResult, error){
		func() (*domain.ToggleResult, error) { return f.svc.ToggleCommentLike(ctx, u1, comment) },
		func() (*domain.ToggleResult, error) { return f.svc.TogglePostLike(ctx, u1, post) },
		func() (*domain.ToggleResult, error) { return f.svc.ToggleSubscription(ctx, u1, u2) },
	} {
		res, err := call()
		require.NoError(t, err)
		assert.Equal(t, domain.ToggleCreated, res.Outcome)
	}
	assert.Equal(t, 3, f.rels.Count())
}

func TestToggleInvalidTarget(t *testing.T) {
	f := newRelFixture(t, nil)
	ctx := context.Background()
	u1 := f.user(t, "u1")
	video := f.target(domain.TargetVideo)

	cases := []struct {
		name      string
		subject   string
		predicate domain.Predicate
		target    string
	}{
		{"unknown predicate", u1, domain.Predicate("dislike"), video},
		{"malformed target id", u1, domain.PredicateVideoLike, "not-a-uuid"},
		{"malformed subject id", "nope", domain.PredicateVideoLike, video},
		{"missing subject", uuid.NewString(), domain.PredicateVideoLike, video},
		{"missing video", u1, domain.PredicateVideoLike, uuid.NewString()},
		{"video id used as comment", u1, domain.PredicateCommentLike, video},
		{"missing channel", u1, domain.PredicateSubscription, uuid.NewString()},
		{"self subscription", u1, domain.PredicateSubscription, u1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Toggle(ctx, tc.subject, tc.predicate, tc.target)
			assert.ErrorIs(t, err, domain.ErrInvalidTarget)
		})
	}
	assert.Equal(t, 0, f.rels.Count())
}

// barrierStore holds every caller inside Delete until all of them have
// reached it, so each one proceeds to insert against an absent record.
type barrierStore struct {
	repository.RelationshipRepository
	wg *sync.WaitGroup
}

func (b barrierStore) Delete(ctx context.Context, key domain.RelationshipKey) (bool, error) {
	removed, err := b.RelationshipRepository.Delete(ctx, key)
	b.wg.Done()
	b.wg.Wait()
	return removed, err
}

func TestConcurrentToggleFromAbsentLeavesOneRecord(t *testing.T) {
	const n = 12
	var barrier sync.WaitGroup
	barrier.Add(n)
	f := newRelFixture(t, func(inner repository.RelationshipRepository) repository.RelationshipRepository {
		return barrierStore{RelationshipRepository: inner, wg: &barrier}
	})
	ctx := context.Background()
	u1 := f.user(t, "u1")
	v1 := f.target(domain.TargetVideo)

	var wg sync.WaitGroup
	type outcome struct {
		res *domain.ToggleResult
		err error
	}
	results := make(chan outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.ToggleVideoLike(ctx, u1, v1)
			results <- outcome{res, err}
		}()
	}
	wg.Wait()
	close(results)

	created, conflicts := 0, 0
	for r := range results {
		switch {
		case r.err == nil && r.res.Outcome == domain.ToggleCreated:
			created++
		case errors.Is(r.err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected toggle result: %+v %v", r.res, r.err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.rels.Count())
}

// racingStore reports duplicate keys for the first dupes inserts without
// storing anything, as if a concurrent toggle created and removed the record.
type racingStore struct {
	repository.RelationshipRepository
	mu    sync.Mutex
	dupes int
}

func (r *racingStore) Insert(ctx context.Context, rel *domain.Relationship) error {
	r.mu.Lock()
	if r.dupes > 0 {
		r.dupes--
		r.mu.Unlock()
		return repository.ErrDuplicateKey
	}
	r.mu.Unlock()
	return r.RelationshipRepository.Insert(ctx, rel)
}

func TestToggleRetriesInsertOnceWhenWinnerVanished(t *testing.T) {
	f := newRelFixture(t, func(inner repository.RelationshipRepository) repository.RelationshipRepository {
		return &racingStore{RelationshipRepository: inner, dupes: 1}
	})
	u1 := f.user(t, "u1")
	v1 := f.target(domain.TargetVideo)

	res, err := f.svc.ToggleVideoLike(context.Background(), u1, v1)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleCreated, res.Outcome)
	assert.Equal(t, 1, f.rels.Count())
}

func TestToggleConflictAfterSecondDuplicate(t *testing.T) {
	f := newRelFixture(t, func(inner repository.RelationshipRepository) repository.RelationshipRepository {
		return &racingStore{RelationshipRepository: inner, dupes: 2}
	})
	u1 := f.user(t, "u1")
	v1 := f.target(domain.TargetVideo)

	_, err := f.svc.ToggleVideoLike(context.Background(), u1, v1)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 0, f.rels.Count())
}

type brokenStore struct {
	repository.RelationshipRepository
	err error
}

func (b brokenStore) Delete(context.Context, domain.RelationshipKey) (bool, error) {
	return false, b.err
}

func (b brokenStore) ListBySubject(context.Context, string, domain.Predicate, int, int) ([]domain.Relationship, error) {
	return nil, b.err
}

func (b brokenStore) CountByTarget(context.Context, domain.Predicate, string) (int64, error) {
	return 0, b.err
}

func TestToggleStorageFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	f := newRelFixture(t, func(inner repository.RelationshipRepository) repository.RelationshipRepository {
		return brokenStore{RelationshipRepository: inner, err: storeErr}
	})
	ctx := context.Background()
	u1 := f.user(t, "u1")
	v1 := f.target(domain.TargetVideo)

	_, err := f.svc.ToggleVideoLike(ctx, u1, v1)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, 0, f.rels.Count())

	_, err = f.svc.LikedVideos(ctx, u1, Page{})
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}

func TestRelationshipQueries(t *testing.T) {
	f := newRelFixture(t, nil)
	ctx := context.Background()
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")
	u3 := f.user(t, "u3")

	for i := 0; i < 3; i++ {
		_, err := f.svc.ToggleVideoLike(ctx, u1, f.target(domain.TargetVideo))
		require.NoError(t, err)
	}
	_, err := f.svc.ToggleCommentLike(ctx, u1, f.target(domain.TargetComment))
	require.NoError(t, err)
	_, err = f.svc.ToggleSubscription(ctx, u1, u3)
	require.NoError(t, err)
	_, err = f.svc.ToggleSubscription(ctx, u2, u3)
	require.NoError(t, err)

	liked, err := f.svc.LikedVideos(ctx, u1, Page{})
	require.NoError(t, err)
	assert.Len(t, liked, 3)

	liked, err = f.svc.LikedVideos(ctx, u1, Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, liked, 1)

	subs, err := f.svc.ChannelSubscribers(ctx, u3, Page{})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	names := []string{subs[0].User.Username, subs[1].User.Username}
	assert.ElementsMatch(t, []string{"u1", "u2"}, names)
	assert.False(t, subs[0].SubscribedAt.IsZero())

	channels, err := f.svc.SubscribedChannels(ctx, u2, Page{})
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, u3, channels[0].User.ID)
	assert.Equal(t, "u3", channels[0].User.Username)

	_, err = f.svc.ChannelSubscribers(ctx, "bad-id", Page{})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: 20}, Page{}.normalize())
	assert.Equal(t, Page{Limit: 100, Offset: 5}, Page{Limit: 500, Offset: 5}.normalize())
	assert.Equal(t, Page{Limit: 10}, Page{Limit: 10, Offset: -3}.normalize())
}

func TestPageNumber(t *testing.T) {
	assert.Equal(t, Page{Limit: 20}, PageNumber(1, 0))
	assert.Equal(t, Page{Limit: 10, Offset: 20}, PageNumber(3, 10))
	assert.Equal(t, Page{Limit: 100, Offset: 100}, PageNumber(2, 1000))
}

func TestToggleEventsCarryServiceClock(t *testing.T) {
	f := newRelFixture(t, nil)
	ctx := context.Background()
	u1 := f.user(t, "u1")
	v1 := f.target(domain.TargetVideo)

	_, err := f.svc.ToggleVideoLike(ctx, u1, v1)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.ToggleVideoLike(ctx, u1, v1)
	require.NoError(t, err)

	f.dispatcher.mu.Lock()
	defer f.dispatcher.mu.Unlock()
	require.Len(t, f.dispatcher.events, 2)
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, events.EventRelationshipCreated, f.dispatcher.events[0].Type)
	assert.Equal(t, start, f.dispatcher.events[0].Timestamp)
	assert.Equal(t, events.EventRelationshipRemoved, f.dispatcher.events[1].Type)
	assert.Equal(t, start.Add(time.Minute), f.dispatcher.events[1].Timestamp)
}

func TestChannelProfile(t *testing.T) {
	f := newRelFixture(t, nil)
	ctx := context.Background()
	channel := f.user(t, "chan")
	viewer := f.user(t, "viewer")
	other := f.user(t, "other")
	followed := f.user(t, "followed")

	for _, sub := range []string{viewer, other} {
		_, err := f.svc.ToggleSubscription(ctx, sub, channel)
		require.NoError(t, err)
	}
	_, err := f.svc.ToggleSubscription(ctx, channel, followed)
	require.NoError(t, err)

	profile, err := f.svc.ChannelProfile(ctx, viewer, " CHAN ")
	require.NoError(t, err)
	assert.Equal(t, channel, profile.User.ID)
	assert.Equal(t, "chan", profile.User.Username)
	assert.Equal(t, "chan@example.com", profile.Email)
	assert.Equal(t, int64(2), profile.SubscribersCount)
	assert.Equal(t, int64(1), profile.SubscribedToCount)
	assert.True(t, profile.IsSubscribed)

	profile, err = f.svc.ChannelProfile(ctx, followed, "chan")
	require.NoError(t, err)
	assert.False(t, profile.IsSubscribed)

	profile, err = f.svc.ChannelProfile(ctx, channel, "chan")
	require.NoError(t, err)
	assert.False(t, profile.IsSubscribed)

	_, err = f.svc.ChannelProfile(ctx, viewer, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ChannelProfile(ctx, viewer, "  ")
	assert.Error(t, err)
}

func TestChannelProfileStorageFailure(t *testing.T) {
	boom := errors.New("connection refused")
	f := newRelFixture(t, func(inner repository.RelationshipRepository) repository.RelationshipRepository {
		return brokenStore{RelationshipRepository: inner, err: boom}
	})
	f.user(t, "chan")

	_, err := f.svc.ChannelProfile(context.Background(), "", "chan")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}
