package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/media-service/internal/auth"
	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/events"
	"github.com/spec-kit/media-service/internal/repository"
	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// PageNumber converts a 1-based page number and page size into a Page.
func PageNumber(number, limit int) Page {
	p := Page{Limit: limit}.normalize()
	if number > 1 {
		p.Offset = (number - 1) * p.Limit
	}
	return p
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// RelationshipService toggles likes and subscriptions. All four predicates go
// through the same Toggle so the uniqueness handling is shared.
type RelationshipService struct {
	users      repository.UserRepository
	rels       repository.RelationshipRepository
	targets    repository.TargetRepository
	dispatcher events.Dispatcher
	clock      auth.Clock
}

// RelationshipDependencies encapsulates collaborators for the relationship service.
type RelationshipDependencies struct {
	UserRepo         repository.UserRepository
	RelationshipRepo repository.RelationshipRepository
	TargetRepo       repository.TargetRepository
	Dispatcher       events.Dispatcher
	Clock            auth.Clock
}

// NewRelationshipService builds the service.
func NewRelationshipService(deps RelationshipDependencies) *RelationshipService {
	clock := deps.Clock
	if clock == nil {
		clock = auth.SystemClock{}
	}
	return &RelationshipService{
		users:      deps.UserRepo,
		rels:       deps.RelationshipRepo,
		targets:    deps.TargetRepo,
		dispatcher: deps.Dispatcher,
		clock:      clock,
	}
}

// Toggle removes the relationship when present and creates it otherwise.
//
// The delete is conditional and reports whether a row went away, so no read
// precedes the branch. A unique violation on insert means a concurrent toggle
// won: if its record is visible the call fails with ErrConflict, otherwise the
// insert is attempted once more.
func (s *RelationshipService) Toggle(ctx context.Context, subjectID string, predicate domain.Predicate, targetID string) (*domain.ToggleResult, error) {
	key, err := s.validate(ctx, subjectID, predicate, targetID)
	if err != nil {
		return nil, err
	}

	writeCtx := context.WithoutCancel(ctx)
	removed, err := s.rels.Delete(writeCtx, key)
	if err != nil {
		return nil, storageFailure(err)
	}
	if removed {
		s.publish(ctx, events.EventRelationshipRemoved, key)
		return &domain.ToggleResult{Outcome: domain.ToggleRemoved}, nil
	}

	rel, err := s.insert(writeCtx, key)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventRelationshipCreated, key)
	return &domain.ToggleResult{Outcome: domain.ToggleCreated, Relationship: rel}, nil
}

// ToggleVideoLike toggles a like on a video.
func (s *RelationshipService) ToggleVideoLike(ctx context.Context, subjectID, videoID string) (*domain.ToggleResult, error) {
	return s.Toggle(ctx, subjectID, domain.PredicateVideoLike, videoID)
}

// ToggleCommentLike toggles a like on a comment.
func (s *RelationshipService) ToggleCommentLike(ctx context.Context, subjectID, commentID string) (*domain.ToggleResult, error) {
	return s.Toggle(ctx, subjectID, domain.PredicateCommentLike, commentID)
}

// TogglePostLike toggles a like on a post.
func (s *RelationshipService) TogglePostLike(ctx context.Context, subjectID, postID string) (*domain.ToggleResult, error) {
	return s.Toggle(ctx, subjectID, domain.PredicatePostLike, postID)
}

// ToggleSubscription toggles a subscription to a channel.
func (s *RelationshipService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (*domain.ToggleResult, error) {
	return s.Toggle(ctx, subscriberID, domain.PredicateSubscription, channelID)
}

// LikedVideos lists video likes made by subjectID, newest first.
func (s *RelationshipService) LikedVideos(ctx context.Context, subjectID string, page Page) ([]domain.Relationship, error) {
	if !validID(subjectID) {
		return nil, fmt.Errorf("%w: invalid subject id", domain.ErrInvalidTarget)
	}
	page = page.normalize()
	rels, err := s.rels.ListBySubject(ctx, subjectID, domain.PredicateVideoLike, page.Limit, page.Offset)
	if err != nil {
		return nil, storageFailure(err)
	}
	return rels, nil
}

// ChannelSubscribers lists the identities subscribed to channelID, newest
// subscription first.
func (s *RelationshipService) ChannelSubscribers(ctx context.Context, channelID string, page Page) ([]domain.SubscriptionEntry, error) {
	if !validID(channelID) {
		return nil, fmt.Errorf("%w: invalid channel id", domain.ErrInvalidTarget)
	}
	page = page.normalize()
	rels, err := s.rels.ListByTarget(ctx, domain.PredicateSubscription, channelID, page.Limit, page.Offset)
	if err != nil {
		return nil, storageFailure(err)
	}
	return s.withProfiles(ctx, rels, func(r domain.Relationship) string { return r.SubjectID })
}

// SubscribedChannels lists the channels subscriberID is subscribed to, newest
// subscription first.
func (s *RelationshipService) SubscribedChannels(ctx context.Context, subscriberID string, page Page) ([]domain.SubscriptionEntry, error) {
	if !validID(subscriberID) {
		return nil, fmt.Errorf("%w: invalid subscriber id", domain.ErrInvalidTarget)
	}
	page = page.normalize()
	rels, err := s.rels.ListBySubject(ctx, subscriberID, domain.PredicateSubscription, page.Limit, page.Offset)
	if err != nil {
		return nil, storageFailure(err)
	}
	return s.withProfiles(ctx, rels, func(r domain.Relationship) string { return r.TargetID })
}

// ChannelProfile loads the channel owned by username with its subscription
// counts. IsSubscribed reports whether viewerID subscribes to it; an empty
// viewerID leaves it false.
func (s *RelationshipService) ChannelProfile(ctx context.Context, viewerID, username string) (*domain.ChannelProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", nil)
	}

	channel, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storageFailure(err)
	}

	subscribers, err := s.rels.CountByTarget(ctx, domain.PredicateSubscription, channel.ID)
	if err != nil {
		return nil, storageFailure(err)
	}
	subscribedTo, err := s.rels.CountBySubject(ctx, channel.ID, domain.PredicateSubscription)
	if err != nil {
		return nil, storageFailure(err)
	}

	profile := &domain.ChannelProfile{
		User:              channel.Summary(),
		Email:             channel.Email,
		CoverImageURL:     channel.CoverImageURL,
		SubscribersCount:  subscribers,
		SubscribedToCount: subscribedTo,
	}
	if viewerID != "" && viewerID != channel.ID {
		profile.IsSubscribed, err = s.rels.Exists(ctx, domain.RelationshipKey{
			SubjectID: viewerID,
			Predicate: domain.PredicateSubscription,
			TargetID:  channel.ID,
		})
		if err != nil {
			return nil, storageFailure(err)
		}
	}
	return profile, nil
}

// withProfiles resolves the identity on the far end of each relationship in
// one lookup. Relationships whose identity has gone are skipped.
func (s *RelationshipService) withProfiles(ctx context.Context, rels []domain.Relationship, other func(domain.Relationship) string) ([]domain.SubscriptionEntry, error) {
	ids := make([]string, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, other(r))
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storageFailure(err)
	}
	byID := make(map[string]domain.UserSummary, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Summary()
	}

	entries := make([]domain.SubscriptionEntry, 0, len(rels))
	for _, r := range rels {
		summary, ok := byID[other(r)]
		if !ok {
			continue
		}
		entries = append(entries, domain.SubscriptionEntry{User: summary, SubscribedAt: r.CreatedAt})
	}
	return entries, nil
}

func (s *RelationshipService) validate(ctx context.Context, subjectID string, predicate domain.Predicate, targetID string) (domain.RelationshipKey, error) {
	key := domain.RelationshipKey{SubjectID: subjectID, Predicate: predicate, TargetID: targetID}

	kind, ok := predicate.Target()
	if !ok {
		return key, fmt.Errorf("%w: unknown predicate %q", domain.ErrInvalidTarget, predicate)
	}
	if !validID(subjectID) || !validID(targetID) {
		return key, fmt.Errorf("%w: malformed id", domain.ErrInvalidTarget)
	}
	if kind == domain.TargetChannel && subjectID == targetID {
		return key, fmt.Errorf("%w: cannot subscribe to own channel", domain.ErrInvalidTarget)
	}

	if _, err := s.users.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return key, fmt.Errorf("%w: subject does not exist", domain.ErrInvalidTarget)
		}
		return key, storageFailure(err)
	}

	exists, err := s.targets.Exists(ctx, kind, targetID)
	if err != nil {
		return key, storageFailure(err)
	}
	if !exists {
		return key, fmt.Errorf("%w: %s does not exist", domain.ErrInvalidTarget, kind)
	}
	return key, nil
}

func (s *RelationshipService) insert(ctx context.Context, key domain.RelationshipKey) (*domain.Relationship, error) {
	for attempt := 0; attempt < 2; attempt++ {
		rel := &domain.Relationship{
			ID:        uuid.NewString(),
			SubjectID: key.SubjectID,
			Predicate: key.Predicate,
			TargetID:  key.TargetID,
		}
		err := s.rels.Insert(ctx, rel)
		if err == nil {
			return rel, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, storageFailure(err)
		}

		exists, err := s.rels.Exists(ctx, key)
		if err != nil {
			return nil, storageFailure(err)
		}
		if exists {
			break
		}
	}
	return nil, fmt.Errorf("%w: concurrent toggle on the same relationship", domain.ErrConflict)
}

func (s *RelationshipService) publish(ctx context.Context, eventType events.EventType, key domain.RelationshipKey) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(context.WithoutCancel(ctx), events.Event{
		Type:       eventType,
		IdentityID: key.SubjectID,
		Timestamp:  s.clock.Now(),
		Payload:    events.RelationshipPayload{Predicate: key.Predicate, TargetID: key.TargetID},
	})
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
