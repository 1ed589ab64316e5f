package domain

import "time"

// Predicate names the kind of relationship between a subject identity and a target.
type Predicate string

const (
	PredicateVideoLike    Predicate = "video_like"
	PredicateCommentLike  Predicate = "comment_like"
	PredicatePostLike     Predicate = "post_like"
	PredicateSubscription Predicate = "subscription"
)

// TargetKind is the entity a predicate points at.
type TargetKind string

const (
	TargetVideo   TargetKind = "video"
	TargetComment TargetKind = "comment"
	TargetPost    TargetKind = "post"
	TargetChannel TargetKind = "channel"
)

var predicateTargets = map[Predicate]TargetKind{
	PredicateVideoLike:    TargetVideo,
	PredicateCommentLike:  TargetComment,
	PredicatePostLike:     TargetPost,
	PredicateSubscription: TargetChannel,
}

// Target returns the target kind for p and false when p is unknown.
func (p Predicate) Target() (TargetKind, bool) {
	kind, ok := predicateTargets[p]
	return kind, ok
}

// RelationshipKey is the composite uniqueness key of a relationship.
type RelationshipKey struct {
	SubjectID string
	Predicate Predicate
	TargetID  string
}

// Relationship is a like or subscription fact about a (subject, target) pair.
type Relationship struct {
	ID        string
	SubjectID string
	Predicate Predicate
	TargetID  string
	CreatedAt time.Time
}

// Key returns the composite key of r.
func (r Relationship) Key() RelationshipKey {
	return RelationshipKey{SubjectID: r.SubjectID, Predicate: r.Predicate, TargetID: r.TargetID}
}

// ToggleOutcome reports what a toggle did.
type ToggleOutcome string

const (
	ToggleCreated ToggleOutcome = "created"
	ToggleRemoved ToggleOutcome = "removed"
)

// ToggleResult carries the outcome and, when created, the new record.
type ToggleResult struct {
	Outcome      ToggleOutcome
	Relationship *Relationship
}
