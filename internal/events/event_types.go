package events

import (
	"time"

	"github.com/spec-kit/media-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered       EventType = "user_registered"
	EventSessionStarted       EventType = "session_started"
	EventSessionRefreshed     EventType = "session_refreshed"
	EventRefreshReuseDetected EventType = "refresh_reuse_detected"
	EventSessionEnded         EventType = "session_ended"
	EventRelationshipCreated  EventType = "relationship_created"
	EventRelationshipRemoved  EventType = "relationship_removed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IdentityID string      `json:"identity_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SessionPayload payload for session lifecycle events.
type SessionPayload struct {
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitempty"`
}

// RelationshipPayload payload.
type RelationshipPayload struct {
	Predicate domain.Predicate `json:"predicate"`
	TargetID  string           `json:"target_id"`
}
