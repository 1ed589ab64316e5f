package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/media-service/internal/events"
)

// AuditService writes session and relationship events to the log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionStarted, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionRefreshed, a.handleDebug)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.handleInfo)
	a.dispatcher.Subscribe(events.EventRefreshReuseDetected, a.handleReuse)
	a.dispatcher.Subscribe(events.EventRelationshipCreated, a.handleDebug)
	a.dispatcher.Subscribe(events.EventRelationshipRemoved, a.handleDebug)
}

func (a *AuditService) handleInfo(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), fields(event)...)
	return nil
}

func (a *AuditService) handleDebug(_ context.Context, event events.Event) error {
	a.logger.Debug(string(event.Type), fields(event)...)
	return nil
}

// A superseded refresh token was presented; either a replayed token or a lost race.
func (a *AuditService) handleReuse(_ context.Context, event events.Event) error {
	a.logger.Warn(string(event.Type), fields(event)...)
	return nil
}

func fields(event events.Event) []zap.Field {
	out := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("identity_id", event.IdentityID),
		zap.Time("at", event.Timestamp),
	}
	if event.Payload != nil {
		out = append(out, zap.Any("payload", event.Payload))
	}
	return out
}
