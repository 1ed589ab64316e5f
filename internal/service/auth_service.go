package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/media-service/internal/auth"
	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/events"
	"github.com/spec-kit/media-service/internal/repository"
	"github.com/spec-kit/media-service/internal/session"
	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

// RegisterInput carries the fields of a new identity.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// AuthService drives the per-identity session lifecycle: login issues a pair
// and fills the refresh slot, refresh rotates it, logout empties it.
type AuthService struct {
	users      repository.UserRepository
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	clock      auth.Clock
	bcryptCost int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	Sessions     session.Store
	TokenManager *auth.TokenManager
	Dispatcher   events.Dispatcher
	Clock        auth.Clock
	BcryptCost   int
}

// NewAuthService builds the service. Sessions default to the identity record slot.
func NewAuthService(deps AuthDependencies) *AuthService {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewIdentityStore(deps.UserRepo)
	}
	clock := deps.Clock
	if clock == nil {
		clock = auth.SystemClock{}
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   sessions,
		tokenMgr:   deps.TokenManager,
		dispatcher: deps.Dispatcher,
		clock:      clock,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates a new identity with no active session. Usernames may not
// contain '@' so a login identifier never names one user's username and
// another's email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	user := &domain.User{
		Username: strings.ToLower(strings.TrimSpace(in.Username)),
		Email:    strings.TrimSpace(in.Email),
		FullName: strings.TrimSpace(in.FullName),
	}
	if strings.Contains(user.Username, "@") {
		return nil, apperrors.NewValidationError("username may not contain '@'", map[string]any{"username": user.Username})
	}
	if !validEmail(user.Email) {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": user.Email})
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(context.WithoutCancel(ctx), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: username or email already registered", domain.ErrConflict)
		}
		return nil, storageFailure(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Username: user.Username,
		Email:    user.Email,
	})
	return user, nil
}

// Login authenticates by username or email and starts a session, replacing any
// previous refresh credential of the identity.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.users.GetByLogin(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, storageFailure(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokenMgr.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.Set(context.WithoutCancel(ctx), user.ID, pair.RefreshToken); err != nil {
		return nil, nil, storageFailure(err)
	}

	s.publish(ctx, events.EventSessionStarted, user.ID, events.SessionPayload{RefreshExpiresAt: pair.RefreshExpiresAt})
	return user, pair, nil
}

// Refresh exchanges the presented refresh token for a new pair. Only the token
// currently held in the slot is accepted; a verified but superseded token is
// reported as ErrTokenExpired.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*domain.TokenPair, error) {
	identityID, err := s.tokenMgr.Verify(presented, domain.TokenKindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	pair, err := s.tokenMgr.IssuePair(identityID)
	if err != nil {
		return nil, err
	}

	err = s.sessions.Rotate(context.WithoutCancel(ctx), identityID, presented, pair.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrStale):
		s.publish(ctx, events.EventRefreshReuseDetected, identityID, nil)
		return nil, domain.ErrTokenExpired
	case errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("%w: identity no longer exists", domain.ErrUnauthorized)
	default:
		return nil, storageFailure(err)
	}

	s.publish(ctx, events.EventSessionRefreshed, identityID, events.SessionPayload{RefreshExpiresAt: pair.RefreshExpiresAt})
	return pair, nil
}

// Logout empties the refresh slot. Repeating it is harmless.
func (s *AuthService) Logout(ctx context.Context, identityID string) error {
	if err := s.sessions.Clear(context.WithoutCancel(ctx), identityID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return storageFailure(err)
	}
	s.publish(ctx, events.EventSessionEnded, identityID, nil)
	return nil
}

// Authenticate verifies an access token without consulting any store.
func (s *AuthService) Authenticate(accessToken string) (string, error) {
	return s.tokenMgr.Verify(accessToken, domain.TokenKindAccess)
}

// ChangePassword replaces the password hash and retires every outstanding
// refresh token of the identity.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return storageFailure(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	writeCtx := context.WithoutCancel(ctx)
	if err := s.users.UpdatePassword(writeCtx, identityID, hash); err != nil {
		return storageFailure(err)
	}
	if err := s.sessions.Clear(writeCtx, identityID); err != nil {
		return storageFailure(err)
	}
	s.publish(ctx, events.EventSessionEnded, identityID, nil)
	return nil
}

// CurrentUser loads the identity behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, identityID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storageFailure(err)
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, identityID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(context.WithoutCancel(ctx), events.Event{
		Type:       eventType,
		IdentityID: identityID,
		Timestamp:  s.clock.Now(),
		Payload:    payload,
	})
}

// validEmail is a shape check only; ownership is never verified.
func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func storageFailure(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}
