package session

import (
	"context"

	"github.com/spec-kit/media-service/internal/repository"
)

// IdentityStore keeps the slot on the identity record itself.
type IdentityStore struct {
	users repository.UserRepository
}

// NewIdentityStore adapts a user repository.
func NewIdentityStore(users repository.UserRepository) *IdentityStore {
	return &IdentityStore{users: users}
}

var _ Store = (*IdentityStore)(nil)

func (s *IdentityStore) Current(ctx context.Context, identityID string) (string, bool, error) {
	token, err := s.users.GetRefreshToken(ctx, identityID)
	if err != nil {
		return "", false, err
	}
	if token == nil {
		return "", false, nil
	}
	return *token, true, nil
}

func (s *IdentityStore) Set(ctx context.Context, identityID, token string) error {
	return s.users.SetRefreshToken(ctx, identityID, &token)
}

func (s *IdentityStore) Rotate(ctx context.Context, identityID, presented, next string) error {
	swapped, err := s.users.SwapRefreshToken(ctx, identityID, presented, next)
	if err != nil {
		return err
	}
	if !swapped {
		return ErrStale
	}
	return nil
}

// Clear empties the slot. Clearing an already empty slot succeeds.
func (s *IdentityStore) Clear(ctx context.Context, identityID string) error {
	return s.users.SetRefreshToken(ctx, identityID, nil)
}
