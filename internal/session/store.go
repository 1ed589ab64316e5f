// Package session holds the current refresh credential of each identity. The
// stored value is the single source of truth for refresh-token validity: a
// token that verifies but does not equal the stored value has been rotated out.
package session

import (
	"context"
	"errors"
)

// ErrStale is returned by Rotate when the slot no longer holds the presented
// token, including when the slot is empty.
var ErrStale = errors.New("refresh token superseded")

// Store is a single-slot-per-identity refresh credential store. Implementations
// must serialise Rotate per identity. Stores that track identities return
// domain.ErrNotFound from Rotate for an unknown identity.
type Store interface {
	Current(ctx context.Context, identityID string) (string, bool, error)
	Set(ctx context.Context, identityID, token string) error
	Rotate(ctx context.Context, identityID, presented, next string) error
	Clear(ctx context.Context, identityID string) error
}
