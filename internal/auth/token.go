package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"

	"github.com/spec-kit/media-service/internal/domain"
)

// Clock supplies the current time for issuing and expiry checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// TokenConfig holds the per-kind secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type kindParams struct {
	secret []byte
	ttl    time.Duration
}

// TokenManager issues and verifies access and refresh tokens.
type TokenManager struct {
	kinds map[domain.TokenKind]kindParams
	clock Clock
}

// NewTokenManager builds a new manager. A nil clock falls back to SystemClock.
func NewTokenManager(cfg TokenConfig, clock Clock) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenManager{
		kinds: map[domain.TokenKind]kindParams{
			domain.TokenKindAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			domain.TokenKindRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
		clock: clock,
	}, nil
}

// Claims describes JWT payload.
type Claims struct {
	Kind domain.TokenKind `json:"knd"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token of the given kind for identityID.
func (tm *TokenManager) Issue(identityID string, kind domain.TokenKind) (string, time.Time, error) {
	params, ok := tm.kinds[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	if identityID == "" {
		return "", time.Time{}, errors.New("identity id is required")
	}

	now := tm.clock.Now()
	expiresAt := now.Add(params.ttl)
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ksuid.New().String(),
			Subject:   identityID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(params.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// IssuePair issues a fresh access and refresh token for identityID.
func (tm *TokenManager) IssuePair(identityID string) (*domain.TokenPair, error) {
	access, accessExp, err := tm.Issue(identityID, domain.TokenKindAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := tm.Issue(identityID, domain.TokenKindRefresh)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks signature, expiry and kind and returns the embedded identity id.
// Failures are domain.ErrTokenExpired or domain.ErrMalformedToken.
func (tm *TokenManager) Verify(tokenStr string, kind domain.TokenKind) (string, error) {
	params, ok := tm.kinds[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown token kind %q", domain.ErrMalformedToken, kind)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return params.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	}
	if !parsed.Valid {
		return "", domain.ErrMalformedToken
	}
	if claims.Kind != kind {
		return "", fmt.Errorf("%w: kind mismatch", domain.ErrMalformedToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrMalformedToken)
	}
	return claims.Subject, nil
}

// TTL returns the configured lifetime for kind.
func (tm *TokenManager) TTL(kind domain.TokenKind) time.Duration {
	return tm.kinds[kind].ttl
}
