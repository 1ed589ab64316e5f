package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Cookie names used to deliver session tokens.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Authenticator verifies access tokens without touching session storage.
type Authenticator interface {
	Authenticate(accessToken string) (string, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	IdentityID string
}

// AuthMiddleware validates access tokens and attaches the principal.
type AuthMiddleware struct {
	authenticator Authenticator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authenticator Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Handle enforces authentication for protected routes. The access token is read
// from the accessToken cookie first, then from a Bearer authorization header.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := accessTokenFrom(c)
	if err != nil {
		return err
	}

	identityID, err := m.authenticator.Authenticate(token)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{IdentityID: identityID})
	return c.Next()
}

func accessTokenFrom(c *fiber.Ctx) (string, error) {
	if cookie := c.Cookies(AccessCookie); cookie != "" {
		return cookie, nil
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("missing access token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
