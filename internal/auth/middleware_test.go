package auth

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/media-service/internal/domain"
	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

type stubAuthenticator map[string]error

func (s stubAuthenticator) Authenticate(token string) (string, error) {
	if err, ok := s[token]; ok && err != nil {
		return "", err
	}
	if _, ok := s[token]; !ok {
		return "", domain.ErrMalformedToken
	}
	return "id-" + token, nil
}

func newMiddlewareApp(authn Authenticator) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	m := NewAuthMiddleware(authn)
	app.Get("/me", m.Handle, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return fmt.Errorf("principal missing")
		}
		return c.SendString(p.IdentityID)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := newMiddlewareApp(stubAuthenticator{"good": nil, "old": domain.ErrTokenExpired})

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK, "id-good"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"}) }, http.StatusOK, "id-good"},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer old") }, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"malformed", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, http.StatusUnauthorized, "MALFORMED_TOKEN"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.status, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.body, string(body))
		})
	}
}
