package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/media-service/internal/api/dto"
	"github.com/spec-kit/media-service/internal/auth"
	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/service"
	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

// CookieConfig controls how session cookies are written.
type CookieConfig struct {
	Secure bool
}

// UsersHandler exposes account and session endpoints.
type UsersHandler struct {
	auth    *service.AuthService
	profile *service.ProfileService
	cookies CookieConfig
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, profileService *service.ProfileService, cookies CookieConfig) *UsersHandler {
	return &UsersHandler{auth: authService, profile: profileService, cookies: cookies}
}

// Register handles POST /api/v1/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if missing := missingFields(
		"username", req.Username,
		"email", req.Email,
		"fullName", req.FullName,
		"password", req.Password,
	); len(missing) > 0 {
		return apperrors.NewValidationError("all fields are required", map[string]any{"missing": missing})
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /api/v1/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		return apperrors.NewValidationError("username or email and password required", nil)
	}

	user, pair, err := h.auth.Login(c.UserContext(), identifier, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, pair)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.NewAuthResponse(pair),
		},
	})
}

// RefreshToken handles POST /api/v1/users/refresh-token. The token is read
// from the refreshToken cookie, falling back to the JSON body.
func (h *UsersHandler) RefreshToken(c *fiber.Ctx) error {
	presented := c.Cookies(auth.RefreshCookie)
	if presented == "" {
		var req dto.RefreshRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return apperrors.NewValidationError("invalid payload", nil)
			}
		}
		presented = strings.TrimSpace(req.RefreshToken)
	}
	if presented == "" {
		return apperrors.NewUnauthorized("missing refresh token")
	}

	pair, err := h.auth.Refresh(c.UserContext(), presented)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, pair)
	return c.JSON(fiber.Map{"data": dto.NewAuthResponse(pair)})
}

// Logout handles POST /api/v1/users/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), principal.IdentityID); err != nil {
		return err
	}

	h.clearSessionCookies(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"loggedOut": true}})
}

// ChangePassword handles PATCH /api/v1/users/change-password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("oldPassword and newPassword required", nil)
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.IdentityID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	h.clearSessionCookies(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"passwordChanged": true}})
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h *UsersHandler) CurrentUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	user, err := h.auth.CurrentUser(c.UserContext(), principal.IdentityID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateAccountDetails handles PATCH /api/v1/users/update-account-details.
func (h *UsersHandler) UpdateAccountDetails(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if missing := missingFields("fullName", req.FullName, "email", req.Email); len(missing) > 0 {
		return apperrors.NewValidationError("all fields are required", map[string]any{"missing": missing})
	}

	user, err := h.profile.UpdateAccountDetails(c.UserContext(), principal.IdentityID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ImageUploadURL handles POST /api/v1/users/images/:kind/upload-url.
func (h *UsersHandler) ImageUploadURL(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UploadURLRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	upload, err := h.profile.UploadURL(c.UserContext(), principal.IdentityID, domain.ImageKind(c.Params("kind")), req.ContentType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UploadURLResponse{UploadURL: upload.URL, Key: upload.Key}})
}

// AttachImage handles PATCH /api/v1/users/images/:kind.
func (h *UsersHandler) AttachImage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AttachImageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Key == "" {
		return apperrors.NewValidationError("key required", nil)
	}

	user, err := h.profile.AttachImage(c.UserContext(), principal.IdentityID, domain.ImageKind(c.Params("kind")), req.Key)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func (h *UsersHandler) setSessionCookies(c *fiber.Ctx, pair *domain.TokenPair) {
	c.Cookie(h.cookie(auth.AccessCookie, pair.AccessToken, pair.AccessExpiresAt))
	c.Cookie(h.cookie(auth.RefreshCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func (h *UsersHandler) clearSessionCookies(c *fiber.Ctx) {
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		cookie := h.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		c.Cookie(cookie)
	}
}

func (h *UsersHandler) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// missingFields takes name, value pairs and returns the names of blank values.
func missingFields(pairs ...string) []string {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	return missing
}
