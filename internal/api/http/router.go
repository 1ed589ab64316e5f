package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/media-service/internal/api/http/handlers"
	"github.com/spec-kit/media-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Relationships  *handlers.RelationshipsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1")
	api.Get("/healthcheck", cfg.Health.Healthcheck)

	users := api.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Post("/refresh-token", cfg.Users.RefreshToken)

	requireAuth := cfg.AuthMiddleware.Handle

	users.Post("/logout", requireAuth, cfg.Users.Logout)
	users.Patch("/change-password", requireAuth, cfg.Users.ChangePassword)
	users.Get("/current-user", requireAuth, cfg.Users.CurrentUser)
	users.Patch("/update-account-details", requireAuth, cfg.Users.UpdateAccountDetails)
	users.Get("/channel/:username", requireAuth, cfg.Relationships.ChannelProfile)
	users.Post("/images/:kind/upload-url", requireAuth, cfg.Users.ImageUploadURL)
	users.Patch("/images/:kind", requireAuth, cfg.Users.AttachImage)

	likes := api.Group("/likes", requireAuth)
	likes.Post("/toggle/video/:videoId", cfg.Relationships.ToggleVideoLike)
	likes.Post("/toggle/comment/:commentId", cfg.Relationships.ToggleCommentLike)
	likes.Post("/toggle/tweet/:tweetId", cfg.Relationships.ToggleTweetLike)
	likes.Get("/videos", cfg.Relationships.LikedVideos)

	subscriptions := api.Group("/subscriptions", requireAuth)
	subscriptions.Post("/c/:channelId", cfg.Relationships.ToggleSubscription)
	subscriptions.Get("/c/:channelId", cfg.Relationships.ChannelSubscribers)
	subscriptions.Get("/u/:subscriberId", cfg.Relationships.SubscribedChannels)
}
