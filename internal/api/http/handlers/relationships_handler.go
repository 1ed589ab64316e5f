package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/media-service/internal/api/dto"
	"github.com/spec-kit/media-service/internal/auth"
	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/service"
	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

// RelationshipsHandler exposes like and subscription endpoints.
type RelationshipsHandler struct {
	service *service.RelationshipService
}

// NewRelationshipsHandler constructs handler.
func NewRelationshipsHandler(relationshipService *service.RelationshipService) *RelationshipsHandler {
	return &RelationshipsHandler{service: relationshipService}
}

// ToggleVideoLike POST /api/v1/likes/toggle/video/:videoId.
func (h *RelationshipsHandler) ToggleVideoLike(c *fiber.Ctx) error {
	return h.toggle(c, domain.PredicateVideoLike, c.Params("videoId"))
}

// ToggleCommentLike POST /api/v1/likes/toggle/comment/:commentId.
func (h *RelationshipsHandler) ToggleCommentLike(c *fiber.Ctx) error {
	return h.toggle(c, domain.PredicateCommentLike, c.Params("commentId"))
}

// ToggleTweetLike POST /api/v1/likes/toggle/tweet/:tweetId.
func (h *RelationshipsHandler) ToggleTweetLike(c *fiber.Ctx) error {
	return h.toggle(c, domain.PredicatePostLike, c.Params("tweetId"))
}

// ToggleSubscription POST /api/v1/subscriptions/c/:channelId.
func (h *RelationshipsHandler) ToggleSubscription(c *fiber.Ctx) error {
	return h.toggle(c, domain.PredicateSubscription, c.Params("channelId"))
}

// LikedVideos GET /api/v1/likes/videos.
func (h *RelationshipsHandler) LikedVideos(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	rels, err := h.service.LikedVideos(c.UserContext(), principal.IdentityID, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRelationshipList(rels)})
}

// ChannelSubscribers GET /api/v1/subscriptions/c/:channelId.
func (h *RelationshipsHandler) ChannelSubscribers(c *fiber.Ctx) error {
	entries, err := h.service.ChannelSubscribers(c.UserContext(), c.Params("channelId"), parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubscriptionList(entries)})
}

// SubscribedChannels GET /api/v1/subscriptions/u/:subscriberId.
func (h *RelationshipsHandler) SubscribedChannels(c *fiber.Ctx) error {
	entries, err := h.service.SubscribedChannels(c.UserContext(), c.Params("subscriberId"), parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubscriptionList(entries)})
}

// ChannelProfile GET /api/v1/users/channel/:username.
func (h *RelationshipsHandler) ChannelProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	profile, err := h.service.ChannelProfile(c.UserContext(), principal.IdentityID, c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChannelProfileResponse(profile)})
}

// toggle copies the target id out of the request buffer since the stores may
// keep it after the handler returns.
func (h *RelationshipsHandler) toggle(c *fiber.Ctx, predicate domain.Predicate, targetID string) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	targetID = utils.CopyString(targetID)

	res, err := h.service.Toggle(c.UserContext(), principal.IdentityID, predicate, targetID)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Outcome == domain.ToggleCreated {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewToggleResponse(res)})
}

// parsePage reads page (1-based) and limit query parameters.
func parsePage(c *fiber.Ctx) service.Page {
	return service.PageNumber(parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), 0))
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
