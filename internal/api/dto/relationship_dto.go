package dto

import (
	"time"

	"github.com/spec-kit/media-service/internal/domain"
)

// RelationshipResponse is a like or subscription record.
type RelationshipResponse struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	Predicate string    `json:"predicate"`
	TargetID  string    `json:"targetId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToggleResponse reports the toggle outcome.
type ToggleResponse struct {
	Outcome      string                `json:"outcome"`
	Relationship *RelationshipResponse `json:"relationship,omitempty"`
}

// NewRelationshipResponse maps a domain relationship.
func NewRelationshipResponse(r domain.Relationship) RelationshipResponse {
	return RelationshipResponse{
		ID:        r.ID,
		SubjectID: r.SubjectID,
		Predicate: string(r.Predicate),
		TargetID:  r.TargetID,
		CreatedAt: r.CreatedAt,
	}
}

// NewRelationshipList maps a page of relationships.
func NewRelationshipList(rels []domain.Relationship) []RelationshipResponse {
	out := make([]RelationshipResponse, 0, len(rels))
	for _, r := range rels {
		out = append(out, NewRelationshipResponse(r))
	}
	return out
}

// NewToggleResponse maps a toggle result.
func NewToggleResponse(res *domain.ToggleResult) ToggleResponse {
	resp := ToggleResponse{Outcome: string(res.Outcome)}
	if res.Relationship != nil {
		rel := NewRelationshipResponse(*res.Relationship)
		resp.Relationship = &rel
	}
	return resp
}

// UserSummaryResponse is the public listing view of an identity.
type UserSummaryResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar,omitempty"`
}

// SubscriptionEntryResponse is one row of a subscriber or channel listing.
type SubscriptionEntryResponse struct {
	User         UserSummaryResponse `json:"user"`
	SubscribedAt time.Time           `json:"subscribedAt"`
}

// ChannelProfileResponse is a channel with its subscription counts.
type ChannelProfileResponse struct {
	ID                        string `json:"id"`
	Username                  string `json:"username"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	AvatarURL                 string `json:"avatar,omitempty"`
	CoverImageURL             string `json:"coverImage,omitempty"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

func newUserSummaryResponse(u domain.UserSummary) UserSummaryResponse {
	return UserSummaryResponse{ID: u.ID, Username: u.Username, FullName: u.FullName, AvatarURL: u.AvatarURL}
}

// NewSubscriptionList maps a page of subscription entries.
func NewSubscriptionList(entries []domain.SubscriptionEntry) []SubscriptionEntryResponse {
	out := make([]SubscriptionEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, SubscriptionEntryResponse{User: newUserSummaryResponse(e.User), SubscribedAt: e.SubscribedAt})
	}
	return out
}

// NewChannelProfileResponse maps a channel profile.
func NewChannelProfileResponse(p *domain.ChannelProfile) ChannelProfileResponse {
	return ChannelProfileResponse{
		ID:                        p.User.ID,
		Username:                  p.User.Username,
		FullName:                  p.User.FullName,
		Email:                     p.Email,
		AvatarURL:                 p.User.AvatarURL,
		CoverImageURL:             p.CoverImageURL,
		SubscribersCount:          p.SubscribersCount,
		ChannelsSubscribedToCount: p.SubscribedToCount,
		IsSubscribed:              p.IsSubscribed,
	}
}
