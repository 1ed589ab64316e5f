package domain

import "time"

// UserSummary is the public part of an identity shown in listings.
type UserSummary struct {
	ID        string
	Username  string
	FullName  string
	AvatarURL string
}

// Summary returns the public listing view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

// SubscriptionEntry is one row of a subscriber or subscribed-channel listing:
// the identity on the other end of the subscription and when it was made.
type SubscriptionEntry struct {
	User         UserSummary
	SubscribedAt time.Time
}

// ChannelProfile is a channel as seen by a viewer.
type ChannelProfile struct {
	User              UserSummary
	Email             string
	CoverImageURL     string
	SubscribersCount  int64
	SubscribedToCount int64
	IsSubscribed      bool
}
