package domain

import "time"

// User is the identity aggregate. RefreshToken is the single stored refresh
// credential; nil means the identity has no active session.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ImageKind selects which profile image is addressed.
type ImageKind string

const (
	ImageKindAvatar ImageKind = "avatar"
	ImageKindCover  ImageKind = "cover"
)

// Valid reports whether k is a known image kind.
func (k ImageKind) Valid() bool {
	return k == ImageKindAvatar || k == ImageKindCover
}
