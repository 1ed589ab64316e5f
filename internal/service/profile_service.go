package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/repository"
	"github.com/spec-kit/media-service/internal/storage"
	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

// PresignedUpload carries the signed PUT URL and the object key to attach afterwards.
type PresignedUpload struct {
	URL string
	Key string
}

// ProfileService manages account details and the avatar and cover images.
type ProfileService struct {
	users   repository.UserRepository
	objects storage.ObjectStorage
}

// NewProfileService builds the service. A nil objects disables image uploads.
func NewProfileService(users repository.UserRepository, objects storage.ObjectStorage) *ProfileService {
	return &ProfileService{users: users, objects: objects}
}

// UpdateAccountDetails replaces the full name and email of an identity. Both
// are required.
func (s *ProfileService) UpdateAccountDetails(ctx context.Context, identityID, fullName, email string) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, apperrors.NewValidationError("fullName and email are required", nil)
	}
	if !validEmail(email) {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}

	if err := s.users.UpdateAccount(context.WithoutCancel(ctx), identityID, fullName, email); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrNotFound
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return nil, storageFailure(err)
	}

	user, err := s.users.GetByID(ctx, identityID)
	if err != nil {
		return nil, storageFailure(err)
	}
	return user, nil
}

// UploadURL presigns a PUT for a fresh key under the identity's prefix.
func (s *ProfileService) UploadURL(ctx context.Context, identityID string, kind domain.ImageKind, contentType string) (*PresignedUpload, error) {
	if err := s.check(kind); err != nil {
		return nil, err
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewValidationError("content type must be an image", map[string]any{"content_type": contentType})
	}

	key := imagePrefix(identityID, kind) + uuid.NewString()
	url, err := s.objects.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, storageFailure(err)
	}
	return &PresignedUpload{URL: url, Key: key}, nil
}

// AttachImage points the identity's avatar or cover at an uploaded object.
func (s *ProfileService) AttachImage(ctx context.Context, identityID string, kind domain.ImageKind, key string) (*domain.User, error) {
	if err := s.check(kind); err != nil {
		return nil, err
	}
	prefix := imagePrefix(identityID, kind)
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return nil, apperrors.NewValidationError("object key does not belong to caller", map[string]any{"key": key})
	}

	if err := s.users.UpdateImage(context.WithoutCancel(ctx), identityID, kind, s.objects.PublicURL(key)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storageFailure(err)
	}

	user, err := s.users.GetByID(ctx, identityID)
	if err != nil {
		return nil, storageFailure(err)
	}
	return user, nil
}

func (s *ProfileService) check(kind domain.ImageKind) error {
	if s.objects == nil {
		return apperrors.NewServiceUnavailable("image uploads are not configured")
	}
	if !kind.Valid() {
		return apperrors.NewValidationError("unknown image kind", map[string]any{"kind": kind})
	}
	return nil
}

func imagePrefix(identityID string, kind domain.ImageKind) string {
	return fmt.Sprintf("users/%s/%s/", identityID, kind)
}
