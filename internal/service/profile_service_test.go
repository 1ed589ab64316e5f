package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/media-service/internal/domain"
	"github.com/spec-kit/media-service/internal/repository/memory"
	apperrors "github.com/spec-kit/media-service/pkg/util/errorutil"
)

type fakeObjects struct {
	err  error
	keys []string
}

func (f *fakeObjects) PresignUpload(_ context.Context, key, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://upload.example.com/" + key + "?sig=1", nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func errCode(err error) string {
	if de := apperrors.ToDomainError(err); de != nil {
		return de.Code
	}
	return ""
}

func newProfileUser(t *testing.T, users *memory.UserRepository) string {
	t.Helper()
	u := &domain.User{Username: "u1", Email: "u1@example.com"}
	require.NoError(t, users.Create(context.Background(), u))
	return u.ID
}

func TestUploadAndAttachAvatar(t *testing.T) {
	users := memory.NewUserRepository()
	objects := &fakeObjects{}
	svc := NewProfileService(users, objects)
	ctx := context.Background()
	id := newProfileUser(t, users)

	upload, err := svc.UploadURL(ctx, id, domain.ImageKindAvatar, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.Key, "users/"+id+"/avatar/"))
	assert.Contains(t, upload.URL, upload.Key)

	user, err := svc.AttachImage(ctx, id, domain.ImageKindAvatar, upload.Key)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+upload.Key, user.AvatarURL)
	assert.Empty(t, user.CoverImageURL)
}

func TestAttachRejectsForeignKey(t *testing.T) {
	users := memory.NewUserRepository()
	svc := NewProfileService(users, &fakeObjects{})
	id := newProfileUser(t, users)

	for _, key := range []string{
		"users/someone-else/avatar/x",
		"users/" + id + "/cover/x",
		"users/" + id + "/avatar/",
	} {
		_, err := svc.AttachImage(context.Background(), id, domain.ImageKindAvatar, key)
		de := apperrors.ToDomainError(err)
		require.NotNil(t, de, key)
		assert.Equal(t, "VALIDATION_FAILED", de.Code, key)
	}
}

func TestProfileServiceValidation(t *testing.T) {
	users := memory.NewUserRepository()
	id := newProfileUser(t, users)
	ctx := context.Background()

	_, err := NewProfileService(users, nil).UploadURL(ctx, id, domain.ImageKindAvatar, "")
	assert.Equal(t, "SERVICE_UNAVAILABLE", apperrors.ToDomainError(err).Code)

	svc := NewProfileService(users, &fakeObjects{})
	_, err = svc.UploadURL(ctx, id, domain.ImageKind("banner"), "")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = svc.UploadURL(ctx, id, domain.ImageKindCover, "application/pdf")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = NewProfileService(users, &fakeObjects{err: errors.New("no route")}).UploadURL(ctx, id, domain.ImageKindCover, "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}

func TestUpdateAccountDetails(t *testing.T) {
	users := memory.NewUserRepository()
	svc := NewProfileService(users, nil)
	ctx := context.Background()
	id := newProfileUser(t, users)
	require.NoError(t, users.Create(ctx, &domain.User{Username: "u2", Email: "u2@example.com"}))

	user, err := svc.UpdateAccountDetails(ctx, id, "  New Name ", " new@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
	assert.Equal(t, "new@example.com", user.Email)

	_, err = svc.UpdateAccountDetails(ctx, id, "New Name", "u2@example.com")
	assert.ErrorIs(t, err, domain.ErrConflict)

	for _, in := range [][2]string{{"", "x@example.com"}, {"Name", ""}, {"Name", "not-an-email"}} {
		_, err = svc.UpdateAccountDetails(ctx, id, in[0], in[1])
		assert.Equal(t, "VALIDATION_FAILED", errCode(err), in)
	}

	_, err = svc.UpdateAccountDetails(ctx, "ghost", "Name", "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
