package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/media-service/internal/config"
)

func minioConfig() config.StorageConfig {
	return config.StorageConfig{
		Bucket:            "media",
		Region:            "us-east-1",
		Endpoint:          "http://localhost:9000",
		AccessKey:         "minioadmin",
		SecretKey:         "minioadmin",
		PresignTTLMinutes: 5,
	}
}

func TestNewS3StorageRequiresConfig(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.StorageConfig{Bucket: "media"})
	assert.Error(t, err)
}

func TestPresignUploadPathStyle(t *testing.T) {
	store, err := NewS3Storage(context.Background(), minioConfig())
	require.NoError(t, err)

	url, err := store.PresignUpload(context.Background(), "users/u-1/avatar/abc", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/media/users/u-1/avatar/abc?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=300")
}

func TestPublicURL(t *testing.T) {
	store, err := NewS3Storage(context.Background(), minioConfig())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/media/users/u-1/cover/x", store.PublicURL("users/u-1/cover/x"))

	cfg := minioConfig()
	cfg.PublicBaseURL = "https://cdn.example.com/"
	store, err = NewS3Storage(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/users/u-1/cover/x", store.PublicURL("/users/u-1/cover/x"))

	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com",
		publicBase(config.StorageConfig{Bucket: "media", Region: "eu-west-1"}))
}
