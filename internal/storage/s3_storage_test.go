package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(baseURL string) *S3Storage {
	return NewS3Storage(context.Background(), "ap-south-1", "pos-images", "AKIDEXAMPLE", "secret", baseURL)
}

func TestPresignProductImage(t *testing.T) {
	s := newTestStorage("")

	upload, err := s.PresignProductImage(context.Background(), "shampoo.PNG", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, ProductImageFolder+"/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Contains(t, upload.UploadURL, upload.Key)
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "https://pos-images.s3.ap-south-1.amazonaws.com/"+upload.Key, upload.FileURL)
	assert.False(t, upload.ExpiresAt.IsZero())
}

func TestPresignProductImage_BaseURLAndDefaultExtension(t *testing.T) {
	s := newTestStorage("https://cdn.example.com/")

	upload, err := s.PresignProductImage(context.Background(), "photo", "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(upload.Key, ".jpg"))
	assert.Equal(t, "https://cdn.example.com/"+upload.Key, upload.FileURL)
}

func TestPresignProductImage_RejectsNonImages(t *testing.T) {
	s := newTestStorage("")

	_, err := s.PresignProductImage(context.Background(), "price-list.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}
