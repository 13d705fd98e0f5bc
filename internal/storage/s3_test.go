package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Store_RequiresBucketAndCredentials(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Options{Region: "us-east-1"})
	assert.Error(t, err)

	_, err = NewS3Store(context.Background(), S3Options{Bucket: "photos", Region: "us-east-1"})
	assert.Error(t, err)
}

func TestS3Store_PresignedURLs(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Options{
		Bucket:          "photos",
		Region:          "us-east-1",
		Endpoint:        "http://minio.local:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	putURL, err := store.PresignPut(context.Background(), "photos/u1/p1", "image/jpeg", 15*time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(putURL)
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", parsed.Host)
	assert.Equal(t, "/photos/photos/u1/p1", parsed.Path, "custom endpoints use path-style addressing")
	assert.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))
	assert.True(t, strings.HasPrefix(parsed.Query().Get("X-Amz-Credential"), "AKIDEXAMPLE/"))

	getURL, err := store.PresignGet(context.Background(), "photos/u1/p1", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, getURL, "X-Amz-Expires=3600")
}
