// Package storage holds photo and avatar bytes. Clients never send bytes
// through the API for photos: they receive a presigned URL and talk to the
// store directly.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nuagevault/nuagevault/internal/config"
)

// ErrNotFound is returned when an object key does not exist
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is an object store with presigned URL support
type Store interface {
	// PresignPut returns a URL accepting one PUT of key with contentType
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// PresignGet returns a URL for reading key without credentials
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
}

// New creates the store selected by cfg. signer is only used by the disk backend.
func New(ctx context.Context, cfg config.StorageConfig, publicURL string, signer Signer) (Store, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	case "disk", "":
		return NewDiskStore(cfg.Dir, publicURL, signer)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// PhotoKey is the object key for a photo
func PhotoKey(userID, photoID string) string {
	return "photos/" + userID + "/" + photoID
}

// AvatarKey is the object key for a user's avatar
func AvatarKey(userID string) string {
	return "avatars/" + userID
}
