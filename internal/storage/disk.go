package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Object operations carried in disk signatures
const (
	OpPut = "put"
	OpGet = "get"
)

// ObjectsPath is the API route prefix serving disk objects
const ObjectsPath = "/objects/"

// Signer signs and verifies disk object URLs
type Signer interface {
	SignObject(key, op, contentType string, ttl time.Duration) (string, error)
}

// DiskStore keeps objects under a directory and hands out signed URLs
// pointing at the API's /objects/ route. Used in development and tests.
type DiskStore struct {
	dir     string
	baseURL string
	signer  Signer
}

type diskMeta struct {
	ContentType string `json:"content_type"`
}

// NewDiskStore creates the directory if needed
func NewDiskStore(dir, baseURL string, signer Signer) (*DiskStore, error) {
	if signer == nil {
		return nil, fmt.Errorf("disk store requires a signer")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), signer: signer}, nil
}

// SetBaseURL changes the address used in signed URLs
func (d *DiskStore) SetBaseURL(baseURL string) {
	d.baseURL = strings.TrimRight(baseURL, "/")
}

// PresignPut returns a signed upload URL for key
func (d *DiskStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return d.signedURL(key, OpPut, contentType, ttl)
}

// PresignGet returns a signed download URL for key
func (d *DiskStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return d.signedURL(key, OpGet, "", ttl)
}

func (d *DiskStore) signedURL(key, op, contentType string, ttl time.Duration) (string, error) {
	sig, err := d.signer.SignObject(key, op, contentType, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign object url: %w", err)
	}
	return d.baseURL + ObjectsPath + key + "?" + url.Values{"sig": {sig}}.Encode(), nil
}

// Stat returns object metadata, or ErrNotFound
func (d *DiskStore) Stat(_ context.Context, key string) (ObjectInfo, error) {
	path, err := d.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, Size: fi.Size(), ContentType: d.contentType(path)}, nil
}

// Put writes r to key atomically
func (d *DiskStore) Put(_ context.Context, key, contentType string, r io.Reader, _ int64) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}

	meta, _ := json.Marshal(diskMeta{ContentType: contentType})
	if err := os.WriteFile(path+".meta", meta, 0644); err != nil {
		return fmt.Errorf("failed to write object metadata: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Open returns a reader for key, or ErrNotFound
func (d *DiskStore) Open(key string) (io.ReadCloser, ObjectInfo, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	return f, ObjectInfo{Key: key, Size: fi.Size(), ContentType: d.contentType(path)}, nil
}

// Delete removes key. Deleting a missing key succeeds.
func (d *DiskStore) Delete(_ context.Context, key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	for _, p := range []string{path, path + ".meta"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete object: %w", err)
		}
	}
	return nil
}

func (d *DiskStore) contentType(path string) string {
	data, err := os.ReadFile(path + ".meta")
	if err != nil {
		return ""
	}
	var meta diskMeta
	if json.Unmarshal(data, &meta) != nil {
		return ""
	}
	return meta.ContentType
}

// path maps key inside dir, rejecting traversal
func (d *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || strings.HasSuffix(key, ".meta") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.dir, filepath.FromSlash(clean)), nil
}
