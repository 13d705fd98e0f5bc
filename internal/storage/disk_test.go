package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSigner struct {
	calls []string
}

func (s *recordingSigner) SignObject(key, op, contentType string, ttl time.Duration) (string, error) {
	s.calls = append(s.calls, op+":"+key+":"+contentType)
	return "sig-" + op, nil
}

func newTestDiskStore(t *testing.T) (*DiskStore, *recordingSigner) {
	t.Helper()
	signer := &recordingSigner{}
	store, err := NewDiskStore(t.TempDir(), "http://api.test/", signer)
	require.NoError(t, err)
	return store, signer
}

func TestDiskStore_PresignURLs(t *testing.T) {
	store, signer := newTestDiskStore(t)
	ctx := context.Background()

	putURL, err := store.PresignPut(ctx, "photos/u1/p1", "image/jpeg", time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(putURL)
	require.NoError(t, err)
	assert.Equal(t, "api.test", parsed.Host)
	assert.Equal(t, "/objects/photos/u1/p1", parsed.Path)
	assert.Equal(t, "sig-put", parsed.Query().Get("sig"))

	getURL, err := store.PresignGet(ctx, "photos/u1/p1", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, getURL, "sig=sig-get")

	assert.Equal(t, []string{"put:photos/u1/p1:image/jpeg", "get:photos/u1/p1:"}, signer.calls)

	store.SetBaseURL("http://127.0.0.1:9999")
	moved, err := store.PresignGet(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(moved, "http://127.0.0.1:9999/objects/k?"))
}

func TestDiskStore_PutStatOpenDelete(t *testing.T) {
	store, _ := newTestDiskStore(t)
	ctx := context.Background()

	_, err := store.Stat(ctx, "photos/u1/p1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Put(ctx, "photos/u1/p1", "image/png", strings.NewReader("pixels"), 6))

	info, err := store.Stat(ctx, "photos/u1/p1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)
	assert.Equal(t, "image/png", info.ContentType)

	rc, _, err := store.Open("photos/u1/p1")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "pixels", string(data))

	require.NoError(t, store.Delete(ctx, "photos/u1/p1"))
	require.NoError(t, store.Delete(ctx, "photos/u1/p1"), "deleting twice succeeds")

	_, _, err = store.Open("photos/u1/p1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDiskStore_KeysStayInsideDir(t *testing.T) {
	store, _ := newTestDiskStore(t)

	path, err := store.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, store.dir))

	_, err = store.path("")
	assert.Error(t, err)
	_, err = store.path("photos/x.meta")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "photos/u1/p1", PhotoKey("u1", "p1"))
	assert.Equal(t, "avatars/u1", AvatarKey("u1"))
}
