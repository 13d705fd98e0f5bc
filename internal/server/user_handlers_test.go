package server

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/upload"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func strPtr(s string) *string { return &s }

func TestProfile_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, _ := env.signup(t, "ann@example.com")

	user, err := client.UpdateProfile(ctx, api.ProfileUpdate{DisplayName: strPtr(" Ann "), Bio: strPtr("Photographer")})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.DisplayName)
	assert.Equal(t, "Photographer", user.Bio)

	// Omitted fields are left alone
	user, err = client.UpdateProfile(ctx, api.ProfileUpdate{Bio: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.DisplayName)
	assert.Empty(t, user.Bio)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ann", me.DisplayName)
}

func TestProfile_Avatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, _ := env.signup(t, "ann@example.com")

	url, err := client.UploadAvatar(ctx, "me.png", "image/png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.NotEmpty(t, url)

	var buf bytes.Buffer
	_, err = upload.New(client).Download(ctx, url, &buf)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, buf.Bytes())

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, me.AvatarURL)

	// The declared part type is not trusted
	_, err = client.UploadAvatar(ctx, "evil.png", "image/png", bytes.NewReader([]byte("just text")))
	require.Error(t, err)
	assert.Equal(t, "file must be an image", err.Error())
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, store := env.signup(t, "ann@example.com")

	err := client.ChangePassword(ctx, "wrong password", "new password 1")
	require.Error(t, err)
	assert.Equal(t, 400, api.StatusCode(err))
	assert.Equal(t, "wrong password", err.Error())
	_, ok := store.Token()
	assert.True(t, ok, "a wrong current password keeps the session")

	require.NoError(t, client.ChangePassword(ctx, testPassword, "new password 1"))

	fresh, _ := env.client()
	assert.Error(t, fresh.Login(ctx, "ann@example.com", testPassword))
	assert.NoError(t, fresh.Login(ctx, "ann@example.com", "new password 1"))
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, store := env.signup(t, "ann@example.com")
	album := newAlbum(t, client, "Trip")
	_, err := upload.New(client).Upload(ctx, album.AlbumID, upload.FromBytes("p.jpg", "image/jpeg", jpegBytes), nil)
	require.NoError(t, err)

	require.NoError(t, client.DeleteAccount(ctx))
	_, ok := store.Token()
	assert.False(t, ok)

	err = client.Login(ctx, "ann@example.com", testPassword)
	require.Error(t, err)
	assert.Equal(t, 401, api.StatusCode(err))

	// The address can be registered again
	env.signup(t, "ann@example.com")
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, _ := env.signup(t, "ann@example.com")
	album := newAlbum(t, client, "Trip")
	newAlbum(t, client, "Empty")

	uploader := upload.New(client)
	for _, name := range []string{"a.jpg", "b.jpg"} {
		_, err := uploader.Upload(ctx, album.AlbumID, upload.FromBytes(name, "image/jpeg", jpegBytes), nil)
		require.NoError(t, err)
	}

	// A pending ticket does not count
	_, err := client.RequestUploadTicket(ctx, api.UploadTicketRequest{
		AlbumID: album.AlbumID, Filename: "c.jpg", ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Albums)
	assert.Equal(t, int64(2), stats.Photos)
	assert.GreaterOrEqual(t, stats.StorageMB, 0.0)
	assert.False(t, stats.Timestamp.IsZero())
}
