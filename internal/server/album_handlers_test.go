package server

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/upload"
)

func TestAlbums_CRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, _ := env.signup(t, "ann@example.com")

	albums, err := client.ListAlbums(ctx)
	require.NoError(t, err)
	assert.Empty(t, albums)

	trip := newAlbum(t, client, "  Trip  ")
	assert.Equal(t, "Trip", trip.Title)
	newAlbum(t, client, "Family")

	albums, err = client.ListAlbums(ctx)
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, "Trip", albums[0].Title)
	assert.Equal(t, "Family", albums[1].Title)

	renamed, err := client.RenameAlbum(ctx, trip.AlbumID, "Road trip")
	require.NoError(t, err)
	assert.Equal(t, "Road trip", renamed.Title)
	assert.Equal(t, trip.AlbumID, renamed.AlbumID)

	cover, err := client.AlbumCover(ctx, trip.AlbumID)
	require.NoError(t, err)
	assert.Empty(t, cover, "empty albums have no cover")

	require.NoError(t, client.DeleteAlbum(ctx, trip.AlbumID))
	albums, err = client.ListAlbums(ctx)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Family", albums[0].Title)
}

func TestAlbums_TitleValidation(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.signup(t, "ann@example.com")

	for _, title := range []string{"", "   ", strings.Repeat("x", 101), "tab\there"} {
		_, err := client.CreateAlbum(context.Background(), title)
		require.Error(t, err, "title %q", title)
		assert.Equal(t, 422, api.StatusCode(err))
		assert.Equal(t, "title must be 1 to 100 printable characters", err.Error())
	}
}

func TestAlbums_IsolatedPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann, _ := env.signup(t, "ann@example.com")
	bob, _ := env.signup(t, "bob@example.com")
	album := newAlbum(t, ann, "Private")

	albums, err := bob.ListAlbums(ctx)
	require.NoError(t, err)
	assert.Empty(t, albums)

	_, err = bob.RenameAlbum(ctx, album.AlbumID, "Mine now")
	require.Error(t, err)
	assert.Equal(t, 404, api.StatusCode(err))
	assert.Equal(t, "Album not found", err.Error())

	assert.Error(t, bob.DeleteAlbum(ctx, album.AlbumID))
	_, err = bob.AlbumCover(ctx, album.AlbumID)
	assert.Error(t, err)
}

func TestDeleteAlbum_RemovesPhotosAndObjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, _ := env.signup(t, "ann@example.com")
	album := newAlbum(t, client, "Trip")
	uploader := upload.New(client)

	result, err := uploader.Upload(ctx, album.AlbumID, upload.FromBytes("p.jpg", "image/jpeg", jpegBytes), nil)
	require.NoError(t, err)
	getURL := result.Photos[0].URL

	require.NoError(t, client.DeleteAlbum(ctx, album.AlbumID))

	_, err = uploader.Download(ctx, getURL, &bytes.Buffer{})
	assert.Error(t, err)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Photos)
}
