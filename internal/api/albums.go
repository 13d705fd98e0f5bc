package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListAlbums returns the caller's albums
func (c *Client) ListAlbums(ctx context.Context) ([]Album, error) {
	var albums []Album
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/albums/"}, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// CreateAlbum creates a new album
func (c *Client) CreateAlbum(ctx context.Context, title string) (*Album, error) {
	var album Album
	err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/albums/",
		Body:   JSON(map[string]string{"title": title}),
	}, &album)
	if err != nil {
		return nil, err
	}
	return &album, nil
}

func (c *Client) RenameAlbum(ctx context.Context, albumID, title string) (*Album, error) {
	var album Album
	err := c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   "/albums/" + url.PathEscape(albumID),
		Body:   JSON(map[string]string{"title": title}),
	}, &album)
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// DeleteAlbum deletes an album together with its photos
func (c *Client) DeleteAlbum(ctx context.Context, albumID string) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: "/albums/" + url.PathEscape(albumID)}, nil)
}

// AlbumCover returns a presigned URL of the album's latest photo
func (c *Client) AlbumCover(ctx context.Context, albumID string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/albums/" + url.PathEscape(albumID) + "/cover"}, &resp)
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}
