package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListPhotosOptions pages through an album. Zero values use server defaults.
type ListPhotosOptions struct {
	Limit   int
	LastKey string
}

// ListPhotos returns one page of ready photos in an album
func (c *Client) ListPhotos(ctx context.Context, albumID string, opts ListPhotosOptions) (*PhotoPage, error) {
	query := url.Values{}
	query.Set("album_id", albumID)
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.LastKey != "" {
		query.Set("last_key", opts.LastKey)
	}

	var page PhotoPage
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/photos/", Query: query}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAllPhotos follows next_key until the album is exhausted
func (c *Client) ListAllPhotos(ctx context.Context, albumID string) ([]Photo, error) {
	var (
		photos []Photo
		opts   ListPhotosOptions
	)
	for {
		page, err := c.ListPhotos(ctx, albumID, opts)
		if err != nil {
			return nil, err
		}
		photos = append(photos, page.Items...)
		if page.NextKey == "" || page.NextKey == opts.LastKey {
			return photos, nil
		}
		opts.LastKey = page.NextKey
	}
}

// RequestUploadTicket asks the server for a presigned PUT URL
func (c *Client) RequestUploadTicket(ctx context.Context, req UploadTicketRequest) (*UploadTicket, error) {
	var ticket UploadTicket
	err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/photos/upload-url",
		Body:   JSON(req),
	}, &ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FinalizePhoto tells the server the object has been uploaded
func (c *Client) FinalizePhoto(ctx context.Context, photoID string) (*Photo, error) {
	var photo Photo
	err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/photos/" + url.PathEscape(photoID) + "/finalize",
	}, &photo)
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

func (c *Client) DeletePhoto(ctx context.Context, photoID string) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: "/photos/" + url.PathEscape(photoID)}, nil)
}
