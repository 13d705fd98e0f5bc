package api

import (
	"context"
	"net/http"
)

// Stats returns usage counters for the dashboard
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/stats/"}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
