package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/guard"
)

var (
	// ErrLoginRequired is returned when a protected command runs without a session
	ErrLoginRequired = errors.New("not logged in: run 'nuagevault login'")

	// ErrSessionExpired is returned when the API rejected the session mid-command
	ErrSessionExpired = errors.New("session expired: run 'nuagevault login' again")
)

// runGuarded evaluates path with the route guard before running fn.
// Protected paths fail without a session; public paths show the landing
// view instead when a session exists.
func runGuarded(ctx context.Context, rt *Runtime, path string, fn func() error) error {
	g := guard.New(rt.Session, nil)
	defer g.Close()

	outcome := g.Navigate(path)
	rt.Log.Debug().
		Str("path", path).
		Str("decision", outcome.Decision.String()).
		Str("target", outcome.Target).
		Msg("Route guard")

	switch outcome.Decision {
	case guard.RedirectLogin:
		return ErrLoginRequired
	case guard.RedirectLanding:
		fmt.Fprintln(rt.Out, "Already logged in.")
		return runAlbumList(ctx, rt)
	}

	err := fn()
	if errors.Is(err, api.ErrUnauthorized) && !g.Authenticated() {
		return ErrSessionExpired
	}
	return err
}
