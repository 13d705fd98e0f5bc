package albumselect

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/cli/userconfig"
)

// Lister returns the caller's albums
type Lister interface {
	ListAlbums(ctx context.Context) ([]api.Album, error)
}

// PromptFunc asks the user to pick one of albums
type PromptFunc func(albums []api.Album) (*api.Album, error)

// Selector resolves which album a photo command operates on
type Selector struct {
	albums Lister
	prompt PromptFunc
	warn   io.Writer
}

// New creates a Selector. A nil prompt uses the interactive promptui picker.
func New(albums Lister, prompt PromptFunc, warn io.Writer) *Selector {
	if prompt == nil {
		prompt = PromptAlbumSelection
	}
	if warn == nil {
		warn = io.Discard
	}
	return &Selector{albums: albums, prompt: prompt, warn: warn}
}

// Resolve determines which album to use based on the following priority:
// 1. If ref is provided, the album with that ID or title
// 2. The album remembered in the user config, if it still exists
// 3. The only album, if there is exactly one
// 4. Otherwise, prompt the user to select one
func (s *Selector) Resolve(ctx context.Context, ref string) (*api.Album, error) {
	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}

	if ref != "" {
		album, err := FindAlbum(albums, ref)
		if err != nil {
			return nil, err
		}
		s.remember(album)
		return album, nil
	}

	lastID, err := userconfig.GetLastAlbum()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if lastID != "" {
		if album, err := FindAlbum(albums, lastID); err == nil {
			return album, nil
		}
		// remembered album is gone
		_ = userconfig.SetLastAlbum("")
	}

	switch len(albums) {
	case 0:
		return nil, fmt.Errorf("no albums yet: create one with 'nuagevault albums create <title>'")
	case 1:
		s.remember(&albums[0])
		return &albums[0], nil
	}

	album, err := s.prompt(albums)
	if err != nil {
		return nil, err
	}
	s.remember(album)
	return album, nil
}

func (s *Selector) remember(album *api.Album) {
	if err := userconfig.SetLastAlbum(album.AlbumID); err != nil {
		fmt.Fprintf(s.warn, "Warning: failed to save selected album: %v\n", err)
	}
}

// FindAlbum finds an album by ID, then by case-insensitive title
func FindAlbum(albums []api.Album, ref string) (*api.Album, error) {
	for i := range albums {
		if albums[i].AlbumID == ref {
			return &albums[i], nil
		}
	}
	for i := range albums {
		if strings.EqualFold(albums[i].Title, ref) {
			return &albums[i], nil
		}
	}
	return nil, fmt.Errorf("album '%s' not found", ref)
}

// PromptAlbumSelection shows an interactive prompt for the user to select an album
func PromptAlbumSelection(albums []api.Album) (*api.Album, error) {
	type albumOption struct {
		Label string
		Album *api.Album
	}

	options := make([]albumOption, len(albums))
	for i := range albums {
		options[i] = albumOption{
			Label: fmt.Sprintf("%s (%s)", albums[i].Title, albums[i].AlbumID),
			Album: &albums[i],
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select an album",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("album selection cancelled: %w", err)
	}

	return options[index].Album, nil
}
