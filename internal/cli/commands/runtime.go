package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/cli/albumselect"
	"github.com/nuagevault/nuagevault/internal/cli/userconfig"
	"github.com/nuagevault/nuagevault/internal/logger"
	"github.com/nuagevault/nuagevault/internal/session"
	"github.com/nuagevault/nuagevault/internal/upload"
)

const (
	// APIURLEnv overrides the configured API address
	APIURLEnv = "NUAGEVAULT_API_URL"
	// TokenStoreEnv selects the session backend (keyring or file)
	TokenStoreEnv = "NUAGEVAULT_TOKEN_STORE"
)

// APIClient is the API surface used by the commands. *api.Client implements it.
type APIClient interface {
	BaseURL() string
	Health(ctx context.Context) (*api.Health, error)

	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string) (*api.RegisterResponse, error)
	Logout() error
	VerifyEmail(ctx context.Context, email, token string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error

	ListAlbums(ctx context.Context) ([]api.Album, error)
	CreateAlbum(ctx context.Context, title string) (*api.Album, error)
	RenameAlbum(ctx context.Context, albumID, title string) (*api.Album, error)
	DeleteAlbum(ctx context.Context, albumID string) error
	AlbumCover(ctx context.Context, albumID string) (string, error)

	ListPhotos(ctx context.Context, albumID string, opts api.ListPhotosOptions) (*api.PhotoPage, error)
	ListAllPhotos(ctx context.Context, albumID string) ([]api.Photo, error)
	RequestUploadTicket(ctx context.Context, req api.UploadTicketRequest) (*api.UploadTicket, error)
	FinalizePhoto(ctx context.Context, photoID string) (*api.Photo, error)
	DeletePhoto(ctx context.Context, photoID string) error

	Me(ctx context.Context) (*api.User, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error)
	UploadAvatar(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	ChangePassword(ctx context.Context, current, next string) error
	DeleteAccount(ctx context.Context) error

	Stats(ctx context.Context) (*api.Stats, error)
}

// Uploader runs direct uploads and downloads. *upload.Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, albumID string, file *upload.File, progress upload.Progress) (*upload.Result, error)
	UploadAll(ctx context.Context, albumID string, items []upload.Item, parallel int) []upload.ItemResult
	Download(ctx context.Context, getURL string, w io.Writer) (int64, error)
}

// SessionStore is the session as seen by the commands. *session.Store implements it.
type SessionStore interface {
	Token() (string, bool)
	SetToken(token string) error
	Clear() error
	Subscribe(fn func()) (unsubscribe func())
}

// Runtime carries the dependencies of one command invocation
type Runtime struct {
	BaseURL  string
	Session  SessionStore
	Client   APIClient
	Uploader Uploader
	Albums   *albumselect.Selector
	Out      io.Writer
	Log      zerolog.Logger

	readPassword func(label string) (string, error)
	confirm      func(label string) (bool, error)
	openBrowser  func(url string) error
	albumPrompt  albumselect.PromptFunc
}

// Option configures a Runtime
type Option func(*Runtime)

func WithBaseURL(baseURL string) Option {
	return func(rt *Runtime) {
		rt.BaseURL = baseURL
	}
}

func WithSession(s SessionStore) Option {
	return func(rt *Runtime) {
		rt.Session = s
	}
}

func WithClient(c APIClient) Option {
	return func(rt *Runtime) {
		rt.Client = c
	}
}

func WithUploader(u Uploader) Option {
	return func(rt *Runtime) {
		rt.Uploader = u
	}
}

func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.Out = w
	}
}

// WithPasswordReader replaces the terminal password prompt
func WithPasswordReader(fn func(label string) (string, error)) Option {
	return func(rt *Runtime) {
		rt.readPassword = fn
	}
}

// WithConfirm replaces the interactive yes/no prompt
func WithConfirm(fn func(label string) (bool, error)) Option {
	return func(rt *Runtime) {
		rt.confirm = fn
	}
}

func WithBrowser(fn func(url string) error) Option {
	return func(rt *Runtime) {
		rt.openBrowser = fn
	}
}

// WithAlbumPrompt replaces the interactive album picker
func WithAlbumPrompt(fn albumselect.PromptFunc) Option {
	return func(rt *Runtime) {
		rt.albumPrompt = fn
	}
}

// apiURLFlag is bound to the root's --api-url flag
var apiURLFlag string

// SetAPIURL overrides the API address for every command (root --api-url flag)
func SetAPIURL(url string) {
	apiURLFlag = url
}

func newRuntime(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		Out:          os.Stdout,
		Log:          logger.GetLogger(),
		readPassword: promptPassword,
		confirm:      promptConfirm,
		openBrowser:  openBrowser,
	}
	for _, opt := range opts {
		opt(rt)
	}

	if rt.BaseURL == "" {
		baseURL, err := resolveBaseURL()
		if err != nil {
			return nil, err
		}
		rt.BaseURL = baseURL
	}
	rt.BaseURL = api.ResolveBaseURL(rt.BaseURL)

	if rt.Session == nil {
		tokenFile, err := userconfig.TokenFilePath()
		if err != nil {
			return nil, err
		}
		backend, err := session.NewBackend(os.Getenv(TokenStoreEnv), rt.BaseURL, tokenFile)
		if err != nil {
			return nil, err
		}
		rt.Session = session.NewStore(backend, rt.Log)
	}

	if rt.Client == nil {
		rt.Client = api.New(rt.BaseURL, rt.Session, api.WithLogger(rt.Log))
	}

	if rt.Uploader == nil {
		rt.Uploader = upload.New(rt.Client, upload.WithLogger(rt.Log))
	}

	if rt.Albums == nil {
		rt.Albums = albumselect.New(rt.Client, rt.albumPrompt, os.Stderr)
	}

	return rt, nil
}

// resolveBaseURL applies the override order: --api-url, NUAGEVAULT_API_URL,
// user config, default
func resolveBaseURL() (string, error) {
	if apiURLFlag != "" {
		return apiURLFlag, nil
	}
	if env := os.Getenv(APIURLEnv); env != "" {
		return env, nil
	}
	cfg, err := userconfig.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load user config: %w", err)
	}
	return cfg.APIURL, nil
}
