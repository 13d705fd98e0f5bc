package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/cli/userconfig"
	"github.com/nuagevault/nuagevault/internal/session"
	"github.com/nuagevault/nuagevault/internal/upload"
)

// mockClient implements APIClient. Methods not overridden panic through the
// nil embedded interface, which flags unexpected calls.
type mockClient struct {
	APIClient

	session SessionStore
	calls   []string

	user       *api.User
	albums     []api.Album
	photos     []api.Photo
	stats      *api.Stats
	register   *api.RegisterResponse
	err        error
	loginToken string
	deleted    []string
}

func (m *mockClient) record(name string) {
	m.calls = append(m.calls, name)
}

func (m *mockClient) BaseURL() string { return "http://api.test" }

func (m *mockClient) Health(ctx context.Context) (*api.Health, error) {
	m.record("Health")
	if m.err != nil {
		return nil, m.err
	}
	return &api.Health{Status: "ok"}, nil
}

func (m *mockClient) Login(ctx context.Context, email, password string) error {
	m.record("Login")
	if m.err != nil {
		return m.err
	}
	return m.session.SetToken(m.loginToken)
}

func (m *mockClient) Register(ctx context.Context, email, password string) (*api.RegisterResponse, error) {
	m.record("Register")
	if m.err != nil {
		return nil, m.err
	}
	if m.register.AccessToken != "" {
		m.session.SetToken(m.register.AccessToken)
	}
	return m.register, nil
}

func (m *mockClient) Logout() error {
	m.record("Logout")
	return m.session.Clear()
}

func (m *mockClient) Me(ctx context.Context) (*api.User, error) {
	m.record("Me")
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockClient) ListAlbums(ctx context.Context) ([]api.Album, error) {
	m.record("ListAlbums")
	if m.err != nil {
		if api.StatusCode(m.err) == http.StatusUnauthorized {
			m.session.Clear()
		}
		return nil, m.err
	}
	return m.albums, nil
}

func (m *mockClient) DeleteAlbum(ctx context.Context, albumID string) error {
	m.record("DeleteAlbum")
	m.deleted = append(m.deleted, albumID)
	return nil
}

func (m *mockClient) CreateAlbum(ctx context.Context, title string) (*api.Album, error) {
	m.record("CreateAlbum")
	if m.err != nil {
		return nil, m.err
	}
	return &api.Album{AlbumID: "new", Title: title}, nil
}

func (m *mockClient) ListAllPhotos(ctx context.Context, albumID string) ([]api.Photo, error) {
	m.record("ListAllPhotos")
	return m.photos, nil
}

func (m *mockClient) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error) {
	m.record("UpdateProfile")
	user := *m.user
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	return &user, nil
}

func (m *mockClient) Stats(ctx context.Context) (*api.Stats, error) {
	m.record("Stats")
	return m.stats, nil
}

// mockUploader returns canned results per file name
type mockUploader struct {
	results map[string]upload.ItemResult
	albumID string
}

func (m *mockUploader) Upload(ctx context.Context, albumID string, file *upload.File, progress upload.Progress) (*upload.Result, error) {
	res := m.results[file.Name]
	return res.Result, res.Err
}

func (m *mockUploader) UploadAll(ctx context.Context, albumID string, items []upload.Item, parallel int) []upload.ItemResult {
	m.albumID = albumID
	out := make([]upload.ItemResult, len(items))
	for i, item := range items {
		if item.Progress != nil && m.results[item.File.Name].Result != nil {
			for _, sent := range []int64{0, 30, 60, 100} {
				item.Progress(sent, 100)
			}
		}
		out[i] = m.results[item.File.Name]
	}
	return out
}

func (m *mockUploader) Download(ctx context.Context, getURL string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "bytes:"+getURL)
	return int64(n), err
}

// newTestRuntime wires a runtime around client with an in-memory session
// holding token
func newTestRuntime(t *testing.T, client *mockClient, token string, opts ...Option) (*Runtime, *bytes.Buffer) {
	t.Helper()
	t.Setenv(userconfig.ConfigDirEnv, t.TempDir())

	store := session.NewStore(session.NewMemoryBackend(), zerolog.Nop())
	if token != "" {
		store.SetToken(token)
	}
	client.session = store

	var out bytes.Buffer
	base := []Option{
		WithBaseURL("http://api.test"),
		WithSession(store),
		WithClient(client),
		WithOutput(&out),
		WithPasswordReader(func(string) (string, error) { return "s3cret-pass", nil }),
		WithConfirm(func(string) (bool, error) { return true, nil }),
		WithBrowser(func(string) error { return nil }),
	}

	rt, err := newRuntime(append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create runtime: %v", err)
	}
	return rt, &out
}
