package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuagevault/nuagevault/internal/api"
	"github.com/nuagevault/nuagevault/internal/config"
	"github.com/nuagevault/nuagevault/internal/mailer"
	"github.com/nuagevault/nuagevault/internal/session"
)

const testPassword = "correct horse"

// recordingMailer keeps sent messages in memory
type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// lastToken returns the --token argument of the most recent message
func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages, "no email sent")

	fields := strings.Fields(m.messages[len(m.messages)-1].Body)
	for i, field := range fields {
		if field == "--token" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	t.Fatal("email carries no token")
	return ""
}

// fakeEnqueuer records enqueued tasks
type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: task.Type()}, nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

type testEnv struct {
	server *Server
	http   *httptest.Server
	mail   *recordingMailer
	tasks  *fakeEnqueuer
}

type testOption func(*config.Config)

func withoutAutoVerify() testOption {
	return func(cfg *config.Config) {
		cfg.Auth.AutoVerifyUsers = false
	}
}

func withoutFinalize() testOption {
	return func(cfg *config.Config) {
		cfg.Storage.FinalizeRequired = false
	}
}

func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:         "0",
			PublicAPIURL: "http://localhost:8000",
			PublicUIURL:  "http://ui.test",
			CORSOrigins:  []string{"http://ui.test"},
		},
		Database: config.DatabaseConfig{URL: filepath.Join(dir, "test.sqlite")},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			TokenTTL:        time.Hour,
			AutoVerifyUsers: true,
		},
		Storage: config.StorageConfig{
			Backend:          "disk",
			Dir:              filepath.Join(dir, "objects"),
			FinalizeRequired: true,
			PresignTTL:       15 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	env := &testEnv{mail: &recordingMailer{}, tasks: &fakeEnqueuer{}}
	srv, err := New(cfg, zerolog.Nop(), "test", WithMailer(env.mail), WithEnqueuer(env.tasks))
	require.NoError(t, err)

	env.server = srv
	env.http = httptest.NewServer(srv.Handler())
	srv.SetPublicURL(env.http.URL)

	t.Cleanup(func() {
		env.http.Close()
		srv.Close()
	})
	return env
}

// client returns an anonymous API client with its own session
func (e *testEnv) client() (*api.Client, *session.Store) {
	store := session.NewStore(session.NewMemoryBackend(), zerolog.Nop())
	return api.New(e.http.URL, store), store
}

// signup registers email (auto-verified) and returns a logged-in client
func (e *testEnv) signup(t *testing.T, email string) (*api.Client, *session.Store) {
	t.Helper()
	client, store := e.client()
	_, err := client.Register(context.Background(), email, testPassword)
	require.NoError(t, err)
	_, ok := store.Token()
	require.True(t, ok, "auto-verified signup should log in")
	return client, store
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.http.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.client()

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Timestamp.IsZero())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		token      string
		wantDetail string
	}{
		{name: "no header", token: "", wantDetail: "Not authenticated"},
		{name: "garbage token", token: "not-a-jwt", wantDetail: "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.get(t, "/albums/", tt.token)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.wantDetail)
		})
	}
}

func TestUnauthorizedClearsClientSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, store := env.signup(t, "ann@example.com")
	token, _ := store.Token()

	// A second device holding the same token deletes the account
	other, otherStore := env.client()
	require.NoError(t, otherStore.SetToken(token))
	require.NoError(t, other.DeleteAccount(ctx))

	_, err := client.ListAlbums(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	_, ok := store.Token()
	assert.False(t, ok, "401 must clear the session")
}

func TestDatabaseErrorKeepsClientSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, store := env.signup(t, "ann@example.com")
	token, _ := store.Token()

	// The user lookup now fails for a reason unrelated to the token
	require.NoError(t, env.server.GetDB().Exec("DROP TABLE users").Error)

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, api.ErrUnauthorized)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	got, ok := store.Token()
	assert.True(t, ok, "a server fault must not log the client out")
	assert.Equal(t, token, got)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.http.URL+"/albums/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://ui.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.signup(t, "ann@example.com")

	album, err := client.CreateAlbum(context.Background(), "Trip")
	require.NoError(t, err)
	_, err = client.RequestUploadTicket(context.Background(), api.UploadTicketRequest{
		AlbumID: album.AlbumID, Filename: "a.jpg", ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	resp := env.get(t, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `nuagevault_http_requests_total{method="POST",route="/albums/",status="201"} 1`)
	assert.Contains(t, body, "nuagevault_upload_tickets_total 1")
}

func TestJWTSecretPersistedWhenUnset(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{PublicAPIURL: "http://localhost:8000", CORSOrigins: []string{"http://ui.test"}},
		Database: config.DatabaseConfig{URL: filepath.Join(dir, "test.sqlite")},
		Auth:     config.AuthConfig{TokenTTL: time.Hour},
		Storage:  config.StorageConfig{Backend: "disk", Dir: filepath.Join(dir, "objects"), PresignTTL: time.Minute},
	}

	first, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	token, err := first.tokens.GenerateToken("u1", "a@b.c")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	defer second.Close()

	_, err = second.tokens.ValidateToken(token)
	assert.NoError(t, err, "tokens survive a restart")
}
