package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringBackend(t *testing.T) {
	keyring.MockInit()

	backend := NewKeyringBackend("http://localhost:8000")

	if _, err := backend.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty keyring, got %v", err)
	}

	if err := backend.Save("tok-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := backend.Load()
	if err != nil || got != "tok-1" {
		t.Fatalf("Load() = (%q, %v), want (tok-1, nil)", got, err)
	}

	if err := backend.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := backend.Delete(); err != nil {
		t.Errorf("deleting an empty slot should succeed, got %v", err)
	}
	if _, err := backend.Load(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKeyringBackend_SlotsPerBaseURL(t *testing.T) {
	keyring.MockInit()

	prod := NewKeyringBackend("https://api.nuagevault.app")
	local := NewKeyringBackend("http://localhost:8000")

	prod.Save("prod-token")
	local.Save("local-token")

	if got, _ := prod.Load(); got != "prod-token" {
		t.Errorf("prod slot = %q", got)
	}
	if got, _ := local.Load(); got != "local-token" {
		t.Errorf("local slot = %q", got)
	}
}

func TestKeyringBackend_LoadError(t *testing.T) {
	keyring.MockInitWithError(errors.New("keychain locked"))
	defer keyring.MockInit()

	_, err := NewKeyringBackend("http://localhost:8000").Load()
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped keyring error, got %v", err)
	}
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nuagevault", "tokens.json")

	a := NewFileBackend(path, "http://a")
	b := NewFileBackend(path, "http://b")

	if _, err := a.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first write, got %v", err)
	}

	if err := a.Save("token-a"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := b.Save("token-b"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got, _ := a.Load(); got != "token-a" {
		t.Errorf("slot a = %q", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("token file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 token file, got %o", perm)
	}

	if err := a.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := a.Load(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected slot a to be empty, got %v", err)
	}
	if got, _ := b.Load(); got != "token-b" {
		t.Errorf("deleting slot a must keep slot b, got %q", got)
	}
}

func TestFileBackend_SharedAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	writer := NewStore(NewFileBackend(path, "http://api"), nopLogger())
	reader := NewStore(NewFileBackend(path, "http://api"), nopLogger())

	writer.SetToken("shared")
	if got, ok := reader.Token(); !ok || got != "shared" {
		t.Errorf("second store should observe the write, got (%q, %v)", got, ok)
	}

	writer.Clear()
	if _, ok := reader.Token(); ok {
		t.Error("second store should observe the clear")
	}
}

func TestFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(NewFileBackend(path, "http://api"), nopLogger())
	if _, ok := store.Token(); ok {
		t.Error("corrupt token file must read as anonymous")
	}

	if err := store.SetToken("fresh"); err != nil {
		t.Fatalf("SetToken over a corrupt file failed: %v", err)
	}
	if got, ok := store.Token(); !ok || got != "fresh" {
		t.Errorf("expected the new token after a corrupt file, got (%q, %v)", got, ok)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := store.Token(); ok {
		t.Error("token should be gone after Clear")
	}
}

func TestFileBackend_CorruptFileClearedByLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	b := NewFileBackend(path, "http://api")
	if err := b.Delete(); err != nil {
		t.Fatalf("Delete over a corrupt file failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("corrupt file should be replaced, got %q", data)
	}
}
