package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

var errCorruptFile = errors.New("failed to parse token file")

// FileBackend keeps tokens in a 0600 JSON file keyed by API base URL, for
// hosts without a usable keyring (CI runners, containers).
type FileBackend struct {
	path string
	slot string

	mu      sync.Mutex
	corrupt bool // set by readForUpdate, cleared once the file is rewritten
}

// NewFileBackend returns a backend storing its slot for baseURL in path
func NewFileBackend(path, baseURL string) *FileBackend {
	return &FileBackend{path: path, slot: baseURL}
}

func (f *FileBackend) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return "", err
	}
	token, ok := tokens[f.slot]
	if !ok || token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (f *FileBackend) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.readForUpdate()
	if err != nil {
		return err
	}
	tokens[f.slot] = token
	return f.write(tokens)
}

func (f *FileBackend) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.readForUpdate()
	if err != nil {
		return err
	}
	if _, ok := tokens[f.slot]; !ok && !f.corrupt {
		return nil
	}
	delete(tokens, f.slot)
	return f.write(tokens)
}

func (f *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	tokens := map[string]string{}
	if len(data) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptFile, err)
	}
	return tokens, nil
}

// readForUpdate is read for Save and Delete: a corrupt file is discarded so
// the next write replaces it.
func (f *FileBackend) readForUpdate() (map[string]string, error) {
	tokens, err := f.read()
	f.corrupt = false
	if errors.Is(err, errCorruptFile) {
		log.Warn().Err(err).Str("path", f.path).Msg("Discarding unreadable token file")
		f.corrupt = true
		return map[string]string{}, nil
	}
	return tokens, err
}

// write replaces the file through a rename so readers in other processes
// never observe a partial write.
func (f *FileBackend) write(tokens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	f.corrupt = false
	return nil
}
