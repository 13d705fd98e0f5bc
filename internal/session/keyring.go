package session

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "nuagevault-cli"
)

// KeyringBackend keeps the token in the OS keychain/credential manager, one
// slot per API base URL.
type KeyringBackend struct {
	key string
}

// NewKeyringBackend returns a backend whose slot is scoped to baseURL
func NewKeyringBackend(baseURL string) *KeyringBackend {
	return &KeyringBackend{key: getKeyringKey(baseURL)}
}

// getKeyringKey returns a unique key for storing tokens per API instance
func getKeyringKey(baseURL string) string {
	return fmt.Sprintf("token-%s", baseURL)
}

// Load retrieves the token from the OS keychain/credential manager
func (k *KeyringBackend) Load() (string, error) {
	token, err := keyring.Get(service, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// Save persists the token securely in the OS keychain/credential manager
func (k *KeyringBackend) Save(token string) error {
	if err := keyring.Set(service, k.key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete removes the token from the OS keychain/credential manager
func (k *KeyringBackend) Delete() error {
	if err := keyring.Delete(service, k.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
