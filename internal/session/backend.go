package session

import "fmt"

// Backend kinds accepted by NewBackend
const (
	KindKeyring = "keyring"
	KindFile    = "file"
	KindMemory  = "memory"
)

// NewBackend builds the backend named by kind for the API at baseURL.
// tokenFile is only used by the file backend.
func NewBackend(kind, baseURL, tokenFile string) (Backend, error) {
	switch kind {
	case "", KindKeyring:
		return NewKeyringBackend(baseURL), nil
	case KindFile:
		return NewFileBackend(tokenFile, baseURL), nil
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown token store %q (expected keyring, file or memory)", kind)
	}
}
