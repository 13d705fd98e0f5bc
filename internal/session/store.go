// Package session owns the client's authentication token: where it is
// persisted, how it is read and replaced, and who gets told when it changes.
//
// A Store is the single authority for "is this client authenticated". The
// request pipeline reads it before every call and clears it when the API
// answers 401; the route guard subscribes to its change events.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by a Backend when its slot holds no token.
var ErrNotFound = errors.New("no session token stored")

// Backend persists the raw token in one named slot.
type Backend interface {
	// Load returns the stored token or ErrNotFound.
	Load() (string, error)
	// Save replaces the stored token.
	Save(token string) error
	// Delete empties the slot. Deleting an empty slot is not an error.
	Delete() error
}

// Store reads and replaces the session token and broadcasts a change event
// after every replacement.
type Store struct {
	backend Backend
	log     zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewStore creates a Store on top of the given backend
func NewStore(backend Backend, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		log:     log,
		subs:    make(map[int]func()),
	}
}

// Token reads the current token from persistent storage. It is re-read on
// every call so that changes made by other processes are visible.
func (s *Store) Token() (string, bool) {
	token, err := s.backend.Load()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Msg("Failed to read session token")
		}
		return "", false
	}
	if token == "" {
		return "", false
	}
	return token, true
}

// SetToken stores token, or deletes the stored token when token is empty.
// A change event is broadcast after every call, including repeated calls
// with the same value and calls whose write failed.
func (s *Store) SetToken(token string) error {
	var err error
	if token == "" {
		err = s.backend.Delete()
	} else {
		err = s.backend.Save(token)
	}

	s.broadcast()

	if err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	return nil
}

// Clear deletes the stored token
func (s *Store) Clear() error {
	return s.SetToken("")
}

// Subscribe registers fn to be called after every token change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// broadcast calls subscribers in registration order, outside the lock so a
// subscriber may read the token or unsubscribe.
func (s *Store) broadcast() {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
