package session

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// failingBackend fails every write
type failingBackend struct {
	MemoryBackend
}

func (f *failingBackend) Save(string) error { return errors.New("disk full") }
func (f *failingBackend) Delete() error     { return errors.New("disk full") }

func newTestStore() *Store {
	return NewStore(NewMemoryBackend(), nopLogger())
}

func TestStore_LastSetWins(t *testing.T) {
	tests := []struct {
		name      string
		sequence  []string
		wantToken string
		wantOK    bool
	}{
		{name: "empty store", sequence: nil, wantOK: false},
		{name: "single set", sequence: []string{"a"}, wantToken: "a", wantOK: true},
		{name: "overwrite", sequence: []string{"a", "b", "c"}, wantToken: "c", wantOK: true},
		{name: "set then clear", sequence: []string{"a", ""}, wantOK: false},
		{name: "clear then set", sequence: []string{"", "z"}, wantToken: "z", wantOK: true},
		{name: "clear twice", sequence: []string{"a", "", ""}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			for _, token := range tt.sequence {
				if err := store.SetToken(token); err != nil {
					t.Fatalf("SetToken(%q) returned error: %v", token, err)
				}
			}

			got, ok := store.Token()
			if ok != tt.wantOK || got != tt.wantToken {
				t.Errorf("Token() = (%q, %v), want (%q, %v)", got, ok, tt.wantToken, tt.wantOK)
			}
		})
	}
}

func TestStore_BroadcastsOncePerCall(t *testing.T) {
	store := newTestStore()

	var events int
	store.Subscribe(func() { events++ })

	store.SetToken("x")
	store.SetToken("x")

	if events != 2 {
		t.Errorf("expected 2 change events for 2 identical SetToken calls, got %d", events)
	}
	if got, _ := store.Token(); got != "x" {
		t.Errorf("expected token 'x', got %q", got)
	}

	store.Clear()
	if events != 3 {
		t.Errorf("expected Clear to broadcast, got %d events", events)
	}
}

func TestStore_SubscriberSeesNewValue(t *testing.T) {
	store := newTestStore()

	var seen []string
	store.Subscribe(func() {
		token, _ := store.Token()
		seen = append(seen, token)
	})

	store.SetToken("first")
	store.Clear()
	store.SetToken("second")

	want := []string{"first", "", "second"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d (%v)", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d saw %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestStore_AllSubscribersNotified(t *testing.T) {
	store := newTestStore()

	var order []int
	store.Subscribe(func() { order = append(order, 1) })
	store.Subscribe(func() { order = append(order, 2) })
	store.Subscribe(func() { order = append(order, 3) })

	store.SetToken("t")

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected subscribers called in registration order, got %v", order)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	store := newTestStore()

	var events int
	unsubscribe := store.Subscribe(func() { events++ })

	store.SetToken("a")
	unsubscribe()
	unsubscribe() // second call is a no-op
	store.SetToken("b")

	if events != 1 {
		t.Errorf("expected 1 event before unsubscribing, got %d", events)
	}
}

func TestStore_BroadcastsEvenWhenWriteFails(t *testing.T) {
	store := NewStore(&failingBackend{}, nopLogger())

	var events int
	store.Subscribe(func() { events++ })

	if err := store.SetToken("a"); err == nil {
		t.Error("expected error from failing backend")
	}
	if err := store.Clear(); err == nil {
		t.Error("expected error from failing backend")
	}
	if events != 2 {
		t.Errorf("expected 2 events, got %d", events)
	}
}

func TestNewBackend(t *testing.T) {
	if _, err := NewBackend("keyring", "http://localhost:8000", ""); err != nil {
		t.Errorf("keyring backend: unexpected error %v", err)
	}
	if _, err := NewBackend("", "http://localhost:8000", ""); err != nil {
		t.Errorf("default backend: unexpected error %v", err)
	}
	if b, err := NewBackend("file", "http://localhost:8000", "/tmp/tokens.json"); err != nil {
		t.Errorf("file backend: unexpected error %v", err)
	} else if _, ok := b.(*FileBackend); !ok {
		t.Errorf("expected *FileBackend, got %T", b)
	}
	if _, err := NewBackend("cookie-jar", "http://localhost:8000", ""); err == nil {
		t.Error("expected error for unknown backend kind")
	}
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
