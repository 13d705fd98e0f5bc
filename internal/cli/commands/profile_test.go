package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/nuagevault/nuagevault/internal/api"
)

func TestRunProfileUpdate(t *testing.T) {
	client := &mockClient{user: &api.User{Email: "me@example.com"}}
	rt, out := newTestRuntime(t, client, "tok")

	name := "Ada"
	if err := runProfileUpdate(context.Background(), rt, api.ProfileUpdate{DisplayName: &name}); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !strings.Contains(out.String(), "Display name: Ada") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	if err := runProfileUpdate(context.Background(), rt, api.ProfileUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}
}

func TestRunStats(t *testing.T) {
	client := &mockClient{stats: &api.Stats{Albums: 2, Photos: 5, StorageMB: 12.5}}
	rt, out := newTestRuntime(t, client, "tok")

	if err := runStats(context.Background(), rt); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	for _, want := range []string{"Albums:  2", "Photos:  5", "Storage: 12.50 MB"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output, got:\n%s", want, out.String())
		}
	}
}

func TestRunOpen(t *testing.T) {
	t.Setenv(UIURLEnv, "")
	var opened string
	client := &mockClient{}
	rt, _ := newTestRuntime(t, client, "", WithBrowser(func(url string) error {
		opened = url
		return nil
	}))

	if err := runOpen(rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened != "http://api.test" {
		t.Errorf("expected API address to be opened, got %q", opened)
	}
}

func TestRunStatus(t *testing.T) {
	client := &mockClient{}
	rt, out := newTestRuntime(t, client, "tok")

	if err := runStatus(context.Background(), rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Server:  ok") || !strings.Contains(out.String(), "Session: logged in") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
