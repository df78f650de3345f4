package plex

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileTokenStoreLoadMissingFile(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "missing.json"))

	state, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state != (AuthState{}) {
		t.Fatalf("expected zero state, got %#v", state)
	}
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileTokenStore(path)

	expected := AuthState{
		AuthorizationToken: "auth",
		ClientIdentifier:   "client",
		LinkedAt:           time.Now().UTC().Round(time.Second),
	}
	if err := store.Save(expected); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AuthorizationToken != expected.AuthorizationToken {
		t.Fatalf("authorization mismatch: got %q want %q", got.AuthorizationToken, expected.AuthorizationToken)
	}
	if got.ClientIdentifier != expected.ClientIdentifier {
		t.Fatalf("client id mismatch: got %q want %q", got.ClientIdentifier, expected.ClientIdentifier)
	}
	if !got.LinkedAt.Equal(expected.LinkedAt) {
		t.Fatalf("linked-at mismatch: got %v want %v", got.LinkedAt, expected.LinkedAt)
	}
}
