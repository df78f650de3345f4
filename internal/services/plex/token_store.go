package plex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AuthState is the persisted result of a PIN device link.
type AuthState struct {
	AuthorizationToken string    `json:"authorization_token"`
	ClientIdentifier   string    `json:"client_identifier"`
	LinkedAt           time.Time `json:"linked_at,omitempty"`
}

// TokenStore abstracts persistence for link state.
type TokenStore interface {
	Load() (AuthState, error)
	Save(AuthState) error
}

// FileTokenStore writes link state to a JSON file on disk.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore builds a FileTokenStore rooted at the provided path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the state file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads link state from disk. A missing file resolves to an empty state.
func (s *FileTokenStore) Load() (AuthState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AuthState{}, nil
		}
		return AuthState{}, fmt.Errorf("read plex auth state: %w", err)
	}

	var state AuthState
	if err := json.Unmarshal(data, &state); err != nil {
		return AuthState{}, fmt.Errorf("decode plex auth state: %w", err)
	}
	return state, nil
}

// Save persists link state to disk readable only by the owner.
func (s *FileTokenStore) Save(state AuthState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure auth state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plex auth state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write plex auth state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace plex auth state: %w", err)
	}
	return nil
}
