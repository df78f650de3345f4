package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"plexgif/internal/logging"
	"plexgif/internal/services"
)

// ArtifactNames are the scratch subtitle files a workspace may hold.
var ArtifactNames = []string{"subtitle.srt", "subtitle.sup"}

// Manager hands out scratch workspaces under one root directory.
type Manager struct {
	root   string
	shared bool
	slot   chan struct{}
	logger *slog.Logger

	mu       sync.Mutex
	active   map[string]struct{}
	slotHeld bool
}

// NewManager creates a manager rooted at root. With sharedSlot set, every
// workspace is the root itself and only one may be held at a time.
func NewManager(root string, sharedSlot bool, logger *slog.Logger) *Manager {
	return &Manager{
		root:   filepath.Clean(strings.TrimSpace(root)),
		shared: sharedSlot,
		slot:   make(chan struct{}, 1),
		logger: logging.NewComponentLogger(logger, "staging"),
		active: make(map[string]struct{}),
	}
}

// Root returns the scratch root directory.
func (m *Manager) Root() string {
	return m.root
}

// Acquire returns a workspace for the request, creating its directory. The
// directory name is always generated; requestID only labels the workspace in
// logs. In shared-slot mode it blocks until the slot is free or ctx ends.
// Callers must Release the workspace.
func (m *Manager) Acquire(ctx context.Context, requestID string) (*Workspace, error) {
	if m.root == "" || m.root == "." {
		return nil, services.Wrap(services.ErrConfiguration, "staging", "acquire", "scratch directory is not configured", nil)
	}
	requestID = strings.TrimSpace(requestID)

	if m.shared {
		select {
		case m.slot <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if err := os.MkdirAll(m.root, 0o755); err != nil {
			<-m.slot
			return nil, services.Wrap(services.ErrExternalTool, "staging", "acquire", "create scratch directory", err)
		}
		m.mu.Lock()
		m.slotHeld = true
		m.mu.Unlock()
		ws := &Workspace{ID: filepath.Base(m.root), RequestID: requestID, Dir: m.root, manager: m, shared: true}
		if err := ws.ClearArtifacts(); err != nil {
			m.logger.Warn("failed to clear shared scratch slot", logging.Error(err))
		}
		return ws, nil
	}

	name := uuid.NewString()
	dir := filepath.Join(m.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "staging", "acquire", "create workspace", err)
	}
	m.mu.Lock()
	m.active[name] = struct{}{}
	m.mu.Unlock()
	m.logger.Debug("workspace acquired",
		logging.String("workspace", name),
		logging.String("request_id", requestID),
	)
	return &Workspace{ID: name, RequestID: requestID, Dir: dir, manager: m}, nil
}

func (m *Manager) isActive(name string) bool {
	_, ok := m.activeNames()[name]
	return ok
}

// activeNames lists root entries that must not be removed: live workspaces
// and, while the shared slot is held, the root artifacts.
func (m *Manager) activeNames() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.active)+len(ArtifactNames))
	for name := range m.active {
		out[name] = struct{}{}
	}
	if m.slotHeld {
		for _, name := range ArtifactNames {
			out[name] = struct{}{}
		}
	}
	return out
}

// Delete removes scratch subtitles. With an empty name it removes the
// artifacts in the root and every workspace not currently in use; otherwise
// it removes the named root-level file or idle workspace. It returns the
// removed paths.
func (m *Manager) Delete(name string) ([]string, error) {
	if m.root == "" || m.root == "." {
		return nil, nil
	}
	name = strings.TrimSpace(name)
	if name != "" {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return nil, services.Wrap(services.ErrValidation, "staging", "delete", fmt.Sprintf("invalid scratch name %q", name), nil)
		}
		if m.isActive(name) {
			return nil, services.Wrap(services.ErrValidation, "staging", "delete", fmt.Sprintf("scratch entry %s is in use", name), nil)
		}
		target := filepath.Join(m.root, name)
		if _, err := os.Lstat(target); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		if err := os.RemoveAll(target); err != nil {
			return nil, err
		}
		return []string{target}, nil
	}

	var removed []string
	active := m.activeNames()
	for _, artifact := range ArtifactNames {
		if _, busy := active[artifact]; busy {
			continue
		}
		target := filepath.Join(m.root, artifact)
		if err := os.Remove(target); err == nil {
			removed = append(removed, target)
		} else if !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
	}
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return removed, nil
		}
		return removed, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, busy := active[entry.Name()]; busy {
			continue
		}
		target := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return removed, err
		}
		removed = append(removed, target)
	}
	sort.Strings(removed)
	return removed, nil
}

// Workspace is one request's scratch directory.
type Workspace struct {
	ID        string
	RequestID string
	Dir       string

	manager *Manager
	shared  bool
	once    sync.Once
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// ClearArtifacts removes any subtitle artifacts left in the workspace.
func (w *Workspace) ClearArtifacts() error {
	var errs []error
	for _, name := range ArtifactNames {
		if err := os.Remove(w.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release deletes the workspace's artifacts and frees it. Calling Release
// more than once is a no-op.
func (w *Workspace) Release() error {
	var err error
	w.once.Do(func() {
		if w.shared {
			err = w.ClearArtifacts()
			w.manager.mu.Lock()
			w.manager.slotHeld = false
			w.manager.mu.Unlock()
			<-w.manager.slot
			return
		}
		err = os.RemoveAll(w.Dir)
		w.manager.mu.Lock()
		delete(w.manager.active, w.ID)
		w.manager.mu.Unlock()
	})
	return err
}
