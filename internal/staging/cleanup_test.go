package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"plexgif/internal/logging"
)

func age(t *testing.T, path string, by time.Duration) {
	t.Helper()
	old := time.Now().Add(-by)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("set old time: %v", err)
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := NewManager(dir, false, logging.NewNop()).CleanStale(context.Background(), time.Hour)
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkspacesAndArtifacts(t *testing.T) {
	root := t.TempDir()

	oldDir := filepath.Join(root, "old-request")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	age(t, oldDir, 2*time.Hour)

	oldArtifact := filepath.Join(root, "subtitle.srt")
	if err := os.WriteFile(oldArtifact, []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	age(t, oldArtifact, 2*time.Hour)

	unrelated := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write unrelated: %v", err)
	}
	age(t, unrelated, 2*time.Hour)

	recentDir := filepath.Join(root, "recent-request")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := NewManager(root, false, logging.NewNop()).CleanStale(context.Background(), time.Hour)
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old workspace should have been removed")
	}
	if _, err := os.Stat(oldArtifact); !os.IsNotExist(err) {
		t.Error("old artifact should have been removed")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("unrelated file should remain")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent workspace should remain")
	}
}

func TestManagerCleanStaleSkipsActiveWorkspace(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, false, logging.NewNop())

	ws, err := mgr.Acquire(context.Background(), "busy")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()
	age(t, ws.Dir, 3*time.Hour)

	result := mgr.CleanStale(context.Background(), time.Hour)
	if len(result.Removed) != 0 {
		t.Fatalf("active workspace must survive cleanup, removed %v", result.Removed)
	}
}

func TestListDirectories(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil || dirs != nil {
			t.Fatalf("expected nil result for %q, got %v %v", path, dirs, err)
		}
	}

	root := t.TempDir()
	mgr := NewManager(root, false, nil)
	ws, err := mgr.Acquire(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()
	if err := os.WriteFile(ws.Path("subtitle.srt"), make([]byte, 128), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	dirs, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "req-1" || dirs[0].Size != 128 || !dirs[0].Active {
		t.Fatalf("unexpected listing: %#v", dirs)
	}
}
