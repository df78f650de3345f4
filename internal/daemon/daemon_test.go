package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plexgif/internal/config"
	"plexgif/internal/daemon"
	"plexgif/internal/gifmaker"
	"plexgif/internal/logging"
	"plexgif/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	svc, err := gifmaker.New(cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	d, err := daemon.New(cfg, svc, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))
	status := d.Status(ctx, false)
	assert.True(t, status.Running)
	assert.Equal(t, cfg.LockPath(), status.LockFilePath)
	require.NotEmpty(t, d.Addr())

	resp, err := http.Get("http://" + d.Addr() + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["configured"])

	assert.Error(t, d.Start(ctx), "second start should fail")

	d.Stop()
	assert.False(t, d.Status(ctx, false).Running)
	assert.Empty(t, d.Addr())
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	require.NoError(t, first.Start(ctx))

	err := second.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	first.Stop()
	require.NoError(t, second.Start(ctx))
	second.Stop()
}

func TestInvalidScheduleReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Staging.CleanupSchedule = "not a schedule"
	d := newDaemon(t, cfg)

	ctx := context.Background()
	require.Error(t, d.Start(ctx))
	assert.False(t, d.Status(ctx, false).Running)

	cfg.Staging.CleanupSchedule = "@every 1h"
	require.NoError(t, d.Start(ctx))
	d.Stop()
}

func TestRunCleanupRemovesStaleWorkspacesAndLogs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.RetentionDays = 1
	require.NoError(t, cfg.EnsureDirectories())
	d := newDaemon(t, cfg)

	old := time.Now().Add(-48 * time.Hour)
	staleDir := filepath.Join(cfg.Paths.ScratchDir, "stale-request")
	require.NoError(t, os.MkdirAll(staleDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staleDir, "subtitle.srt"), []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(staleDir, old, old))

	freshDir := filepath.Join(cfg.Paths.ScratchDir, "fresh-request")
	require.NoError(t, os.MkdirAll(freshDir, 0o755))

	oldLog := filepath.Join(cfg.Paths.LogDir, "plexgif-2020.log")
	require.NoError(t, os.WriteFile(oldLog, []byte("old"), 0o644))
	require.NoError(t, os.Chtimes(oldLog, old, old))

	report := d.RunCleanup(context.Background())
	assert.Equal(t, []string{staleDir}, report.Workspaces.Removed)
	assert.Equal(t, 1, report.LogsRemoved)
	assert.NoDirExists(t, staleDir)
	assert.DirExists(t, freshDir)
	assert.NoFileExists(t, oldLog)

	last := d.Status(context.Background(), false).LastCleanup
	assert.Equal(t, report.RanAt, last.RanAt)
}

func TestRunCleanupSkipsCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := d.RunCleanup(ctx)
	assert.Empty(t, report.Workspaces.Removed)
	assert.Zero(t, report.LogsRemoved)
}
