package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"plexgif/internal/config"
)

func clearPlexEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PLEX_URL", "")
	t.Setenv("PLEX_TOKEN", "")
	t.Setenv("PLEXGIF_API_TOKEN", "")
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearPlexEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".local", "share", "plexgif", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	wantClips := filepath.Join(tempHome, ".local", "share", "plexgif", "wwwroot", "gifs")
	if cfg.ClipDir() != wantClips {
		t.Fatalf("unexpected clip dir: got %q want %q", cfg.ClipDir(), wantClips)
	}
	if cfg.Plex.AuthStatePath != filepath.Join(tempHome, ".local", "share", "plexgif", "plex_auth.json") {
		t.Fatalf("unexpected auth state path: %q", cfg.Plex.AuthStatePath)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Render.FPS != 20 || cfg.Render.OutputRate != 10 || cfg.Render.Width != 400 || cfg.Render.FontSize != 24 {
		t.Fatalf("unexpected render defaults: %+v", cfg.Render)
	}
	if cfg.Subtitles.PreferredLanguage != "eng" {
		t.Fatalf("unexpected preferred language: %q", cfg.Subtitles.PreferredLanguage)
	}
	if cfg.Staging.SharedSlot {
		t.Fatal("expected per-request workspaces by default")
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearPlexEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := struct {
		Plex struct {
			URL   string `toml:"url"`
			Token string `toml:"token"`
		} `toml:"plex"`
		Paths struct {
			StaticDir  string `toml:"static_dir"`
			ClipSubdir string `toml:"clip_subdir"`
			ScratchDir string `toml:"scratch_dir"`
		} `toml:"paths"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}{}
	payload.Plex.URL = "http://plex.local:32400/"
	payload.Plex.Token = " abc123 "
	payload.Paths.StaticDir = "~/www"
	payload.Paths.ClipSubdir = "/clips/"
	payload.Paths.ScratchDir = "~/scratch"
	payload.Logging.Format = "JSON"

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Plex.URL != "http://plex.local:32400" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Plex.URL)
	}
	if cfg.Plex.Token != "abc123" {
		t.Fatalf("expected token trimmed, got %q", cfg.Plex.Token)
	}
	if cfg.ClipDir() != filepath.Join(tempHome, "www", "clips") {
		t.Fatalf("unexpected clip dir: %q", cfg.ClipDir())
	}
	if cfg.Paths.ScratchDir != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestEnvVarOverridesConfigFileCredentials(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PLEX_URL", "http://env-host:32400")
	t.Setenv("PLEX_TOKEN", "env-token")
	t.Setenv("PLEXGIF_API_TOKEN", "api-env")

	configPath := filepath.Join(tempHome, "config.toml")
	content := "[plex]\nurl = \"http://file-host:32400\"\ntoken = \"file-token\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Plex.URL != "http://env-host:32400" {
		t.Fatalf("expected env url, got %q", cfg.Plex.URL)
	}
	if cfg.Plex.Token != "env-token" {
		t.Fatalf("expected env token, got %q", cfg.Plex.Token)
	}
	if cfg.Paths.APIToken != "api-env" {
		t.Fatalf("expected env api token, got %q", cfg.Paths.APIToken)
	}
}

func TestCreateSample(t *testing.T) {
	clearPlexEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "[plex]") {
		t.Fatal("expected sample config to contain [plex] section")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("expected sample config to load cleanly, got %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Plex.URL = "http://127.0.0.1:32400"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"relative plex url", func(c *config.Config) { c.Plex.URL = "plex.local" }, "plex.url"},
		{"zero fps", func(c *config.Config) { c.Render.FPS = 0 }, "render.fps"},
		{"negative width", func(c *config.Config) { c.Render.Width = -1 }, "render.width"},
		{"zero timeout", func(c *config.Config) { c.Render.TimeoutSeconds = 0 }, "render.timeout_seconds"},
		{"unknown language", func(c *config.Config) { c.Subtitles.PreferredLanguage = "zz-not-a-language" }, "subtitles.preferred_language"},
		{"bad schedule", func(c *config.Config) { c.Staging.CleanupSchedule = "every so often" }, "staging.cleanup_schedule"},
		{"zero max age", func(c *config.Config) { c.Staging.MaxAgeMinutes = 0 }, "staging.max_age_minutes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
