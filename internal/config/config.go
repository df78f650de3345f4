package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Plex contains the media server connection and device-link settings.
type Plex struct {
	URL                  string `toml:"url"`
	Token                string `toml:"token"`
	ClientTimeoutSeconds int    `toml:"client_timeout_seconds"`
	AuthStatePath        string `toml:"auth_state_path"`
	LinkBaseURL          string `toml:"link_base_url"`
}

// Paths contains directory and bind address configuration.
type Paths struct {
	StaticDir  string `toml:"static_dir"`
	ClipSubdir string `toml:"clip_subdir"`
	ScratchDir string `toml:"scratch_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Render contains the ffmpeg invocation settings for GIF output.
type Render struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	FPS            int    `toml:"fps"`
	OutputRate     int    `toml:"output_rate"`
	Width          int    `toml:"width"`
	FontSize       int    `toml:"font_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Subtitles contains subtitle selection preferences.
type Subtitles struct {
	PreferredLanguage string `toml:"preferred_language"`
	ProbeEmbedded     bool   `toml:"probe_embedded"`
	ProviderTitle     string `toml:"provider_title"`
}

// Staging contains scratch workspace behaviour.
type Staging struct {
	// SharedSlot stages every request into scratch_dir itself and serializes
	// stage, render, and delete behind one lock.
	SharedSlot      bool   `toml:"shared_slot"`
	MaxAgeMinutes   int    `toml:"max_age_minutes"`
	CleanupSchedule string `toml:"cleanup_schedule"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// API contains HTTP API presentation settings.
type API struct {
	CacheTTLSeconds int      `toml:"cache_ttl_seconds"`
	CORSOrigins     []string `toml:"cors_origins"`
}

// Config encapsulates all configuration values for plexgif.
//
// Configuration sections by subsystem:
//   - Plex: media server URL/token and plex.tv device linking
//   - Paths: static output tree, scratch, state, logs, API bind
//   - Render: ffmpeg binaries and GIF filter parameters
//   - Subtitles: language preference and embedded probing
//   - Staging: scratch workspace isolation and cleanup cadence
//   - Logging: log format and level
//   - API: response caching and CORS
type Config struct {
	Plex      Plex      `toml:"plex"`
	Paths     Paths     `toml:"paths"`
	Render    Render    `toml:"render"`
	Subtitles Subtitles `toml:"subtitles"`
	Staging   Staging   `toml:"staging"`
	Logging   Logging   `toml:"logging"`
	API       API       `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plexgif.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, scratch, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.ClipDir(), c.Paths.ScratchDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ClipDir returns the directory rendered clips are written to.
func (c *Config) ClipDir() string {
	return filepath.Join(c.Paths.StaticDir, c.Paths.ClipSubdir)
}

// HistoryPath returns the SQLite database path for clip history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the lock file guarding a running server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "plexgif.lock")
}

// RenderTimeout returns the per-render ffmpeg deadline.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.TimeoutSeconds) * time.Second
}

// PlexClientTimeout returns the HTTP client timeout for media server calls.
func (c *Config) PlexClientTimeout() time.Duration {
	return time.Duration(c.Plex.ClientTimeoutSeconds) * time.Second
}

// StagingMaxAge returns the age after which scratch workspaces are stale.
func (c *Config) StagingMaxAge() time.Duration {
	return time.Duration(c.Staging.MaxAgeMinutes) * time.Minute
}

// APICacheTTL returns how long listing responses stay cached.
func (c *Config) APICacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
