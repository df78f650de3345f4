package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizePlex()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAuthState(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeSubtitles()
	c.normalizeStaging()
	c.normalizeLogging()
	c.normalizeAPI()
	return nil
}

func (c *Config) normalizePlex() {
	if value, ok := os.LookupEnv("PLEX_URL"); ok && strings.TrimSpace(value) != "" {
		c.Plex.URL = value
	}
	if value, ok := os.LookupEnv("PLEX_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Plex.Token = value
	}
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	c.Plex.LinkBaseURL = strings.TrimRight(strings.TrimSpace(c.Plex.LinkBaseURL), "/")
	if c.Plex.LinkBaseURL == "" {
		c.Plex.LinkBaseURL = defaultPlexLinkBaseURL
	}
	if c.Plex.ClientTimeoutSeconds <= 0 {
		c.Plex.ClientTimeoutSeconds = defaultPlexClientTimeout
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StaticDir) == "" {
		c.Paths.StaticDir = defaultStaticDir
	}
	if c.Paths.StaticDir, err = expandPath(c.Paths.StaticDir); err != nil {
		return fmt.Errorf("paths.static_dir: %w", err)
	}
	c.Paths.ClipSubdir = strings.Trim(strings.TrimSpace(c.Paths.ClipSubdir), "/\\")
	if c.Paths.ClipSubdir == "" {
		c.Paths.ClipSubdir = defaultClipSubdir
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if value, ok := os.LookupEnv("PLEXGIF_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeAuthState() error {
	if strings.TrimSpace(c.Plex.AuthStatePath) == "" {
		c.Plex.AuthStatePath = filepath.Join(c.Paths.StateDir, defaultAuthStateFile)
	}
	var err error
	if c.Plex.AuthStatePath, err = expandPath(c.Plex.AuthStatePath); err != nil {
		return fmt.Errorf("plex.auth_state_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.PreferredLanguage = strings.ToLower(strings.TrimSpace(c.Subtitles.PreferredLanguage))
	if c.Subtitles.PreferredLanguage == "" {
		c.Subtitles.PreferredLanguage = defaultPreferredLanguage
	}
	c.Subtitles.ProviderTitle = strings.TrimSpace(c.Subtitles.ProviderTitle)
	if c.Subtitles.ProviderTitle == "" {
		c.Subtitles.ProviderTitle = defaultProviderTitle
	}
}

func (c *Config) normalizeStaging() {
	c.Staging.CleanupSchedule = strings.TrimSpace(c.Staging.CleanupSchedule)
	if c.Staging.CleanupSchedule == "" {
		c.Staging.CleanupSchedule = defaultCleanupSchedule
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeAPI() {
	origins := make([]string, 0, len(c.API.CORSOrigins))
	for _, origin := range c.API.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.CORSOrigins = origins
	if c.API.CacheTTLSeconds < 0 {
		c.API.CacheTTLSeconds = 0
	}
}
