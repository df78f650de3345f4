package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"

	"plexgif/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateStaging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePlex() error {
	if c.Plex.URL != "" {
		parsed, err := url.Parse(c.Plex.URL)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return fmt.Errorf("plex.url %q must be an absolute URL such as http://127.0.0.1:32400", c.Plex.URL)
		}
	}
	parsed, err := url.Parse(c.Plex.LinkBaseURL)
	if err != nil || !parsed.IsAbs() {
		return fmt.Errorf("plex.link_base_url %q must be an absolute URL", c.Plex.LinkBaseURL)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FPS <= 0 {
		return errors.New("render.fps must be positive")
	}
	if c.Render.OutputRate <= 0 {
		return errors.New("render.output_rate must be positive")
	}
	if c.Render.Width <= 0 {
		return errors.New("render.width must be positive")
	}
	if c.Render.FontSize <= 0 {
		return errors.New("render.font_size must be positive")
	}
	if c.Render.TimeoutSeconds <= 0 {
		return errors.New("render.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if language.ToISO3(c.Subtitles.PreferredLanguage) == "und" {
		return fmt.Errorf("subtitles.preferred_language %q is not a recognized language code", c.Subtitles.PreferredLanguage)
	}
	return nil
}

func (c *Config) validateStaging() error {
	if c.Staging.MaxAgeMinutes <= 0 {
		return errors.New("staging.max_age_minutes must be positive")
	}
	if _, err := cron.ParseStandard(c.Staging.CleanupSchedule); err != nil {
		return fmt.Errorf("staging.cleanup_schedule %q: %w", c.Staging.CleanupSchedule, err)
	}
	return nil
}
