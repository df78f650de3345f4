package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"plexgif/internal/config"
	"plexgif/internal/gifmaker"
	"plexgif/internal/history"
	"plexgif/internal/logging"
	"plexgif/internal/services/plex"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string
	serverFlag  *string
	tokenFlag   *string
	jsonFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, envFileFlag, serverFlag, tokenFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
		serverFlag:  serverFlag,
		tokenFlag:   tokenFlag,
		jsonFlag:    jsonFlag,
	}
}

// ensureConfig loads the .env file (if any), the TOML config, and the
// command-line server overrides exactly once per invocation.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := loadEnvFile(flagValue(c.envFileFlag)); err != nil {
			c.configErr = err
			return
		}
		cfg, _, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if server := flagValue(c.serverFlag); server != "" {
			cfg.Plex.URL = strings.TrimRight(server, "/")
		}
		if token := flagValue(c.tokenFlag); token != "" {
			cfg.Plex.Token = token
		}
		if cfg.Plex.Token == "" {
			if state, err := plex.NewFileTokenStore(cfg.Plex.AuthStatePath).Load(); err == nil {
				cfg.Plex.Token = state.AuthorizationToken
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withService builds a gifmaker.Service backed by the history database, runs
// fn, and releases both.
func (c *commandContext) withService(fn func(*gifmaker.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	svc, closeFn, err := openService(cfg, c.ensureLogger())
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

func openService(cfg *config.Config, logger *slog.Logger) (*gifmaker.Service, func(), error) {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open clip history: %w", err)
	}

	opts := []gifmaker.Option{
		gifmaker.WithHistory(store),
		gifmaker.WithLogger(logger),
	}
	if state, err := plex.NewFileTokenStore(cfg.Plex.AuthStatePath).Load(); err == nil && state.ClientIdentifier != "" {
		opts = append(opts, gifmaker.WithPlexOptions(plex.WithClientIdentifier(state.ClientIdentifier)))
	}

	svc, err := gifmaker.New(cfg, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, func() {
		svc.Close()
		_ = store.Close()
	}, nil
}

// loadEnvFile reads KEY=VALUE pairs without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func flagValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
