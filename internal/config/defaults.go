package config

const (
	defaultConfigPath           = "~/.config/plexgif/config.toml"
	defaultStaticDir            = "~/.local/share/plexgif/wwwroot"
	defaultClipSubdir           = "gifs"
	defaultScratchDir           = "~/.local/share/plexgif/scratch"
	defaultStateDir             = "~/.local/share/plexgif"
	defaultLogDir               = "~/.local/share/plexgif/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultPlexClientTimeout    = 15
	defaultPlexLinkBaseURL      = "https://plex.tv"
	defaultAuthStateFile        = "plex_auth.json"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultRenderFPS            = 20
	defaultRenderOutputRate     = 10
	defaultRenderWidth          = 400
	defaultRenderFontSize       = 24
	defaultRenderTimeoutSeconds = 120
	defaultPreferredLanguage    = "eng"
	defaultProviderTitle        = "OpenSubtitles"
	defaultStagingMaxAgeMinutes = 60
	defaultCleanupSchedule      = "@every 15m"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 14
	defaultAPICacheTTLSeconds   = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Plex: Plex{
			ClientTimeoutSeconds: defaultPlexClientTimeout,
			LinkBaseURL:          defaultPlexLinkBaseURL,
		},
		Paths: Paths{
			StaticDir:  defaultStaticDir,
			ClipSubdir: defaultClipSubdir,
			ScratchDir: defaultScratchDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Render: Render{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			FPS:            defaultRenderFPS,
			OutputRate:     defaultRenderOutputRate,
			Width:          defaultRenderWidth,
			FontSize:       defaultRenderFontSize,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Subtitles: Subtitles{
			PreferredLanguage: defaultPreferredLanguage,
			ProviderTitle:     defaultProviderTitle,
		},
		Staging: Staging{
			MaxAgeMinutes:   defaultStagingMaxAgeMinutes,
			CleanupSchedule: defaultCleanupSchedule,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		API: API{
			CacheTTLSeconds: defaultAPICacheTTLSeconds,
			CORSOrigins:     []string{"*"},
		},
	}
}
