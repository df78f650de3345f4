package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"plexgif/internal/config"
	"plexgif/internal/logging"
	"plexgif/internal/services"
)

// Settings controls ffmpeg invocation and output placement.
type Settings struct {
	FFmpegBinary  string
	FFprobeBinary string
	OutputDir     string
	FPS           int
	OutputRate    int
	Width         int
	FontSize      int
	Timeout       time.Duration
}

// SettingsFromConfig derives renderer settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{
		FFmpegBinary:  cfg.Render.FFmpegBinary,
		FFprobeBinary: cfg.Render.FFprobeBinary,
		OutputDir:     cfg.ClipDir(),
		FPS:           cfg.Render.FPS,
		OutputRate:    cfg.Render.OutputRate,
		Width:         cfg.Render.Width,
		FontSize:      cfg.Render.FontSize,
		Timeout:       cfg.RenderTimeout(),
	}
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.FFmpegBinary) == "" {
		s.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(s.FFprobeBinary) == "" {
		s.FFprobeBinary = "ffprobe"
	}
	if s.FPS <= 0 {
		s.FPS = 20
	}
	if s.OutputRate <= 0 {
		s.OutputRate = 10
	}
	if s.Width <= 0 {
		s.Width = 400
	}
	if s.FontSize <= 0 {
		s.FontSize = 24
	}
	if s.Timeout <= 0 {
		s.Timeout = 120 * time.Second
	}
	return s
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logging.NewComponentLogger(logger, "clip")
	}
}

// WithCommandRunner replaces process execution, mainly for tests.
func WithCommandRunner(runner CommandRunner) Option {
	return func(r *Renderer) {
		if runner != nil {
			r.run = runner
		}
	}
}

// Renderer produces GIF clips and extracts embedded subtitles.
type Renderer struct {
	settings Settings
	run      CommandRunner
	logger   *slog.Logger
}

// NewRenderer constructs a renderer. Zero-valued settings take the defaults.
func NewRenderer(settings Settings, opts ...Option) *Renderer {
	r := &Renderer{
		settings: settings.withDefaults(),
		run:      execRunner,
		logger:   logging.NewComponentLogger(nil, "clip"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the effective settings.
func (r *Renderer) Settings() Settings {
	return r.settings
}

// Render runs ffmpeg once for req and returns the path of the new GIF. On
// failure any partial output is removed and a *services.RenderError is returned.
func (r *Renderer) Render(ctx context.Context, req Request) (Result, error) {
	if req.End <= req.Start {
		return Result{}, services.Wrap(services.ErrValidation, "render", "validate window",
			fmt.Sprintf("end %s is not after start %s", req.End, req.Start), nil)
	}
	if strings.TrimSpace(req.SourceURL) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "render", "validate source", "source URL is empty", nil)
	}
	if strings.TrimSpace(r.settings.OutputDir) == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "render", "output", "output directory is not configured", nil)
	}

	output, err := ReserveOutput(r.settings.OutputDir, BaseName(req.ItemID, req.Start, req.End))
	if err != nil {
		return Result{}, services.Wrap(services.ErrRender, "render", "reserve output", "", err)
	}

	logger := logging.WithContext(ctx, r.logger)
	args := r.buildRenderArgs(req, output)
	logger.Debug("ffmpeg render starting",
		logging.String("output", output),
		logging.String("subtitle", req.Subtitle.Describe()),
		logging.Any("args", logging.RedactArgs(args)),
	)

	started := time.Now()
	stderr, err := r.exec(ctx, "render", args)
	if err != nil {
		_ = os.Remove(output)
		logging.WarnWithContext(logger, "ffmpeg render failed", "render_failed",
			logging.String("output", output),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "no clip produced"),
		)
		return Result{}, err
	}

	info, statErr := os.Stat(output)
	if statErr != nil || info.Size() == 0 {
		_ = os.Remove(output)
		err := &services.RenderError{Op: "render", Missing: true, Stderr: stderr, Err: statErr}
		logging.WarnWithContext(logger, "ffmpeg produced no output", "render_missing_output",
			logging.String("output", output),
			logging.String(logging.FieldErrorHint, "inspect ffmpeg stderr for filter or stream errors"),
			logging.String(logging.FieldImpact, "no clip produced"),
		)
		return Result{}, err
	}

	logger.Info("clip rendered",
		logging.String("output", output),
		logging.Int64("bytes", info.Size()),
		logging.Duration("window", req.Duration()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result{Path: output, Duration: req.Duration(), Stderr: stderr}, nil
}

// exec runs ffmpeg under the configured timeout and classifies failures.
func (r *Renderer) exec(ctx context.Context, op string, args []string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.settings.Timeout)
	defer cancel()

	out, err := r.run(runCtx, r.settings.FFmpegBinary, args...)
	stderr := logging.RedactText(string(out))
	if err == nil {
		return stderr, nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return stderr, &services.RenderError{Op: op, Timeout: true, Stderr: stderr, Err: services.ErrTimeout}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stderr, &services.RenderError{Op: op, Stderr: stderr, Err: ctxErr}
	}
	return stderr, &services.RenderError{Op: op, ExitCode: exitCode(err), Stderr: stderr, Err: errors.New(logging.RedactText(err.Error()))}
}
