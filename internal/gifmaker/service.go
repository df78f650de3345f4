package gifmaker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"plexgif/internal/clip"
	"plexgif/internal/config"
	"plexgif/internal/history"
	"plexgif/internal/logging"
	"plexgif/internal/services"
	"plexgif/internal/services/plex"
	"plexgif/internal/staging"
)

// HistoryRecorder stores and lists rendered clips.
type HistoryRecorder interface {
	Add(ctx context.Context, rec history.Record) (history.Record, error)
	List(ctx context.Context, opts history.ListOptions) ([]history.Record, error)
}

// Option customises a Service.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.baseLogger = logger
	}
}

// WithHistory records every successful render in h.
func WithHistory(h HistoryRecorder) Option {
	return func(s *Service) {
		s.history = h
	}
}

// WithRenderer replaces the ffmpeg renderer.
func WithRenderer(r *clip.Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithWorkspaces replaces the scratch workspace manager.
func WithWorkspaces(m *staging.Manager) Option {
	return func(s *Service) {
		s.workspaces = m
	}
}

// WithPlexOptions passes options through to the media server client.
func WithPlexOptions(opts ...plex.Option) Option {
	return func(s *Service) {
		s.plexOpts = append(s.plexOpts, opts...)
	}
}

// Service is the inbound operation surface shared by the CLI and the API.
type Service struct {
	cfg        *config.Config
	client     *plex.Client
	plexOpts   []plex.Option
	renderer   *clip.Renderer
	resolver   *Resolver
	workspaces *staging.Manager
	history    HistoryRecorder
	captions   *ristretto.Cache
	captionTTL time.Duration
	baseLogger *slog.Logger
	logger     *slog.Logger
}

// New builds a Service from cfg. The media server client is created only
// when plex.url is set; operations that need it fail with a configuration
// error otherwise.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "gifmaker", "init", "configuration is required", nil)
	}
	s := &Service{cfg: cfg, captionTTL: cfg.APICacheTTL()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.baseLogger, "gifmaker")

	if s.renderer == nil {
		s.renderer = clip.NewRenderer(clip.SettingsFromConfig(cfg), clip.WithLogger(s.baseLogger))
	}
	if s.workspaces == nil {
		s.workspaces = staging.NewManager(cfg.Paths.ScratchDir, cfg.Staging.SharedSlot, s.baseLogger)
	}
	s.resolver = NewResolver(s.renderer, cfg.Subtitles.PreferredLanguage, s.baseLogger)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     64 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init caption cache: %w", err)
	}
	s.captions = cache

	if strings.TrimSpace(cfg.Plex.URL) != "" {
		serverCfg, err := plex.NewServerConfig(cfg.Plex.URL, cfg.Plex.Token)
		if err != nil {
			cache.Close()
			return nil, err
		}
		s.client = plex.NewClient(serverCfg, s.clientOptions()...)
	}
	return s, nil
}

func (s *Service) clientOptions() []plex.Option {
	opts := []plex.Option{
		plex.WithHTTPClient(&http.Client{Timeout: s.cfg.PlexClientTimeout()}),
		plex.WithLogger(s.baseLogger),
	}
	return append(opts, s.plexOpts...)
}

// Close releases the caption cache.
func (s *Service) Close() {
	if s == nil || s.captions == nil {
		return
	}
	s.captions.Close()
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Workspaces exposes the scratch workspace manager for maintenance jobs.
func (s *Service) Workspaces() *staging.Manager {
	return s.workspaces
}

// ServerConfigured reports whether a media server is set.
func (s *Service) ServerConfigured() bool {
	return s.client != nil
}

// ServerURL returns the configured media server base URL, or "".
func (s *Service) ServerURL() string {
	if s.client == nil {
		return ""
	}
	return s.client.Config().BaseURL.String()
}

// WithConfiguration returns a service bound to another media server. The
// renderer, scratch workspaces, history, and caption cache are shared.
func (s *Service) WithConfiguration(baseURI, token string) (*Service, error) {
	var (
		client *plex.Client
		err    error
	)
	if s.client != nil {
		client, err = s.client.WithConfiguration(baseURI, token)
	} else {
		var serverCfg plex.ServerConfig
		serverCfg, err = plex.NewServerConfig(baseURI, token)
		if err == nil {
			client = plex.NewClient(serverCfg, s.clientOptions()...)
		}
	}
	if err != nil {
		return nil, err
	}
	next := *s
	next.client = client
	return &next, nil
}

func (s *Service) requireClient() (*plex.Client, error) {
	if s.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "gifmaker", "configure", "media server URL is not configured (set plex.url or PLEX_URL)", nil)
	}
	return s.client, nil
}

// ListLibraries returns the server's library sections.
func (s *Service) ListLibraries(ctx context.Context) ([]plex.Library, error) {
	client, err := s.requireClient()
	if err != nil {
		return nil, err
	}
	return client.ListLibraries(ctx)
}

// ListEpisodes returns the playable leaves under key.
func (s *Service) ListEpisodes(ctx context.Context, key string, isMovie bool) ([]plex.MediaItem, error) {
	client, err := s.requireClient()
	if err != nil {
		return nil, err
	}
	return client.ListEpisodes(ctx, key, isMovie)
}

// ListShowsOrFlatItems returns the shows of a library, or its movies when it
// has no shows.
func (s *Service) ListShowsOrFlatItems(ctx context.Context, libraryKey string) ([]plex.MediaItem, error) {
	client, err := s.requireClient()
	if err != nil {
		return nil, err
	}
	return client.ListShowsOrFlatItems(ctx, libraryKey)
}

// ListMovies returns the videos of a library.
func (s *Service) ListMovies(ctx context.Context, libraryKey string, isMovie bool) ([]plex.MediaItem, error) {
	client, err := s.requireClient()
	if err != nil {
		return nil, err
	}
	return client.ListMovies(ctx, libraryKey, isMovie)
}

// GetDuration returns the item's runtime; zero when the server omits it.
func (s *Service) GetDuration(ctx context.Context, itemID string) (time.Duration, error) {
	client, err := s.requireClient()
	if err != nil {
		return 0, err
	}
	return client.GetDuration(ctx, itemID)
}

// DeleteScratchSubtitles removes the named scratch entry, or every idle one
// when name is empty.
func (s *Service) DeleteScratchSubtitles(name string) ([]string, error) {
	removed, err := s.workspaces.Delete(name)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("scratch subtitles deleted",
			logging.Int("count", len(removed)),
			logging.String(logging.FieldEventType, "scratch_deleted"),
		)
	}
	return removed, nil
}

// ScratchWorkspaces lists the scratch workspaces on disk.
func (s *Service) ScratchWorkspaces() ([]staging.DirInfo, error) {
	return s.workspaces.List()
}

// RequestProviderSubtitles asks the server to fetch subtitles for itemID from
// its configured provider.
func (s *Service) RequestProviderSubtitles(ctx context.Context, itemID string) (plex.ProviderResult, error) {
	client, err := s.requireClient()
	if err != nil {
		return plex.ProviderResult{}, err
	}
	if strings.TrimSpace(itemID) == "" {
		return plex.ProviderResult{}, services.Wrap(services.ErrValidation, "gifmaker", "fetch_subtitles", "item id is required", nil)
	}
	return client.RequestProviderSubtitles(ctx, itemID, plex.ProviderOptions{
		Language:      s.cfg.Subtitles.PreferredLanguage,
		ProviderTitle: s.cfg.Subtitles.ProviderTitle,
	})
}

// History lists recorded clips, newest first.
func (s *Service) History(ctx context.Context, opts history.ListOptions) ([]history.Record, error) {
	if s.history == nil {
		return []history.Record{}, nil
	}
	return s.history.List(ctx, opts)
}

// GetSubtitleOptions lists the item's subtitle streams. For Matroska sources
// with subtitles.probe_embedded set, streams ffprobe finds that the server
// did not report are appended.
func (s *Service) GetSubtitleOptions(ctx context.Context, itemID string) ([]plex.SubtitleOption, error) {
	client, err := s.requireClient()
	if err != nil {
		return nil, err
	}
	meta, err := client.FetchItemMetadata(ctx, itemID)
	if err != nil {
		return nil, err
	}
	options := meta.SubtitleStreams()
	if options == nil {
		options = []plex.SubtitleOption{}
	}
	if !s.cfg.Subtitles.ProbeEmbedded || !isMatroska(meta.ContainerFormat()) {
		return options, nil
	}
	partKey := meta.VideoPartKey()
	if partKey == "" {
		return options, nil
	}

	ctx = services.WithItemID(ctx, itemID)
	logger := logging.WithContext(ctx, s.logger)
	probed, err := probeSubtitles(ctx, s.renderer.Settings().FFprobeBinary, client.StreamURL(partKey))
	if err != nil {
		logging.WarnWithContext(logger, "embedded subtitle probe failed", "subtitle_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check render.ffprobe_binary and server reachability"),
			logging.String(logging.FieldImpact, "only server-reported subtitle streams are listed"),
		)
		return options, nil
	}
	return mergeProbed(options, probed), nil
}

func isMatroska(container string) bool {
	switch strings.ToLower(strings.TrimSpace(container)) {
	case "mkv", "matroska", "webm":
		return true
	default:
		return false
	}
}

// CreateClip renders a GIF of itemID between StartMs and EndMs.
func (s *Service) CreateClip(ctx context.Context, req ClipRequest) (ClipResult, error) {
	if err := req.Validate(); err != nil {
		return ClipResult{}, err
	}
	client, err := s.requireClient()
	if err != nil {
		return ClipResult{}, err
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		if fromCtx, ok := services.RequestIDFromContext(ctx); ok {
			requestID = fromCtx
		} else {
			requestID = uuid.NewString()
		}
	}
	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithItemID(ctx, req.ItemID)
	ctx = services.WithStage(ctx, "create_clip")
	logger := logging.WithContext(ctx, s.logger)

	meta, err := client.FetchItemMetadata(ctx, req.ItemID)
	if err != nil {
		return ClipResult{}, err
	}
	partKey := meta.VideoPartKey()
	if partKey == "" {
		return ClipResult{}, services.Wrap(services.ErrNotFound, "gifmaker", "create_clip",
			fmt.Sprintf("item %s has no video part", req.ItemID), nil)
	}

	ws, err := s.workspaces.Acquire(ctx, requestID)
	if err != nil {
		return ClipResult{}, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			logging.WarnWithContext(logger, "failed to release scratch workspace", "scratch_release_failed",
				logging.String("dir", ws.Dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run 'plexgif scratch clean'"),
				logging.String(logging.FieldImpact, "scratch files left on disk"),
			)
		}
	}()

	resolution, err := s.resolver.Resolve(ctx, client, meta, req.SubtitleKey, ws)
	if err != nil {
		return ClipResult{}, err
	}

	rendered, err := s.renderer.Render(ctx, clip.Request{
		ItemID:    req.ItemID,
		SourceURL: client.StreamURL(partKey),
		Subtitle:  resolution.Input,
		Start:     req.Start(),
		End:       req.End(),
	})
	if err != nil {
		return ClipResult{}, err
	}

	result := ClipResult{
		ItemID:           req.ItemID,
		Path:             rendered.Path,
		WebPath:          WebPath(s.cfg.Paths.StaticDir, rendered.Path),
		StartMs:          req.StartMs,
		EndMs:            req.EndMs,
		Subtitle:         resolution.Input.Describe(),
		SubtitleLanguage: resolution.Language(),
		RequestID:        requestID,
	}

	if s.history != nil {
		if _, err := s.history.Add(ctx, history.Record{
			ItemID:           result.ItemID,
			Start:            req.Start(),
			End:              req.End(),
			Path:             result.Path,
			WebPath:          result.WebPath,
			SubtitleKind:     result.Subtitle,
			SubtitleLanguage: result.SubtitleLanguage,
			RequestID:        requestID,
		}); err != nil {
			logging.WarnWithContext(logger, "failed to record clip history", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
				logging.String(logging.FieldImpact, "clip missing from history listing"),
			)
		}
	}

	logger.Info("clip created",
		logging.String("web_path", result.WebPath),
		logging.String("subtitle", result.Subtitle),
		logging.String(logging.FieldEventType, "clip_created"),
	)
	return result, nil
}

// WebPath maps a file under staticRoot to a site-relative URL path with
// forward slashes and a leading "/". Files outside the root map to their
// base name.
func WebPath(staticRoot, path string) string {
	rel, err := filepath.Rel(staticRoot, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "/" + filepath.Base(path)
	}
	return "/" + strings.TrimLeft(filepath.ToSlash(rel), "/")
}
