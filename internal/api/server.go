package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	cache "github.com/victorspringer/http-cache"
	"github.com/victorspringer/http-cache/adapter/memory"

	"plexgif/internal/gifmaker"
	"plexgif/internal/logging"
)

const (
	listCacheCapacity = 512
	refreshKey        = "opn"
	// Added to the render timeout so a slow render still gets its JSON error.
	handlerGrace = 30 * time.Second
)

// Option customises a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.baseLogger = logger
	}
}

// WithHandlerTimeout bounds how long an /api request may run. Static files
// are not bounded.
func WithHandlerTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Server routes HTTP requests to a gifmaker.Service.
type Server struct {
	svc        atomic.Pointer[gifmaker.Service]
	listCache  atomic.Pointer[cache.Client]
	cacheTTL   time.Duration
	token      string
	staticDir  string
	origins    []string
	timeout    time.Duration
	baseLogger *slog.Logger
	logger     *slog.Logger
	handler    http.Handler
}

// NewServer builds the router for svc.
func NewServer(svc *gifmaker.Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("api: service is required")
	}
	cfg := svc.Config()
	s := &Server{
		cacheTTL:  cfg.APICacheTTL(),
		token:     strings.TrimSpace(cfg.Paths.APIToken),
		staticDir: strings.TrimSpace(cfg.Paths.StaticDir),
		origins:   cfg.API.CORSOrigins,
		timeout:   cfg.RenderTimeout() + handlerGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.baseLogger, "api")
	s.svc.Store(svc)
	if err := s.resetListCache(); err != nil {
		return nil, err
	}
	s.handler = s.buildHandler()
	return s, nil
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Service returns the service requests are currently routed to.
func (s *Server) Service() *gifmaker.Service {
	return s.svc.Load()
}

func (s *Server) buildHandler() http.Handler {
	r := mux.NewRouter()

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(s.requireToken, s.withTimeout)

	apiRouter.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	apiRouter.HandleFunc("/config", s.handlePutConfig).Methods(http.MethodPut)
	apiRouter.Handle("/libraries", s.cached(s.handleLibraries)).Methods(http.MethodGet)
	apiRouter.Handle("/libraries/{key}/items", s.cached(s.handleLibraryItems)).Methods(http.MethodGet)
	apiRouter.Handle("/libraries/{key}/movies", s.cached(s.handleLibraryMovies)).Methods(http.MethodGet)
	apiRouter.Handle("/items/{key}/episodes", s.cached(s.handleEpisodes)).Methods(http.MethodGet)
	apiRouter.Handle("/items/{id}/subtitles", s.cached(s.handleSubtitles)).Methods(http.MethodGet)
	apiRouter.HandleFunc("/items/{id}/subtitles/fetch", s.handleFetchSubtitles).Methods(http.MethodPost)
	apiRouter.Handle("/items/{id}/duration", s.cached(s.handleDuration)).Methods(http.MethodGet)
	apiRouter.HandleFunc("/items/{id}/captions", s.handleCaptions).Methods(http.MethodGet)
	apiRouter.HandleFunc("/items/{id}/captions.vtt", s.handleCaptionsVTT).Methods(http.MethodGet)
	apiRouter.HandleFunc("/clips", s.handleCreateClip).Methods(http.MethodPost)
	apiRouter.HandleFunc("/clips", s.handleHistory).Methods(http.MethodGet)
	apiRouter.HandleFunc("/scratch", s.handleDeleteScratch).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/scratch/{name}", s.handleDeleteScratch).Methods(http.MethodDelete)
	apiRouter.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found"})
	})
	apiRouter.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})

	if s.staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}

	h := s.withRequestLogging(r)
	h = s.withRequestID(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: s.logger}),
		handlers.PrintRecoveryStack(false),
	)(h)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID", "Accept"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
	)(h)
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, s.timeout, `{"error":"request timed out"}`)
}

// cached serves h through the listing cache when one is configured.
func (s *Server) cached(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := s.listCache.Load()
		if client == nil {
			h(w, r)
			return
		}
		served := false
		client.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served = true
			h(w, r)
		})).ServeHTTP(w, r)
		if !served {
			logging.WithContext(r.Context(), s.logger).Debug("listing served from cache",
				logging.String("path", r.URL.Path))
		}
	})
}

// resetListCache replaces the listing cache with an empty one. A zero TTL
// disables caching.
func (s *Server) resetListCache() error {
	if s.cacheTTL <= 0 {
		s.listCache.Store(nil)
		return nil
	}
	adapter, err := memory.NewAdapter(
		memory.AdapterWithAlgorithm(memory.LRU),
		memory.AdapterWithCapacity(listCacheCapacity),
	)
	if err != nil {
		return fmt.Errorf("api: init cache adapter: %w", err)
	}
	client, err := cache.NewClient(
		cache.ClientWithAdapter(adapter),
		cache.ClientWithTTL(s.cacheTTL),
		cache.ClientWithRefreshKey(refreshKey),
	)
	if err != nil {
		return fmt.Errorf("api: init cache client: %w", err)
	}
	s.listCache.Store(client)
	return nil
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(args ...any) {
	logging.ErrorWithContext(l.logger, "handler panic", "api_panic",
		logging.String("panic", fmt.Sprint(args...)),
		logging.String(logging.FieldErrorHint, "inspect the request that triggered the panic"),
		logging.String(logging.FieldImpact, "request answered with 500"),
	)
}
