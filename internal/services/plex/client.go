package plex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"plexgif/internal/logging"
	"plexgif/internal/services"
)

const (
	productName    = "plexgif"
	productVersion = "1.0.0"
	tokenParam     = "X-Plex-Token"
	maxErrorBody   = 4096
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// ServerConfig identifies one media server. It is immutable once built.
type ServerConfig struct {
	BaseURL *url.URL
	Token   string
}

// NewServerConfig validates baseURI and pairs it with token. The token is not
// checked; an empty token is sent as-is.
func NewServerConfig(baseURI, token string) (ServerConfig, error) {
	trimmed := strings.TrimSpace(baseURI)
	parsed, err := url.Parse(trimmed)
	if err != nil || trimmed == "" || !parsed.IsAbs() || parsed.Host == "" {
		if err == nil {
			err = fmt.Errorf("%q is not an absolute URI", trimmed)
		}
		return ServerConfig{}, services.Wrap(services.ErrConfiguration, "plex", "configure", "invalid server URI", err)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return ServerConfig{BaseURL: parsed, Token: strings.TrimSpace(token)}, nil
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for media server calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "plex")
	}
}

// WithClientIdentifier sets the X-Plex-Client-Identifier header value.
func WithClientIdentifier(id string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			c.clientID = trimmed
		}
	}
}

// Client issues requests against one media server.
type Client struct {
	cfg      ServerConfig
	http     HTTPDoer
	logger   *slog.Logger
	clientID string
	group    *singleflight.Group
}

// NewClient builds a Client for cfg.
func NewClient(cfg ServerConfig, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logging.NewComponentLogger(nil, "plex"),
		clientID: strings.ReplaceAll(uuid.New().String(), "-", ""),
		group:    &singleflight.Group{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the server configuration the client was built with.
func (c *Client) Config() ServerConfig {
	return c.cfg
}

// WithConfiguration returns a copy of the client bound to a different server.
// Transport, logger, and client identifier are shared.
func (c *Client) WithConfiguration(baseURI, token string) (*Client, error) {
	cfg, err := NewServerConfig(baseURI, token)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:      cfg,
		http:     c.http,
		logger:   c.logger,
		clientID: c.clientID,
		group:    &singleflight.Group{},
	}, nil
}

// StreamURL returns the absolute URL for key with the token appended, suitable
// as an ffmpeg input.
func (c *Client) StreamURL(key string) string {
	return c.endpoint(key, nil)
}

func (c *Client) endpoint(path string, query url.Values) string {
	if c.cfg.BaseURL == nil {
		return ""
	}
	u := *c.cfg.BaseURL
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	rawPath, rawQuery, _ := strings.Cut(path, "?")
	u.Path = c.cfg.BaseURL.Path + rawPath
	params := url.Values{}
	if rawQuery != "" {
		if parsed, err := url.ParseQuery(rawQuery); err == nil {
			params = parsed
		}
	}
	for k, vs := range query {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	encoded := params.Encode()
	// the token rides on every request, even when empty
	if encoded != "" {
		encoded += "&"
	}
	u.RawQuery = encoded + tokenParam + "=" + url.QueryEscape(c.cfg.Token)
	return u.String()
}

// get issues a GET and returns the body. Non-2xx responses become TransportErrors.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	if c.cfg.BaseURL == nil {
		return nil, services.Wrap(services.ErrConfiguration, "plex", strings.ToLower(method), "server not configured", nil)
	}
	target := c.endpoint(path, query)
	redacted := logging.RedactURL(target)

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "plex", "build request", redacted, err)
	}
	req.Header.Set("Accept", "application/xml")
	applyStandardHeaders(req, c.clientID)
	if c.cfg.Token != "" {
		req.Header.Set(tokenParam, c.cfg.Token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &services.TransportError{Method: method, URL: redacted, Err: errors.Join(services.ErrTimeout, err)}
		}
		return nil, &services.TransportError{Method: method, URL: redacted, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &services.TransportError{
			Method:     method,
			URL:        redacted,
			StatusCode: resp.StatusCode,
			Body:       logging.RedactText(strings.TrimSpace(string(body))),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &services.TransportError{Method: method, URL: redacted, StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.Debug("plex request complete",
		logging.String("method", method),
		logging.String("url", redacted),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("bytes", len(body)),
	)
	return body, nil
}

func applyStandardHeaders(req *http.Request, clientIdentifier string) {
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)
	req.Header.Set("X-Plex-Product", productName)
	req.Header.Set("X-Plex-Version", productVersion)
	req.Header.Set("X-Plex-Device-Name", productName)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)
}
