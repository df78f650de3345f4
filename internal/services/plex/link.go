package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"

	"plexgif/internal/logging"
	"plexgif/internal/services"
)

const (
	defaultLinkBaseURL  = "https://plex.tv"
	defaultPollInterval = 2 * time.Second
	defaultLinkTimeout  = 10 * time.Minute
)

// ErrPinPending is returned by a poll while the user has not approved the code yet.
var ErrPinPending = errors.New("plex pin not yet authorized")

// Pin is a device-link code the user enters at plex.tv/link.
type Pin struct {
	ID        int64
	Code      string
	ExpiresAt time.Time
}

// PinStatus is the state of a pin after a poll.
type PinStatus struct {
	Authorized         bool
	AuthorizationToken string
	ExpiresAt          time.Time
}

type pinResponse struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	AuthToken string  `json:"authToken"`
	ExpiresIn float64 `json:"expiresIn"`
	ExpiresAt string  `json:"expiresAt"`
}

func (p pinResponse) expirationTime() time.Time {
	if p.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, p.ExpiresAt); err == nil {
			return t
		}
	}
	if p.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// LinkOption customises LinkManager construction.
type LinkOption func(*LinkManager)

// WithLinkHTTPClient overrides the HTTP client used for plex.tv calls.
func WithLinkHTTPClient(client HTTPDoer) LinkOption {
	return func(m *LinkManager) {
		if client != nil {
			m.http = client
		}
	}
}

// WithLinkBaseURL overrides the plex.tv base URL (used in tests).
func WithLinkBaseURL(baseURL string) LinkOption {
	return func(m *LinkManager) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			m.baseURL = trimmed
		}
	}
}

// WithTokenStore injects a custom persistence layer.
func WithTokenStore(store TokenStore) LinkOption {
	return func(m *LinkManager) {
		m.store = store
	}
}

// WithPollInterval sets the delay between authorization polls.
func WithPollInterval(interval time.Duration) LinkOption {
	return func(m *LinkManager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// WithLinkLogger attaches a logger.
func WithLinkLogger(logger *slog.Logger) LinkOption {
	return func(m *LinkManager) {
		m.logger = logging.NewComponentLogger(logger, "plex-link")
	}
}

// LinkManager runs the plex.tv PIN flow and persists the resulting token.
type LinkManager struct {
	http         HTTPDoer
	baseURL      string
	store        TokenStore
	pollInterval time.Duration
	logger       *slog.Logger

	mu    sync.RWMutex
	state AuthState
}

// NewLinkManager loads persisted state from statePath, generating a client
// identifier on first use.
func NewLinkManager(statePath string, opts ...LinkOption) (*LinkManager, error) {
	m := &LinkManager{
		http:         &http.Client{Timeout: 10 * time.Second},
		baseURL:      defaultLinkBaseURL,
		store:        NewFileTokenStore(statePath),
		pollInterval: defaultPollInterval,
		logger:       logging.NewComponentLogger(nil, "plex-link"),
	}
	for _, opt := range opts {
		opt(m)
	}

	state, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if state.ClientIdentifier == "" {
		state.ClientIdentifier = strings.ReplaceAll(uuid.New().String(), "-", "")
		if err := m.store.Save(state); err != nil {
			return nil, err
		}
	}
	m.state = state
	return m, nil
}

// ClientIdentifier returns the stable identifier this installation presents.
func (m *LinkManager) ClientIdentifier() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ClientIdentifier
}

// AuthorizationToken returns the linked token, or "" when not linked.
func (m *LinkManager) AuthorizationToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.AuthorizationToken
}

// HasAuthorization reports whether a token has been linked.
func (m *LinkManager) HasAuthorization() bool {
	return strings.TrimSpace(m.AuthorizationToken()) != ""
}

// SetAuthorizationToken stores token as the linked credential.
func (m *LinkManager) SetAuthorizationToken(token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return services.Wrap(services.ErrValidation, "plex", "link", "authorization token is empty", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := m.state
	updated.AuthorizationToken = trimmed
	updated.LinkedAt = time.Now().UTC()
	if err := m.store.Save(updated); err != nil {
		return err
	}
	m.state = updated
	return nil
}

// RequestPin starts the device-link flow.
func (m *LinkManager) RequestPin(ctx context.Context) (*Pin, error) {
	var resp pinResponse
	if err := m.doJSON(ctx, http.MethodPost, "/api/v2/pins?strong=false", &resp); err != nil {
		return nil, err
	}
	if resp.ID == 0 || resp.Code == "" {
		return nil, services.Wrap(services.ErrParse, "plex", "request pin", "response missing id or code", nil)
	}
	return &Pin{ID: resp.ID, Code: resp.Code, ExpiresAt: resp.expirationTime()}, nil
}

// PollPin checks whether the user has approved the code.
func (m *LinkManager) PollPin(ctx context.Context, id int64) (*PinStatus, error) {
	var resp pinResponse
	if err := m.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v2/pins/%d", id), &resp); err != nil {
		return nil, err
	}
	status := &PinStatus{ExpiresAt: resp.expirationTime()}
	if token := strings.TrimSpace(resp.AuthToken); token != "" {
		status.Authorized = true
		status.AuthorizationToken = token
	}
	return status, nil
}

// WaitForAuthorization polls pin until it is approved, expires, or ctx ends,
// then persists the token. Transport failures stop the wait immediately.
func (m *LinkManager) WaitForAuthorization(ctx context.Context, pin *Pin) (string, error) {
	if pin == nil {
		return "", services.Wrap(services.ErrValidation, "plex", "link", "pin is nil", nil)
	}
	deadline := pin.ExpiresAt
	if deadline.IsZero() {
		deadline = time.Now().Add(defaultLinkTimeout)
	}
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	attempts := uint(time.Until(deadline)/m.pollInterval) + 1
	var token string
	err := retry.Do(func() error {
		status, err := m.PollPin(waitCtx, pin.ID)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if !status.Authorized {
			return ErrPinPending
		}
		token = status.AuthorizationToken
		return nil
	},
		retry.Context(waitCtx),
		retry.Attempts(attempts),
		retry.Delay(m.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ErrPinPending) }),
	)
	if err != nil {
		if errors.Is(err, ErrPinPending) || errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "plex", "link", "pin expired before authorization", err)
		}
		return "", err
	}
	if err := m.SetAuthorizationToken(token); err != nil {
		return "", err
	}
	m.logger.Info("plex device linked", logging.String("token", logging.MaskToken(token)))
	return token, nil
}

func (m *LinkManager) doJSON(ctx context.Context, method, path string, out any) error {
	target := m.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "plex", "build request", target, err)
	}
	req.Header.Set("Accept", "application/json")
	applyStandardHeaders(req, m.ClientIdentifier())

	resp, err := m.http.Do(req)
	if err != nil {
		return &services.TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &services.TransportError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrParse, "plex", "decode", "pin response", err)
	}
	return nil
}
