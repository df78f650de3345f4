package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrTransport     = errors.New("transport error")
	ErrParse         = errors.New("parse error")
	ErrNotFound      = errors.New("not found")
	ErrRender        = errors.New("render error")
	ErrTimeout       = errors.New("timeout")
	ErrExternalTool  = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// TransportError reports a media server response that could not be used.
// A 401 response unwraps to ErrAuthorization, every other status to ErrTransport.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(e.Method))
	if e.URL != "" {
		b.WriteByte(' ')
		b.WriteString(e.URL)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		b.WriteString(": ")
		b.WriteString(body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is lets errors.Is match the marker implied by the status code.
func (e *TransportError) Is(target error) bool {
	if e.StatusCode == http.StatusUnauthorized {
		return target == ErrAuthorization
	}
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error { return e.Err }

// RenderError describes a failed external render or extraction.
type RenderError struct {
	Op       string
	ExitCode int
	Stderr   string
	Timeout  bool
	Missing  bool
	Err      error
}

func (e *RenderError) Error() string {
	op := e.Op
	if op == "" {
		op = "render"
	}
	var reason string
	switch {
	case e.Timeout:
		reason = "timed out"
	case e.Missing:
		reason = "completed without producing output"
	case e.ExitCode != 0:
		reason = fmt.Sprintf("exited with code %d", e.ExitCode)
	default:
		reason = "failed"
	}
	msg := op + " " + reason
	if e.Err != nil && !e.Timeout {
		msg += ": " + e.Err.Error()
	}
	if tail := stderrTail(e.Stderr, 3); tail != "" {
		msg += " (" + tail + ")"
	}
	return msg
}

func (e *RenderError) Is(target error) bool {
	if target == ErrRender {
		return true
	}
	return e.Timeout && target == ErrTimeout
}

func (e *RenderError) Unwrap() error { return e.Err }

// HTTPStatus maps a classified error onto the status an API caller should see.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthorization):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrTransport), errors.Is(err, ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Hint returns a short operator-facing next step for a classified error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "check the server URL and config file"
	case errors.Is(err, ErrAuthorization):
		return "re-authenticate with 'plexgif plex link' or update plex.token"
	case errors.Is(err, ErrTimeout):
		return "raise render.timeout_seconds or pick a shorter clip"
	case errors.Is(err, ErrTransport):
		return "verify the media server is reachable"
	case errors.Is(err, ErrParse):
		return "media server returned an unexpected payload"
	case errors.Is(err, ErrNotFound):
		return "item has no playable media part"
	case errors.Is(err, ErrRender):
		return "inspect ffmpeg stderr in the log"
	default:
		return "check logs for details"
	}
}

func stderrTail(stderr string, lines int) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, " | ")
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
