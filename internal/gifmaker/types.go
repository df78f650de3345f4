package gifmaker

import (
	"fmt"
	"strings"
	"time"

	"plexgif/internal/services"
)

// ClipRequest asks for a clip of ItemID between StartMs and EndMs.
type ClipRequest struct {
	ItemID      string `json:"item_id"`
	StartMs     int64  `json:"start_ms"`
	EndMs       int64  `json:"end_ms"`
	SubtitleKey string `json:"subtitle_key,omitempty"`
	RequestID   string `json:"-"`
}

// Start returns the window start.
func (r ClipRequest) Start() time.Duration {
	return time.Duration(r.StartMs) * time.Millisecond
}

// End returns the window end.
func (r ClipRequest) End() time.Duration {
	return time.Duration(r.EndMs) * time.Millisecond
}

// Validate checks the request without touching the network or disk.
func (r ClipRequest) Validate() error {
	if strings.TrimSpace(r.ItemID) == "" {
		return services.Wrap(services.ErrValidation, "gifmaker", "create_clip", "item id is required", nil)
	}
	if r.StartMs < 0 {
		return services.Wrap(services.ErrValidation, "gifmaker", "create_clip", "start must not be negative", nil)
	}
	if r.EndMs <= r.StartMs {
		return services.Wrap(services.ErrValidation, "gifmaker", "create_clip",
			fmt.Sprintf("end (%dms) must be after start (%dms)", r.EndMs, r.StartMs), nil)
	}
	return nil
}

// ClipResult describes a rendered clip.
type ClipResult struct {
	ItemID           string `json:"item_id"`
	Path             string `json:"path"`
	WebPath          string `json:"web_path"`
	StartMs          int64  `json:"start_ms"`
	EndMs            int64  `json:"end_ms"`
	Subtitle         string `json:"subtitle"`
	SubtitleLanguage string `json:"subtitle_language,omitempty"`
	RequestID        string `json:"request_id"`
}
