package api

import (
	"plexgif/internal/gifmaker"
	"plexgif/internal/history"
	"plexgif/internal/services/plex"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// ConfigRequest switches the media server.
type ConfigRequest struct {
	BaseURI string `json:"base_uri"`
	Token   string `json:"token"`
}

// ConfigResponse reports the active media server. The token is never echoed.
type ConfigResponse struct {
	ServerURL  string `json:"server_url"`
	Configured bool   `json:"configured"`
}

// LibrariesResponse lists library sections.
type LibrariesResponse struct {
	Libraries []plex.Library `json:"libraries"`
}

// ItemsResponse lists shows, movies, or episodes.
type ItemsResponse struct {
	Items []plex.MediaItem `json:"items"`
}

// SubtitlesResponse lists the subtitle streams of an item.
type SubtitlesResponse struct {
	ItemID    string                `json:"item_id"`
	Subtitles []plex.SubtitleOption `json:"subtitles"`
}

// DurationResponse carries an item's runtime.
type DurationResponse struct {
	ItemID     string `json:"item_id"`
	DurationMs int64  `json:"duration_ms"`
}

// ClipResponse wraps a rendered clip.
type ClipResponse struct {
	Clip gifmaker.ClipResult `json:"clip"`
}

// HistoryResponse lists recorded clips, newest first.
type HistoryResponse struct {
	Clips []history.Record `json:"clips"`
}

// ScratchResponse lists the scratch paths removed by a delete.
type ScratchResponse struct {
	Removed []string `json:"removed"`
}
