package clip

import (
	"time"

	"plexgif/internal/subtitles"
)

// SubtitleInput describes what the renderer should draw over the clip.
//
// Path names a scratch artifact (.srt burned in as text, .sup overlaid as a
// bitmap). StreamIndex selects an embedded bitmap stream to overlay directly
// from the source when no artifact exists; -1 means unused.
type SubtitleInput struct {
	Path        string
	Kind        subtitles.Kind
	StreamIndex int
}

// NoSubtitles is the input for a clip without captions.
func NoSubtitles() SubtitleInput {
	return SubtitleInput{StreamIndex: -1}
}

// Empty reports whether the input draws nothing.
func (s SubtitleInput) Empty() bool {
	return s.Path == "" && s.StreamIndex < 0
}

// Describe returns a short label for logs and history records.
func (s SubtitleInput) Describe() string {
	switch {
	case s.Path != "" && s.Kind == subtitles.KindImage:
		return "image_artifact"
	case s.Path != "":
		return "text_artifact"
	case s.StreamIndex >= 0:
		return "image_stream"
	default:
		return "none"
	}
}

// Request is one render job. End must be after Start.
type Request struct {
	ItemID    string
	SourceURL string
	Subtitle  SubtitleInput
	Start     time.Duration
	End       time.Duration
}

// Duration is the length of the requested window.
func (r Request) Duration() time.Duration {
	return r.End - r.Start
}

// Result reports a successful render.
type Result struct {
	Path     string
	Duration time.Duration
	Stderr   string
}

// Artifact is an extracted subtitle file in a scratch directory.
type Artifact struct {
	Path string
	Kind subtitles.Kind
}

// Input converts the artifact to a render input.
func (a Artifact) Input() SubtitleInput {
	return SubtitleInput{Path: a.Path, Kind: a.Kind, StreamIndex: -1}
}
