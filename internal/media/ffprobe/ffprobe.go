package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"plexgif/internal/logging"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int         `json:"index"`
	CodecName   string      `json:"codec_name"`
	CodecType   string      `json:"codec_type"`
	Duration    string      `json:"duration"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Tags        Tags        `json:"tags"`
	Disposition Disposition `json:"disposition"`
}

// Tags holds the stream metadata ffprobe reports.
type Tags struct {
	Language string `json:"language"`
	Title    string `json:"title"`
}

// Disposition flags a stream as default or forced.
type Disposition struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// SubtitleStream is a subtitle stream numbered among the container's
// subtitle streams only.
type SubtitleStream struct {
	Position int
	Stream
}

// Inspect executes ffprobe against source and decodes the JSON response.
func Inspect(ctx context.Context, binary, source string) (Result, error) {
	return run(ctx, binary, source, "-show_format", "-show_streams")
}

// Subtitles probes only the subtitle streams of source.
func Subtitles(ctx context.Context, binary, source string) ([]SubtitleStream, error) {
	result, err := run(ctx, binary, source, "-show_streams", "-select_streams", "s")
	if err != nil {
		return nil, err
	}
	return result.SubtitleStreams(), nil
}

func run(ctx context.Context, binary, source string, selection ...string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return Result{}, errors.New("ffprobe inspect: empty source")
	}

	args := append([]string{"-v", "error", "-hide_banner", "-of", "json"}, selection...)
	args = append(args, "--", source)
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	var result Result
	parseErr := json.Unmarshal(stdout.Bytes(), &result)
	// ffprobe exits non-zero on trailing stream damage but still lists streams.
	if runErr != nil && (parseErr != nil || len(result.Streams) == 0) {
		detail := logging.RedactText(strings.TrimSpace(stderr.String()))
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", runErr, detail)
	}
	if parseErr != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", parseErr)
	}
	return result, nil
}

// SubtitleStreams returns subtitle streams in container order with their
// position among subtitle streams.
func (r Result) SubtitleStreams() []SubtitleStream {
	out := make([]SubtitleStream, 0, len(r.Streams))
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "subtitle") {
			continue
		}
		out = append(out, SubtitleStream{Position: len(out), Stream: stream})
	}
	return out
}

// SubtitleCodec returns the codec of the subtitle stream at position, or ""
// when there is no such stream.
func (r Result) SubtitleCodec(position int) string {
	for _, s := range r.SubtitleStreams() {
		if s.Position == position {
			return s.CodecName
		}
	}
	return ""
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, 0 when
// unavailable, or NaN when the value is not numeric.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// Language returns the stream's language tag, or "und".
func (s Stream) Language() string {
	if lang := strings.TrimSpace(s.Tags.Language); lang != "" {
		return strings.ToLower(lang)
	}
	return "und"
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
