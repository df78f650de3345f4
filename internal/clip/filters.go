package clip

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"plexgif/internal/subtitles"
)

// baseFilter rebases the window to zero after any subtitle stage, then
// resamples and scales.
func (r *Renderer) baseFilter() string {
	return fmt.Sprintf("setpts=PTS-STARTPTS,fps=%d,scale=%d:-1:flags=lanczos", r.settings.FPS, r.settings.Width)
}

// buildRenderArgs assembles the single ffmpeg invocation for req. Input
// seeking keeps the source timestamps (-copyts) so subtitle cues, which are
// timed against the whole item, line up with the window.
func (r *Renderer) buildRenderArgs(req Request, output string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-copyts",
		"-ss", formatSeconds(req.Start),
		"-t", formatSeconds(req.Duration()),
		"-i", req.SourceURL,
	}

	sub := req.Subtitle
	filterFlag := "-lavfi"
	filters := r.baseFilter()
	switch {
	case sub.Path != "" && sub.Kind == subtitles.KindImage:
		// Bitmap artifacts are a second input, seeked to the same window.
		args = append(args, "-ss", formatSeconds(req.Start), "-i", sub.Path)
		filterFlag = "-filter_complex"
		filters = "[0:v][1:s]overlay," + filters
	case sub.Path != "":
		filters = fmt.Sprintf("subtitles='%s':force_style='Fontsize=%d',", escapeFilterPath(sub.Path), r.settings.FontSize) + filters
	case sub.StreamIndex >= 0:
		filterFlag = "-filter_complex"
		filters = fmt.Sprintf("[0:v][0:s:%d]overlay,", sub.StreamIndex) + filters
	}

	args = append(args,
		"-r", strconv.Itoa(r.settings.OutputRate),
		filterFlag, filters,
		output,
	)
	return args
}

func buildExtractArgs(source string, index int, kind subtitles.Kind, dest string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", source,
		"-map", fmt.Sprintf("0:s:%d", index),
	}
	if kind == subtitles.KindImage {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, "-c:s", "srt")
	}
	return append(args, dest)
}

func formatSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// escapeFilterPath quotes a path for use inside a single-quoted filter option.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	return strings.ReplaceAll(path, `'`, `'\''`)
}
