package gifmaker

import (
	"context"

	"plexgif/internal/media/ffprobe"
)

// swapSubtitleLister replaces the subtitle stream lister until the returned
// func runs.
func swapSubtitleLister(fn func(context.Context, string, string) ([]ffprobe.SubtitleStream, error)) func() {
	prev := probeSubtitles
	probeSubtitles = fn
	return func() { probeSubtitles = prev }
}
