package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RequiredFilters are the ffmpeg filters the render graph uses. "subtitles"
// needs an ffmpeg built with libass.
var RequiredFilters = []string{"fps", "scale", "overlay", "subtitles"}

// FilterLister returns the output of "ffmpeg -filters".
type FilterLister func(ctx context.Context, binary string) ([]byte, error)

func listFilters(ctx context.Context, binary string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output() //nolint:gosec
}

// CheckFFmpegFilters reports whether binary provides every filter in
// RequiredFilters. A nil lister runs the binary.
func CheckFFmpegFilters(ctx context.Context, binary string, lister FilterLister) Status {
	result := Status{
		Name:        "FFmpeg filters",
		Command:     strings.TrimSpace(binary),
		Description: strings.Join(RequiredFilters, ", "),
	}
	if result.Command == "" {
		result.Detail = "command not configured"
		return result
	}
	if lister == nil {
		lister = listFilters
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := lister(checkCtx, result.Command)
	if err != nil {
		result.Detail = fmt.Sprintf("list filters: %v", err)
		return result
	}
	available := parseFilterNames(out)
	var missing []string
	for _, name := range RequiredFilters {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		result.Detail = "missing filters: " + strings.Join(missing, ", ")
		return result
	}
	result.Available = true
	return result
}

// parseFilterNames reads the second column of "ffmpeg -filters" rows such as
// " T.C overlay           VV->V      Overlay a video source on top of the input."
func parseFilterNames(out []byte) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}
