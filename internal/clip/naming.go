package clip

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"plexgif/internal/textutil"
)

const (
	outputExt       = ".gif"
	maxNameAttempts = 10000
)

// FormatTimestamp renders d as 00h01m05s250ms.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond
	return fmt.Sprintf("%02dh%02dm%02ds%03dms", hours, minutes, seconds, millis)
}

// BaseName is the collision-free name for a window before any suffix.
func BaseName(itemID string, start, end time.Duration) string {
	return fmt.Sprintf("%s_%s_to_%s", textutil.SanitizeToken(itemID), FormatTimestamp(start), FormatTimestamp(end))
}

// ReserveOutput creates an empty placeholder for the first unused name in dir
// and returns its path. Existing files are never touched.
func ReserveOutput(dir, base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("reserve output: empty base name")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	for n := 0; n < maxNameAttempts; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		candidate := filepath.Join(dir, name+outputExt)
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if closeErr := f.Close(); closeErr != nil {
				_ = os.Remove(candidate)
				return "", fmt.Errorf("reserve output: %w", closeErr)
			}
			return candidate, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return "", fmt.Errorf("reserve output: %w", err)
	}
	return "", fmt.Errorf("reserve output: no free name for %s after %d attempts", base, maxNameAttempts)
}
