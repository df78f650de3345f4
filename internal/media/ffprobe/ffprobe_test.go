package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "video"},
			{Index: 1, CodecType: "audio"},
			{Index: 2, CodecType: "subtitle", CodecName: "subrip", Tags: Tags{Language: "ENG"}},
			{Index: 3, CodecType: "subtitle", CodecName: "hdmv_pgs_subtitle"},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	subs := result.SubtitleStreams()
	if len(subs) != 2 || subs[0].Position != 0 || subs[1].Position != 1 || subs[1].Index != 3 {
		t.Fatalf("unexpected subtitle numbering: %#v", subs)
	}
	if subs[0].Language() != "eng" || subs[1].Language() != "und" {
		t.Fatalf("unexpected languages: %q %q", subs[0].Language(), subs[1].Language())
	}
	if result.SubtitleCodec(1) != "hdmv_pgs_subtitle" || result.SubtitleCodec(5) != "" {
		t.Fatal("unexpected subtitle codec lookup")
	}
}

func TestDurationInvalidIsNaN(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN, got %v", result.DurationSeconds())
	}
}

func writeFakeProbe(t *testing.T, stdout, stderr string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\necho '" + stdout + "'\necho '" + stderr + "' >&2\nexit " + strconv.Itoa(exitCode) + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return path
}

func TestSubtitlesFromFakeProbe(t *testing.T) {
	cases := []struct {
		name      string
		stdout    string
		exit      int
		wantCount int
		wantErr   bool
	}{
		{
			name:      "two subtitle streams",
			stdout:    `{"streams":[{"index":2,"codec_type":"subtitle","codec_name":"subrip","tags":{"language":"eng"}},{"index":3,"codec_type":"subtitle","codec_name":"hdmv_pgs_subtitle"}]}`,
			wantCount: 2,
		},
		{
			name:      "no streams",
			stdout:    `{"streams":[]}`,
			wantCount: 0,
		},
		{
			name:      "non-zero exit with streams is tolerated",
			stdout:    `{"streams":[{"index":2,"codec_type":"subtitle","codec_name":"ass"}]}`,
			exit:      1,
			wantCount: 1,
		},
		{
			name:    "non-zero exit without streams fails",
			stdout:  `{}`,
			exit:    1,
			wantErr: true,
		},
		{
			name:    "invalid json",
			stdout:  `{"streams": [`,
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			probe := writeFakeProbe(t, tc.stdout, "", tc.exit)
			subs, err := Subtitles(context.Background(), probe, "http://plex.local/library/parts/1/file.mkv")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Subtitles: %v", err)
			}
			if len(subs) != tc.wantCount {
				t.Fatalf("expected %d streams, got %d", tc.wantCount, len(subs))
			}
		})
	}
}

func TestInspectErrorMasksToken(t *testing.T) {
	probe := writeFakeProbe(t, "", "http://plex.local/file.mkv?X-Plex-Token=supersecret: Server returned 401", 1)
	_, err := Inspect(context.Background(), probe, "http://plex.local/file.mkv?X-Plex-Token=supersecret")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "supersecret") {
		t.Fatalf("token leaked into error: %v", err)
	}
}

func TestInspectRejectsEmptySource(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty source")
	}
}
