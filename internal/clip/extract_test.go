package clip

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plexgif/internal/media/ffprobe"
	"plexgif/internal/services"
	"plexgif/internal/subtitles"
)

func stubProbe(t *testing.T, streams []ffprobe.SubtitleStream, err error) *int {
	t.Helper()
	calls := 0
	restore := swapSubtitleLister(func(context.Context, string, string) ([]ffprobe.SubtitleStream, error) {
		calls++
		return streams, err
	})
	t.Cleanup(restore)
	return &calls
}

func TestExtractUsesCodecHintWithoutProbing(t *testing.T) {
	calls := stubProbe(t, nil, errors.New("should not probe"))
	cases := []struct {
		codec string
		kind  subtitles.Kind
		arg   string
		file  string
	}{
		{"pgs", subtitles.KindImage, "-c copy", ImageArtifactName},
		{"srt", subtitles.KindText, "-c:s srt", TextArtifactName},
	}
	for _, tc := range cases {
		fake := &fakeFFmpeg{respond: writeOutput}
		r, _ := newTestRenderer(t, fake)
		dir := t.TempDir()

		artifact, err := r.ExtractSubtitle(context.Background(), "http://src", 1, tc.codec, dir)
		if err != nil {
			t.Fatalf("%s: ExtractSubtitle: %v", tc.codec, err)
		}
		if artifact.Kind != tc.kind || artifact.Path != filepath.Join(dir, tc.file) {
			t.Fatalf("%s: unexpected artifact %#v", tc.codec, artifact)
		}
		calls := fake.recorded()
		if len(calls) != 1 {
			t.Fatalf("%s: expected one ffmpeg call, got %d", tc.codec, len(calls))
		}
		joined := strings.Join(calls[0], " ")
		if !strings.Contains(joined, "-map 0:s:1 "+tc.arg) {
			t.Fatalf("%s: unexpected args %s", tc.codec, joined)
		}
	}
	if *calls != 0 {
		t.Fatalf("ffprobe must not run when the codec hint is known, ran %d times", *calls)
	}
}

func TestExtractConsultsProbeForUnknownHint(t *testing.T) {
	stubProbe(t, []ffprobe.SubtitleStream{
		{Position: 0, Stream: ffprobe.Stream{CodecName: "subrip"}},
		{Position: 1, Stream: ffprobe.Stream{CodecName: "hdmv_pgs_subtitle"}},
	}, nil)
	fake := &fakeFFmpeg{respond: writeOutput}
	r, _ := newTestRenderer(t, fake)

	artifact, err := r.ExtractSubtitle(context.Background(), "http://src", 1, "", t.TempDir())
	if err != nil {
		t.Fatalf("ExtractSubtitle: %v", err)
	}
	if artifact.Kind != subtitles.KindImage {
		t.Fatalf("expected probe to pick bitmap extraction, got %#v", artifact)
	}
	if len(fake.recorded()) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.recorded()))
	}
}

func TestExtractFallsBackToBitmapCopy(t *testing.T) {
	stubProbe(t, nil, errors.New("probe unavailable"))
	fake := &fakeFFmpeg{respond: func(ctx context.Context, args []string, output string) ([]byte, error) {
		if strings.HasSuffix(output, TextArtifactName) {
			// Leave a partial file behind to check it is cleaned up.
			_ = os.WriteFile(output, []byte("partial"), 0o644)
			return []byte("Subtitle encoding currently only possible from text to text or bitmap to bitmap"), exitStatus(1)
		}
		return writeOutput(ctx, args, output)
	}}
	r, _ := newTestRenderer(t, fake)
	dir := t.TempDir()

	artifact, err := r.ExtractSubtitle(context.Background(), "http://src", 0, "mystery", dir)
	if err != nil {
		t.Fatalf("ExtractSubtitle: %v", err)
	}
	if artifact.Kind != subtitles.KindImage || artifact.Path != filepath.Join(dir, ImageArtifactName) {
		t.Fatalf("unexpected artifact %#v", artifact)
	}
	if _, err := os.Stat(filepath.Join(dir, TextArtifactName)); !os.IsNotExist(err) {
		t.Fatal("partial text artifact must be removed")
	}
	if len(fake.recorded()) != 2 {
		t.Fatalf("expected two attempts, got %d", len(fake.recorded()))
	}
}

func TestExtractBothAttemptsFail(t *testing.T) {
	stubProbe(t, nil, errors.New("probe unavailable"))
	fake := &fakeFFmpeg{respond: func(_ context.Context, _ []string, output string) ([]byte, error) {
		return []byte("failed for " + filepath.Base(output)), exitStatus(1)
	}}
	r, _ := newTestRenderer(t, fake)

	_, err := r.ExtractSubtitle(context.Background(), "http://src", 0, "", t.TempDir())
	var renderErr *services.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if !strings.Contains(renderErr.Stderr, ImageArtifactName) {
		t.Fatalf("expected the last attempt's stderr, got %q", renderErr.Stderr)
	}
}

func TestExtractRejectsNegativeIndex(t *testing.T) {
	fake := &fakeFFmpeg{respond: writeOutput}
	r := NewRenderer(Settings{OutputDir: t.TempDir(), Timeout: time.Second}, WithCommandRunner(fake.run))
	if _, err := r.ExtractSubtitle(context.Background(), "http://src", -1, "srt", t.TempDir()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
