package clip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"plexgif/internal/logging"
	"plexgif/internal/media/ffprobe"
	"plexgif/internal/services"
	"plexgif/internal/subtitles"
)

// Scratch artifact names inside a workspace directory.
const (
	TextArtifactName  = "subtitle.srt"
	ImageArtifactName = "subtitle.sup"
)

// probeSubtitles lists subtitle streams. It is a package-level variable so
// tests can override it.
var probeSubtitles = ffprobe.Subtitles

// ArtifactPath returns where an artifact of kind lives inside dir.
func ArtifactPath(dir string, kind subtitles.Kind) string {
	if kind == subtitles.KindImage {
		return filepath.Join(dir, ImageArtifactName)
	}
	return filepath.Join(dir, TextArtifactName)
}

// ExtractSubtitle copies the embedded subtitle stream at index (its position
// among the source's subtitle streams) into dir. codecHint is the codec the
// media server reported; when it does not identify the stream type, ffprobe
// is asked, and failing that text extraction is tried before a bitmap copy.
func (r *Renderer) ExtractSubtitle(ctx context.Context, source string, index int, codecHint, dir string) (Artifact, error) {
	if index < 0 {
		return Artifact{}, services.Wrap(services.ErrValidation, "extract", "validate", fmt.Sprintf("invalid subtitle index %d", index), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "extract", "prepare", "create scratch directory", err)
	}
	logger := logging.WithContext(ctx, r.logger)

	kind := subtitles.ClassifyCodec(codecHint)
	reason := "codec_hint"
	if kind == subtitles.KindUnknown {
		kind = r.probeKind(ctx, source, index)
		reason = "ffprobe"
	}
	if kind != subtitles.KindUnknown {
		logger.Debug("subtitle extraction strategy",
			logging.Args(logging.DecisionAttrs("subtitle_extraction", string(kind), reason)...)...)
		return r.extractAs(ctx, source, index, kind, dir)
	}

	logger.Debug("subtitle extraction strategy",
		logging.Args(logging.DecisionAttrs("subtitle_extraction", "fallback", "codec unknown")...)...)
	artifact, textErr := r.extractAs(ctx, source, index, subtitles.KindText, dir)
	if textErr == nil {
		return artifact, nil
	}
	_ = os.Remove(ArtifactPath(dir, subtitles.KindText))
	logger.Info("text subtitle extraction failed, retrying as bitmap",
		logging.Int("index", index),
		logging.Error(textErr),
	)
	artifact, imageErr := r.extractAs(ctx, source, index, subtitles.KindImage, dir)
	if imageErr == nil {
		return artifact, nil
	}
	_ = os.Remove(ArtifactPath(dir, subtitles.KindImage))
	return Artifact{}, imageErr
}

func (r *Renderer) extractAs(ctx context.Context, source string, index int, kind subtitles.Kind, dir string) (Artifact, error) {
	dest := ArtifactPath(dir, kind)
	stderr, err := r.exec(ctx, "extract subtitle", buildExtractArgs(source, index, kind, dest))
	if err != nil {
		_ = os.Remove(dest)
		return Artifact{}, err
	}
	info, statErr := os.Stat(dest)
	if statErr != nil || info.Size() == 0 {
		_ = os.Remove(dest)
		return Artifact{}, &services.RenderError{Op: "extract subtitle", Missing: true, Stderr: stderr, Err: statErr}
	}
	return Artifact{Path: dest, Kind: kind}, nil
}

func (r *Renderer) probeKind(ctx context.Context, source string, index int) subtitles.Kind {
	streams, err := probeSubtitles(ctx, r.settings.FFprobeBinary, source)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Debug("ffprobe codec lookup failed", logging.Error(err))
		}
		return subtitles.KindUnknown
	}
	for _, s := range streams {
		if s.Position == index {
			return subtitles.ClassifyCodec(strings.ToLower(s.CodecName))
		}
	}
	return subtitles.KindUnknown
}
