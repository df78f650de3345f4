package gifmaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"plexgif/internal/clip"
	"plexgif/internal/language"
	"plexgif/internal/logging"
	"plexgif/internal/services"
	"plexgif/internal/services/plex"
	"plexgif/internal/staging"
	"plexgif/internal/subtitles"
)

const embeddedPrefix = "embedded:"

// MediaSource is the part of the media server client the resolver uses.
type MediaSource interface {
	FetchStream(ctx context.Context, key string) ([]byte, error)
	StreamURL(key string) string
}

// SubtitleExtractor copies an embedded subtitle stream into a directory.
type SubtitleExtractor interface {
	ExtractSubtitle(ctx context.Context, source string, index int, codecHint, dir string) (clip.Artifact, error)
}

// Resolution is the outcome of subtitle resolution for one clip.
type Resolution struct {
	Input    clip.SubtitleInput
	Selected *plex.SubtitleOption
	Reason   string
}

// Language returns the selected stream's language code, or "".
func (r Resolution) Language() string {
	if r.Selected == nil || r.Input.Empty() {
		return ""
	}
	if r.Selected.LanguageCode != "" {
		return r.Selected.LanguageCode
	}
	if iso := language.ToISO3(r.Selected.Language); iso != "und" {
		return iso
	}
	return ""
}

// Resolver picks a subtitle stream for a clip and stages it for the renderer.
type Resolver struct {
	extractor SubtitleExtractor
	preferred string
	logger    *slog.Logger
}

// NewResolver builds a resolver. preferred is the language chosen ahead of
// any explicit selection; an empty value means English.
func NewResolver(extractor SubtitleExtractor, preferred string, logger *slog.Logger) *Resolver {
	if strings.TrimSpace(preferred) == "" {
		preferred = "eng"
	}
	return &Resolver{
		extractor: extractor,
		preferred: preferred,
		logger:    logging.NewComponentLogger(logger, "resolver"),
	}
}

// SelectSubtitle chooses among options: the first stream in the preferred
// language, otherwise the one matching selectedKey, otherwise nothing.
// selectedKey may be a stream key, a stream id, or "embedded:N". An
// "embedded:N" or "/..." key that names no listed stream is still honored.
func SelectSubtitle(options []plex.SubtitleOption, preferred, selectedKey string) (plex.SubtitleOption, string, bool) {
	for _, opt := range options {
		if opt.LanguageCode != "" && language.Matches(opt.LanguageCode, preferred) {
			return opt, "preferred_language", true
		}
		if language.Matches(opt.Language, preferred) {
			return opt, "preferred_language", true
		}
	}

	selectedKey = strings.TrimSpace(selectedKey)
	if selectedKey == "" {
		return plex.SubtitleOption{}, "no_selection", false
	}
	for _, opt := range options {
		if selectedKey == opt.SelectionKey() || (opt.Key != "" && selectedKey == opt.Key) || (opt.ID != "" && selectedKey == opt.ID) {
			return opt, "explicit_selection", true
		}
	}
	if index, ok := parseEmbeddedKey(selectedKey); ok {
		return plex.SubtitleOption{
			ID:           selectedKey,
			Language:     "Unknown",
			DisplayTitle: "Unknown",
			Index:        index,
			Kind:         plex.SubtitleEmbeddedText,
		}, "explicit_selection", true
	}
	if strings.HasPrefix(selectedKey, "/") {
		return plex.SubtitleOption{
			ID:           selectedKey,
			Language:     "Unknown",
			DisplayTitle: "Unknown",
			Key:          selectedKey,
			Index:        -1,
			Kind:         plex.SubtitleSidecar,
		}, "explicit_selection", true
	}
	return plex.SubtitleOption{}, "selection_not_found", false
}

func parseEmbeddedKey(key string) (int, bool) {
	if !strings.HasPrefix(key, embeddedPrefix) {
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimPrefix(key, embeddedPrefix))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// Resolve selects a subtitle for meta and stages it in ws. Subtitle failures
// that leave the clip renderable are logged and resolved to no subtitles;
// only cancellation and deadline errors are returned.
func (r *Resolver) Resolve(ctx context.Context, source MediaSource, meta *plex.ItemMetadata, selectedKey string, ws *staging.Workspace) (Resolution, error) {
	logger := logging.WithContext(ctx, r.logger)
	none := Resolution{Input: clip.NoSubtitles()}

	if ws != nil {
		if err := ws.ClearArtifacts(); err != nil {
			logging.WarnWithContext(logger, "failed to clear stale subtitle artifacts", "scratch_clear_failed",
				logging.String("dir", ws.Dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
				logging.String(logging.FieldImpact, "stale captions may be burned into this clip"),
			)
		}
	}

	opt, reason, ok := SelectSubtitle(meta.SubtitleStreams(), r.preferred, selectedKey)
	logger.Info("subtitle selection",
		logging.Args(append(logging.DecisionAttrs("subtitle_selection", string(opt.Kind), reason),
			logging.String("key", opt.SelectionKey()),
			logging.String("language", opt.Language),
		)...)...)
	if !ok {
		none.Reason = reason
		return none, nil
	}
	selected := opt
	none.Selected = &selected

	switch opt.Kind {
	case plex.SubtitleSidecar:
		if ws == nil {
			none.Reason = "no_workspace"
			return none, nil
		}
		path, err := r.stageSidecar(ctx, source, opt.Key, ws)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return none, ctxErr
			}
			logging.WarnWithContext(logger, "subtitle download failed, continuing without subtitles", "subtitle_download_failed",
				logging.String("key", opt.Key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "clip rendered without captions"),
			)
			none.Reason = "download_failed"
			return none, nil
		}
		return Resolution{
			Input:    clip.SubtitleInput{Path: path, Kind: subtitles.KindText, StreamIndex: -1},
			Selected: &selected,
			Reason:   reason,
		}, nil

	case plex.SubtitleEmbeddedImage:
		return Resolution{
			Input:    clip.SubtitleInput{Kind: subtitles.KindImage, StreamIndex: opt.Index},
			Selected: &selected,
			Reason:   reason,
		}, nil

	default:
		if ws == nil || r.extractor == nil {
			none.Reason = "no_extractor"
			return none, nil
		}
		videoKey := meta.VideoPartKey()
		if videoKey == "" {
			none.Reason = "no_video_part"
			return none, nil
		}
		artifact, err := r.extractor.ExtractSubtitle(ctx, source.StreamURL(videoKey), opt.Index, opt.Codec, ws.Dir)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return none, ctxErr
			}
			if errors.Is(err, services.ErrTimeout) {
				return none, err
			}
			logging.WarnWithContext(logger, "embedded subtitle extraction failed, continuing without subtitles", "subtitle_extract_failed",
				logging.Int("index", opt.Index),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "clip rendered without captions"),
			)
			none.Reason = "extract_failed"
			return none, nil
		}
		return Resolution{Input: artifact.Input(), Selected: &selected, Reason: reason}, nil
	}
}

func (r *Resolver) stageSidecar(ctx context.Context, source MediaSource, key string, ws *staging.Workspace) (string, error) {
	raw, err := source.FetchStream(ctx, key)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("subtitle stream %s is empty", key)
	}
	text, encoding, err := subtitles.ToUTF8(raw)
	if err != nil {
		return "", services.Wrap(services.ErrParse, "resolver", "transcode", "convert subtitle to UTF-8", err)
	}
	if encoding != "utf-8" {
		r.logger.Debug("subtitle transcoded", logging.String("encoding", encoding))
	}
	path := ws.Path(clip.TextArtifactName)
	if err := os.WriteFile(path, text, 0o644); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "resolver", "stage", "write subtitle artifact", err)
	}
	return path, nil
}
