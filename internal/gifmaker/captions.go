package gifmaker

import (
	"context"
	"os"
	"strings"

	"plexgif/internal/clip"
	"plexgif/internal/logging"
	"plexgif/internal/services"
	"plexgif/internal/services/plex"
	"plexgif/internal/subtitles"
)

// CaptionCue is one caption line as shown in a preview.
type CaptionCue struct {
	Index   int    `json:"index"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// CaptionPreview is the parsed text of one subtitle stream.
type CaptionPreview struct {
	ItemID     string       `json:"item_id"`
	Key        string       `json:"key"`
	Encoding   string       `json:"encoding"`
	Language   string       `json:"detected_language"`
	Confidence float64      `json:"confidence"`
	Dropped    int          `json:"dropped_advertisements"`
	Cues       []CaptionCue `json:"cues"`
}

type captionEntry struct {
	preview CaptionPreview
	text    []byte
}

// Captions returns the cues of the subtitle stream named by key, or of the
// preferred-language text stream when key is empty.
func (s *Service) Captions(ctx context.Context, itemID, key string) (CaptionPreview, error) {
	entry, err := s.loadCaptions(ctx, itemID, key)
	if err != nil {
		return CaptionPreview{}, err
	}
	return entry.preview, nil
}

// CaptionsVTT returns the same stream as Captions converted to WebVTT.
func (s *Service) CaptionsVTT(ctx context.Context, itemID, key string) ([]byte, error) {
	entry, err := s.loadCaptions(ctx, itemID, key)
	if err != nil {
		return nil, err
	}
	vtt, err := subtitles.ToWebVTT(entry.text)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "gifmaker", "captions_vtt", "convert captions to WebVTT", err)
	}
	return vtt, nil
}

func (s *Service) loadCaptions(ctx context.Context, itemID, key string) (*captionEntry, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, services.Wrap(services.ErrValidation, "gifmaker", "captions", "item id is required", nil)
	}
	client, err := s.requireClient()
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	cacheKey := s.ServerURL() + "|" + itemID + "|" + key
	if cached, ok := s.captions.Get(cacheKey); ok {
		if entry, ok := cached.(*captionEntry); ok {
			return entry, nil
		}
	}

	ctx = services.WithItemID(ctx, itemID)
	ctx = services.WithStage(ctx, "captions")
	logger := logging.WithContext(ctx, s.logger)

	meta, err := client.FetchItemMetadata(ctx, itemID)
	if err != nil {
		return nil, err
	}
	opt, ok := s.previewOption(meta.SubtitleStreams(), key)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "gifmaker", "captions", "item has no previewable subtitle stream", nil)
	}

	raw, err := s.captionBytes(ctx, client, meta, opt)
	if err != nil {
		return nil, err
	}
	text, encoding, err := subtitles.ToUTF8(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "gifmaker", "captions", "convert subtitle to UTF-8", err)
	}

	cues := subtitles.Parse(text, s.baseLogger)
	cues, dropped := subtitles.DropAdvertisements(cues)
	lang, confidence := subtitles.DetectLanguage(cues)

	preview := CaptionPreview{
		ItemID:     itemID,
		Key:        opt.SelectionKey(),
		Encoding:   encoding,
		Language:   lang,
		Confidence: confidence,
		Dropped:    dropped,
		Cues:       make([]CaptionCue, 0, len(cues)),
	}
	for _, cue := range cues {
		preview.Cues = append(preview.Cues, CaptionCue{
			Index:   cue.Index,
			StartMs: cue.Start.Milliseconds(),
			EndMs:   cue.End.Milliseconds(),
			Text:    cue.Text,
		})
	}
	logger.Debug("captions parsed",
		logging.Int("cues", len(preview.Cues)),
		logging.Int("dropped", dropped),
		logging.String("detected_language", lang),
	)

	entry := &captionEntry{preview: preview, text: text}
	if s.captionTTL > 0 {
		s.captions.SetWithTTL(cacheKey, entry, int64(len(text))+1, s.captionTTL)
		s.captions.Wait()
	}
	return entry, nil
}

// previewOption picks the stream to preview: the one named by key, else the
// preferred-language stream, else the first stream that carries text.
func (s *Service) previewOption(options []plex.SubtitleOption, key string) (plex.SubtitleOption, bool) {
	if key != "" {
		opt, _, ok := SelectSubtitle(options, "", key)
		return opt, ok
	}
	if opt, _, ok := SelectSubtitle(options, s.cfg.Subtitles.PreferredLanguage, ""); ok && opt.Kind != plex.SubtitleEmbeddedImage {
		return opt, true
	}
	for _, opt := range options {
		if opt.Kind != plex.SubtitleEmbeddedImage {
			return opt, true
		}
	}
	return plex.SubtitleOption{}, false
}

func (s *Service) captionBytes(ctx context.Context, client *plex.Client, meta *plex.ItemMetadata, opt plex.SubtitleOption) ([]byte, error) {
	switch opt.Kind {
	case plex.SubtitleSidecar:
		return client.FetchStream(ctx, opt.Key)
	case plex.SubtitleEmbeddedImage:
		return nil, services.Wrap(services.ErrValidation, "gifmaker", "captions", "bitmap subtitles have no text to preview", nil)
	}

	partKey := meta.VideoPartKey()
	if partKey == "" {
		return nil, services.Wrap(services.ErrNotFound, "gifmaker", "captions", "item has no video part", nil)
	}
	requestID, _ := services.RequestIDFromContext(ctx)
	ws, err := s.workspaces.Acquire(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer ws.Release()

	artifact, err := s.renderer.ExtractSubtitle(ctx, client.StreamURL(partKey), opt.Index, opt.Codec, ws.Dir)
	if err != nil {
		return nil, err
	}
	if artifact.Kind != subtitles.KindText {
		return nil, services.Wrap(services.ErrValidation, "gifmaker", "captions", "embedded stream is a bitmap subtitle", nil)
	}
	data, err := os.ReadFile(ws.Path(clip.TextArtifactName))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "gifmaker", "captions", "read extracted subtitle", err)
	}
	return data, nil
}
