package plex

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"plexgif/internal/logging"
	"plexgif/internal/subtitles"
)

// SubtitleKind distinguishes how a subtitle stream reaches the renderer.
type SubtitleKind string

const (
	SubtitleSidecar       SubtitleKind = "sidecar"
	SubtitleEmbeddedText  SubtitleKind = "embedded_text"
	SubtitleEmbeddedImage SubtitleKind = "embedded_image"
)

// SubtitleOption is one subtitle stream of an item.
type SubtitleOption struct {
	ID           string       `json:"id"`
	Language     string       `json:"language"`
	LanguageCode string       `json:"language_code"`
	Key          string       `json:"key,omitempty"`
	DisplayTitle string       `json:"display_title"`
	Codec        string       `json:"codec"`
	Index        int          `json:"index"`
	Kind         SubtitleKind `json:"kind"`
}

// SelectionKey returns the value a caller passes back to choose this option.
func (o SubtitleOption) SelectionKey() string {
	if o.Key != "" {
		return o.Key
	}
	if o.Index >= 0 {
		return "embedded:" + strconv.Itoa(o.Index)
	}
	return o.ID
}

// ItemMetadata is one fetched /library/metadata/{id} document.
type ItemMetadata struct {
	ItemID string
	Raw    []byte
	doc    *mediaContainer
}

// FetchItemMetadata downloads and decodes the metadata document for itemID.
// Concurrent calls for the same item share one request. The shared request
// outlives any single caller's cancellation and is bounded by the client
// timeout; each caller stops waiting when its own ctx ends.
func (c *Client) FetchItemMetadata(ctx context.Context, itemID string) (*ItemMetadata, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(itemID, func() (any, error) {
		payload, err := c.get(detached, "/library/metadata/"+url.PathEscape(itemID), nil)
		if err != nil {
			return nil, err
		}
		return NewItemMetadata(itemID, payload)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("metadata fetch shared", logging.String(logging.FieldItemID, itemID))
		}
		return res.Val.(*ItemMetadata), nil
	}
}

// NewItemMetadata decodes an already fetched metadata payload.
func NewItemMetadata(itemID string, payload []byte) (*ItemMetadata, error) {
	doc, err := decodeContainer(payload)
	if err != nil {
		return nil, err
	}
	return &ItemMetadata{ItemID: itemID, Raw: payload, doc: doc}, nil
}

func (m *ItemMetadata) firstVideo() (xmlVideo, bool) {
	if m == nil || m.doc == nil || len(m.doc.Videos) == 0 {
		return xmlVideo{}, false
	}
	return m.doc.Videos[0], true
}

// ContainerFormat returns the first part's container (e.g. "mkv"), or "".
func (m *ItemMetadata) ContainerFormat() string {
	video, ok := m.firstVideo()
	if !ok {
		return ""
	}
	part, ok := video.firstPart()
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(part.Container))
}

// VideoPartKey returns the first part's key, or "" when the item has no playable part.
func (m *ItemMetadata) VideoPartKey() string {
	video, ok := m.firstVideo()
	if !ok {
		return ""
	}
	part, ok := video.firstPart()
	if !ok {
		return ""
	}
	return strings.TrimSpace(part.Key)
}

// SubtitleStreams lists every streamType=3 stream. Embedded streams are
// numbered in document order for ffmpeg's 0:s:N selector; sidecars that are
// not part of the container carry Index -1.
func (m *ItemMetadata) SubtitleStreams() []SubtitleOption {
	if m == nil || m.doc == nil {
		return nil
	}
	var out []SubtitleOption
	embedded := 0
	for _, video := range m.doc.Videos {
		for _, s := range video.streams() {
			if s.StreamType != "3" {
				continue
			}
			opt := SubtitleOption{
				ID:           s.ID,
				Language:     defaultString(s.Language, "Unknown"),
				LanguageCode: s.LanguageCode,
				Key:          strings.TrimSpace(s.Key),
				DisplayTitle: defaultString(s.DisplayTitle, "Unknown"),
				Codec:        strings.ToLower(s.Codec),
				Index:        -1,
			}
			if opt.Key == "" || s.Index != "" {
				opt.Index = embedded
				embedded++
			}
			switch {
			case opt.Key != "":
				opt.Kind = SubtitleSidecar
			case subtitles.ClassifyCodec(opt.Codec) == subtitles.KindImage:
				opt.Kind = SubtitleEmbeddedImage
			default:
				opt.Kind = SubtitleEmbeddedText
			}
			out = append(out, opt)
		}
	}
	return out
}

// Duration returns the first video's duration. Absent or non-numeric values
// yield zero.
func (m *ItemMetadata) Duration() time.Duration {
	d, _ := m.duration()
	return d
}

func (m *ItemMetadata) duration() (time.Duration, bool) {
	video, ok := m.firstVideo()
	if !ok || video.Duration == nil {
		return 0, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(*video.Duration), 10, 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// ExtractContainerFormat is ContainerFormat over a raw payload. Malformed input yields "".
func ExtractContainerFormat(payload []byte) string {
	m, err := NewItemMetadata("", payload)
	if err != nil {
		return ""
	}
	return m.ContainerFormat()
}

// ExtractVideoPartKey is VideoPartKey over a raw payload. Malformed input yields "".
func ExtractVideoPartKey(payload []byte) string {
	m, err := NewItemMetadata("", payload)
	if err != nil {
		return ""
	}
	return m.VideoPartKey()
}

// ExtractSubtitleStreams is SubtitleStreams over a raw payload.
func ExtractSubtitleStreams(payload []byte) []SubtitleOption {
	m, err := NewItemMetadata("", payload)
	if err != nil {
		return nil
	}
	return m.SubtitleStreams()
}

// ExtractDuration is Duration over a raw payload.
func ExtractDuration(payload []byte) time.Duration {
	m, err := NewItemMetadata("", payload)
	if err != nil {
		return 0
	}
	return m.Duration()
}

// GetDuration fetches the item and returns its duration. A missing or
// unparseable duration is logged and returned as zero.
func (c *Client) GetDuration(ctx context.Context, itemID string) (time.Duration, error) {
	meta, err := c.FetchItemMetadata(ctx, itemID)
	if err != nil {
		return 0, err
	}
	d, ok := meta.duration()
	if !ok {
		logging.WarnWithContext(c.logger, "item duration unavailable", "duration_missing",
			logging.String(logging.FieldItemID, itemID),
			logging.String(logging.FieldErrorHint, "the server did not report a numeric duration"),
			logging.String(logging.FieldImpact, "duration shown as zero"),
		)
	}
	return d, nil
}

// FetchStream downloads the body behind a server-relative key such as a
// sidecar subtitle path.
func (c *Client) FetchStream(ctx context.Context, key string) ([]byte, error) {
	return c.get(ctx, key, nil)
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
