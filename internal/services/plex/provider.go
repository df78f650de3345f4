package plex

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"plexgif/internal/language"
	"plexgif/internal/logging"
)

// ProviderResult reports the outcome of a subtitle-provider request.
type ProviderResult struct {
	Found    bool   `json:"found"`
	StreamID int    `json:"stream_id,omitempty"`
	Language string `json:"language,omitempty"`
}

// ProviderOptions tunes RequestProviderSubtitles.
type ProviderOptions struct {
	Language      string
	ProviderTitle string
}

// RequestProviderSubtitles asks the server to search its subtitle agents for
// itemID and attach the first candidate. No candidate is not an error.
func (c *Client) RequestProviderSubtitles(ctx context.Context, itemID string, opts ProviderOptions) (ProviderResult, error) {
	lang := opts.Language
	if strings.TrimSpace(lang) == "" {
		lang = "eng"
	}
	iso2 := language.ToISO2(lang)
	if iso2 == "" {
		iso2 = "en"
	}
	iso3 := language.ToISO3(lang)
	if iso3 == "und" {
		iso3 = "eng"
	}
	provider := strings.TrimSpace(opts.ProviderTitle)
	if provider == "" {
		provider = "OpenSubtitles"
	}

	itemPath := "/library/metadata/" + url.PathEscape(itemID) + "/subtitles"
	search := url.Values{}
	search.Set("language", iso2)
	search.Set("hearingImpaired", "0")
	search.Set("forced", "0")

	payload, err := c.get(ctx, itemPath, search)
	if err != nil {
		return ProviderResult{}, err
	}
	streamID, ok, err := ExtractProviderStreamID(payload)
	if err != nil {
		return ProviderResult{}, err
	}
	if !ok {
		c.logger.Info("no provider subtitles found",
			logging.String(logging.FieldItemID, itemID),
			logging.String("language", iso3),
		)
		return ProviderResult{}, nil
	}

	attach := url.Values{}
	attach.Set("key", "/library/streams/"+strconv.Itoa(streamID))
	attach.Set("codec", "srt")
	attach.Set("language", iso3)
	attach.Set("hearingImpaired", "0")
	attach.Set("forced", "0")
	attach.Set("providerTitle", provider)

	if _, err := c.do(ctx, http.MethodPut, itemPath, attach); err != nil {
		return ProviderResult{}, err
	}
	c.logger.Info("provider subtitles attached",
		logging.String(logging.FieldItemID, itemID),
		logging.Int("stream_id", streamID),
		logging.String("provider", provider),
	)
	return ProviderResult{Found: true, StreamID: streamID, Language: iso3}, nil
}

// ExtractProviderStreamID returns the numeric id at the end of the first
// <Stream key="..."> in a provider search response. An empty or keyless
// result reports false; a malformed document is an ErrParse error.
func ExtractProviderStreamID(payload []byte) (int, bool, error) {
	doc, err := decodeProviderSearch(payload)
	if err != nil {
		return 0, false, err
	}
	if len(doc.Streams) == 0 {
		return 0, false, nil
	}
	key := strings.TrimSpace(doc.Streams[0].Key)
	if key == "" {
		return 0, false, nil
	}
	id, err := strconv.Atoi(path.Base(key))
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}
