package gifmaker

import (
	"strconv"
	"strings"

	"plexgif/internal/language"
	"plexgif/internal/media/ffprobe"
	"plexgif/internal/services/plex"
	"plexgif/internal/subtitles"
)

var probeSubtitles = ffprobe.Subtitles

// mergeProbed appends probed streams whose position the server did not list.
func mergeProbed(options []plex.SubtitleOption, probed []ffprobe.SubtitleStream) []plex.SubtitleOption {
	known := make(map[int]struct{}, len(options))
	for _, opt := range options {
		if opt.Index >= 0 {
			known[opt.Index] = struct{}{}
		}
	}
	for _, stream := range probed {
		if _, ok := known[stream.Position]; ok {
			continue
		}
		code := language.ToISO3(stream.Language())
		name := language.DisplayName(code)
		if code == "und" {
			code, name = "", "Unknown"
		}
		codec := strings.ToLower(stream.CodecName)
		title := strings.TrimSpace(stream.Tags.Title)
		if title == "" {
			title = name + " (" + strings.ToUpper(codec) + ")"
		}
		kind := plex.SubtitleEmbeddedText
		if subtitles.ClassifyCodec(codec) == subtitles.KindImage {
			kind = plex.SubtitleEmbeddedImage
		}
		options = append(options, plex.SubtitleOption{
			ID:           embeddedPrefix + strconv.Itoa(stream.Position),
			Language:     name,
			LanguageCode: code,
			DisplayTitle: title,
			Codec:        codec,
			Index:        stream.Position,
			Kind:         kind,
		})
	}
	return options
}
