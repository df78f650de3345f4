package subtitles

import (
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"plexgif/internal/language"
)

const minDetectRunes = 12

// DetectLanguage votes a language over the cue text and returns its ISO
// 639-2 code with the share of cues that agreed. Cues too short to classify
// are ignored; when nothing can be classified the result is ("und", 0).
func DetectLanguage(cues []Cue) (string, float64) {
	votes := make(map[string]int)
	total := 0
	for _, cue := range cues {
		text := strings.Join(strings.Fields(cue.Text), " ")
		if utf8.RuneCountInString(text) < minDetectRunes {
			continue
		}
		code := whatlanggo.DetectLang(text).Iso6391()
		if code == "" {
			continue
		}
		votes[code]++
		total++
	}
	if total == 0 {
		return "und", 0
	}

	var top string
	var topCount int
	for code, count := range votes {
		if count > topCount || (count == topCount && code < top) {
			top, topCount = code, count
		}
	}
	return language.ToISO3(top), float64(topCount) / float64(total)
}
