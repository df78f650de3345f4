package subtitles

import (
	"regexp"
	"strings"
)

var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)opensubtitles`),
	regexp.MustCompile(`(?i)subtitles? by`),
	regexp.MustCompile(`(?i)synced? and corrected`),
	regexp.MustCompile(`(?i)advertise (your|yours?) product`),
	regexp.MustCompile(`(?i)https?://`),
	regexp.MustCompile(`(?i)\bwww\.`),
	regexp.MustCompile(`(?i)\bsubscene\b`),
	regexp.MustCompile(`(?i)\byts\b`),
	regexp.MustCompile(`(?i)\byify\b`),
}

// DropAdvertisements removes provider watermark cues that subtitle sites
// inject at the start and end of downloads. It returns the kept cues and the
// number removed.
func DropAdvertisements(cues []Cue) ([]Cue, int) {
	kept := make([]Cue, 0, len(cues))
	removed := 0
	for _, cue := range cues {
		if isAdvertisement(cue.Text) {
			removed++
			continue
		}
		kept = append(kept, cue)
	}
	return kept, removed
}

func isAdvertisement(text string) bool {
	payload := strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if payload == "" {
		return false
	}
	for _, pattern := range adPatterns {
		if pattern.MatchString(payload) {
			return true
		}
	}
	return false
}
