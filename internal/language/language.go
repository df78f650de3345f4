package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// bibliographic ISO 639-2/B codes that x/text does not map on its own.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"cze": "cs",
	"gre": "el",
	"per": "fa",
	"rum": "ro",
	"slo": "sk",
	"alb": "sq",
	"arm": "hy",
	"baq": "eu",
	"bur": "my",
	"geo": "ka",
	"ice": "is",
	"mac": "mk",
	"may": "ms",
	"wel": "cy",
}

// Word forms recognized in addition to codes, e.g. Plex's "English" language label.
var wordTags = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.Japanese, language.Korean,
	language.Chinese, language.Russian, language.Arabic, language.Hindi,
	language.Dutch, language.Polish, language.Swedish, language.Danish,
	language.Norwegian, language.Finnish, language.Czech, language.Greek,
	language.Hebrew, language.Hungarian, language.Turkish, language.Thai,
	language.Vietnamese, language.Indonesian, language.Romanian, language.Ukrainian,
}

var byWord map[string]language.Base

func init() {
	namer := display.English.Languages()
	byWord = make(map[string]language.Base, len(wordTags))
	for _, tag := range wordTags {
		base, _ := tag.Base()
		byWord[strings.ToLower(namer.Name(tag))] = base
	}
}

func lookup(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Base{}, false
	}
	if mapped, ok := bibliographic[code]; ok {
		code = mapped
	}
	if base, ok := byWord[code]; ok {
		return base, true
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Base{}, false
	}
	base, confidence := tag.Base()
	if confidence == language.No || base.String() == "und" {
		return language.Base{}, false
	}
	return base, true
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input and for languages with no 2-letter code.
func ToISO2(code string) string {
	base, ok := lookup(code)
	if !ok {
		return ""
	}
	if s := base.String(); len(s) == 2 {
		return s
	}
	return ""
}

// ToISO3 converts any recognized language code or word to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	base, ok := lookup(code)
	if !ok {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	base, ok := lookup(trimmed)
	if !ok {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// Matches reports whether two language codes or words name the same language.
func Matches(a, b string) bool {
	left, ok := lookup(a)
	if !ok {
		return false
	}
	right, ok := lookup(b)
	if !ok {
		return false
	}
	return left == right
}
