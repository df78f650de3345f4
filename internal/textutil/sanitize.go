package textutil

import (
	"strings"
	"unicode"
)

// SanitizeToken lowercases value and keeps ASCII letters, digits, hyphens,
// and underscores; every other rune becomes an underscore. Leading and
// trailing separators are trimmed. Empty results become "unknown".
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
