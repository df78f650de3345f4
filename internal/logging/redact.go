package logging

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`(?i)(X-Plex-Token=)[^&\s'"]+`)

// MaskToken hides all but the last four characters of a credential.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

// RedactURL masks the X-Plex-Token query parameter in a URL string.
func RedactURL(raw string) string {
	return RedactText(raw)
}

// RedactText masks every X-Plex-Token=value occurrence in free text such as
// ffmpeg argument lists and stderr.
func RedactText(text string) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		idx := strings.Index(match, "=")
		return match[:idx+1] + MaskToken(match[idx+1:])
	})
}

// RedactArgs returns a copy of args with credentials masked.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = RedactText(arg)
	}
	return out
}
