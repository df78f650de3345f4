// Package subtitles parses SRT caption payloads into cues and prepares them
// for display.
//
// Besides the parser it normalises downloaded subtitle bytes to UTF-8,
// guesses the caption language from the cue text, converts SRT to WebVTT for
// browser preview, and classifies subtitle codecs as text or image so the clip
// pipeline can pick an extraction strategy without probing the stream.
package subtitles
