// Package language normalizes the language codes and labels reported by the
// media server, ffprobe tags, and caption detection.
//
// Conversions go through golang.org/x/text/language so ISO 639-1, 639-2/T,
// 639-2/B and English word forms ("English") all resolve to one base.
package language
