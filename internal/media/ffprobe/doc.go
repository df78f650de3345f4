// Package ffprobe runs ffprobe and decodes its JSON stream listing.
//
// Inspect returns every stream and the container format; Subtitles narrows the
// probe to subtitle streams and numbers them the way ffmpeg's 0:s:N selector
// does. Sources may be local paths or remote URLs; any access token in a URL
// is masked before it reaches an error message.
package ffprobe
