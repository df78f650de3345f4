// Package clip cuts a time window out of a remote media stream and renders it
// as an animated GIF with ffmpeg.
//
// Output files are named from the item id and the window bounds and are never
// overwritten: a colliding name gains a numeric suffix, and the name is
// reserved on disk before ffmpeg starts so concurrent renders of the same
// window cannot race. Subtitles are burned in from a text artifact, overlaid
// from a bitmap stream, or omitted.
//
// ExtractSubtitle pulls an embedded subtitle stream into a scratch directory,
// choosing text or bitmap extraction from the codec when it is known and
// falling back to trying both when it is not.
package clip
