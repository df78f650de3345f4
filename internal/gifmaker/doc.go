// Package gifmaker ties the media server client, subtitle resolution, and the
// clip renderer into the operations the CLI and HTTP API expose.
//
// Service is safe for concurrent use. Each CreateClip call stages subtitles
// in its own scratch workspace unless staging.shared_slot is enabled, in
// which case calls serialize on the single shared slot.
package gifmaker
