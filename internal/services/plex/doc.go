// Package plex talks to a Plex Media Server's XML API and to plex.tv's PIN
// device-link endpoints.
//
// A Client wraps an immutable ServerConfig (base URL plus token) and exposes
// only the calls the clip pipeline needs: library, show, and episode listings,
// per-item metadata with subtitle streams, sidecar downloads, and the
// subtitle-provider request. Switching servers builds a new Client through
// WithConfiguration rather than mutating a shared one.
//
// Absent data (no videos, no duration, no subtitle candidates) comes back as an
// empty value. Access failures come back as *services.TransportError so callers
// can tell a 401 from a network fault with errors.Is.
package plex
