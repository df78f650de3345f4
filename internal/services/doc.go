// Package services defines shared utilities consumed by the clip pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, stage names, and correlation
//     identifiers for logging.
//   - The failure taxonomy: sentinel markers (configuration, authorization,
//     transport, parse, not found, render, timeout) plus TransportError and
//     RenderError, which carry status codes and captured stderr.
//   - HTTPStatus and Hint, which translate a classified failure into what API
//     callers and operators see.
//
// Benign absence (no subtitles, empty library) is never an error; only
// access, protocol, and render faults travel through these types.
package services
