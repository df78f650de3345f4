// Package logging assembles structured slog loggers and formatting helpers used
// across plexgif.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with item ids, stages, and request ids. Media server tokens pass
// through RedactURL/RedactText before they reach any handler.
package logging
