// Package config loads, normalizes, and validates plexgif configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLEX_URL and PLEX_TOKEN. The Config type centralizes every knob the CLI and
// server need, so the static clip tree, scratch workspaces, and media server
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
