// Package api serves the gifmaker operations over HTTP as JSON and publishes
// rendered clips from the static directory.
//
// # Routes
//
// Listing routes (libraries, items, movies, episodes, subtitles, duration)
// are read-only and cached in memory for api.cache_ttl_seconds. Append
// ?opn to bypass the cache for one request. PUT /api/config swaps the media
// server for every later request and drops the listing cache.
//
// POST /api/clips renders a GIF and returns its site-relative web path; the
// file itself is served from static_dir by the catch-all file server.
//
// # Errors
//
// Failures are JSON objects {"error": ..., "hint": ...} with the status from
// services.HTTPStatus.
//
// # Authentication
//
// When paths.api_token is set, every /api route requires
// "Authorization: Bearer <token>". Static files stay public so clip links can
// be shared.
package api
