// Package daemon runs the long-lived "plexgif serve" process.
//
// It wires the gifmaker service into the HTTP API, holds a flock-based lock
// so two servers never share one scratch and static tree, and schedules the
// maintenance job that removes stale scratch workspaces and expired log files.
//
// Keep request handling in internal/api and clip logic in internal/gifmaker;
// the daemon only owns startup, shutdown, and scheduling.
package daemon
