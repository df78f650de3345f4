// Package main hosts the plexgif CLI and the `serve` entrypoint.
//
// Every subcommand resolves configuration lazily through commandContext,
// which loads an optional .env file, applies --server/--token overrides, and
// builds a gifmaker.Service backed by the clip history database. Browsing
// commands print go-pretty tables or, with --json, the same payloads the HTTP
// API returns. `serve` runs the daemon: HTTP API, static clip tree, and the
// scheduled scratch cleanup.
package main
