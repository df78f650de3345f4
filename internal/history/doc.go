// Package history persists a record of every rendered clip in SQLite.
//
// The store lives at {state_dir}/history.db and is opened with WAL journaling
// so the API server and one-off CLI invocations can read it concurrently.
// Records are append-only; deleting a clip file does not remove its row.
package history
