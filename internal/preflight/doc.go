// Package preflight provides readiness checks for the media server and the
// directories and binaries plexgif depends on.
//
// These checks run in two contexts:
//   - "plexgif serve" calls RunAll before binding the API and logs every
//     failure; a failed check does not stop the server.
//   - "plexgif doctor" prints RunAll and CheckSystemDeps as a table.
package preflight
