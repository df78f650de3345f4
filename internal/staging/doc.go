// Package staging manages scratch directories for subtitle artifacts.
//
// By default every clip request gets its own workspace under the scratch root
// so concurrent renders never see each other's captions. The shared-slot mode
// stages straight into the scratch root and hands the slot to one request at
// a time. Stale workspaces left by crashed requests are removed by CleanStale.
package staging
