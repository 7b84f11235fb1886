// Package server is the optional HTTP status surface of honeywatch.
//
// It serves the same SyncState the dashboard renders, for scripts and
// browsers, plus the prometheus metrics of the poller. It never writes to
// the store; POST /api/refresh only asks the poller for a cycle.
package server
