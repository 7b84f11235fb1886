// Package app is the composition root of honeywatch.
//
// # Overview
//
// Build wires configuration into the long-lived pieces: the collector
// client, the sync state store, prometheus metrics and the poll
// coordinator. Run, Once and Probe use them in three ways:
//
//	┌──────────────┐
//	│   Run()      │ dashboard
//	└──────┬───────┘
//	       │
//	       ├─────> LoadConfig()     TOML file + HONEYWATCH_* env + flags
//	       ├─────> logging.New()    JSON log file (the TUI owns the terminal)
//	       ├─────> Build()          client, store, metrics, poller
//	       ├─────> server.Start()   optional status server (status_addr)
//	       └─────> errgroup
//	               ├─> poller.Run()  immediate cycle, then every poll_interval
//	               └─> ui.Run()      blocks until quit; quitting cancels the group
//
//	Once():  Build() → RunCycle() → Snapshot()
//	Probe(): GET /health on every candidate, in order
//
// # Shutdown
//
// When the group returns, Run closes the store. A cycle that was still
// waiting on the collector finishes against its request timeout and its
// writes are dropped by the closed store.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Config file unreadable or invalid, invalid overrides
//   - Log file cannot be created
//   - Status server address cannot be bound
//
// Everything that happens inside a poll cycle is recoverable. The only
// failure that reaches the user is the exhausted-candidates message in the
// store, which the dashboard renders.
package app
