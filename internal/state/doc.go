// Package state provides thread-safe state management for honeywatch.
//
// # Overview
//
// The Store holds the single most recent view of the collector: the
// attempt records, aggregate stats, the endpoint that served them and the
// poll cycle's bookkeeping (loading, in-flight, phase, error message). The
// poller is the only writer. The TUI, the status server and the once
// command are readers.
//
//	Producer (poller):              Consumers:
//	┌──────────────────┐           ┌──────────────────────┐
//	│ RunCycle()       │           │ ui: Snapshot() on tick│
//	│   store.Update() │──────────→│ server: Subscribe()   │
//	│   (one step)     │  (mutex)  │ once: Snapshot()      │
//	└──────────────────┘           └──────────────────────┘
//
// # Update Semantics
//
// Update takes a mutation function and applies it under the write lock, so
// each step of a cycle lands as one atomic change and readers never see
// records without the matching LastUpdate or endpoint. After the mutation
// every subscriber gets a cloned snapshot; a subscriber whose buffer is
// full misses that state instead of stalling the poller.
//
// # Teardown
//
// Close marks the store torn down and closes subscriber channels. A cycle
// still running when the application exits finishes its exchanges, but its
// writes are ignored (Update returns false).
//
// # Defensive Copying
//
// Snapshot and subscriber deliveries deep-copy the record slice, each
// record's payload and the candidate list.
package state
