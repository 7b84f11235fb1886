// Package poller drives the collector sync cycle.
//
// A cycle walks the state machine
//
//	Idle → Resolving → TryingCandidate(i) → Confirmed → FetchingStats → Settled
//
// asking the candidate source for a fresh order, fetching records from each
// candidate in turn until one answers, then fetching stats from that
// endpoint only. Every step is written to the state.Store as one atomic
// update. A weighted semaphore of size one guards the cycle: a cycle that
// finds it held is skipped, not queued.
//
// Run schedules cycles on a fixed ticker and Trigger requests one out of
// band. RunCycle executes a single cycle synchronously and is what tests
// and the once command use.
package poller
