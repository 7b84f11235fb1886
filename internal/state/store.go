package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/honeywatch/internal/collector"
)

// Phase is the position of the poll cycle state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseTryingCandidate
	PhaseConfirmed
	PhaseFetchingStats
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolving:
		return "resolving"
	case PhaseTryingCandidate:
		return "trying_candidate"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFetchingStats:
		return "fetching_stats"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name in JSON and YAML output.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name produced by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	for candidate := PhaseIdle; candidate <= PhaseSettled; candidate++ {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// SyncState is the latest known view of the collector.
type SyncState struct {
	Records        []collector.AttemptRecord `json:"records" yaml:"records"`
	Stats          collector.StatsSummary    `json:"stats" yaml:"stats"`
	ActiveEndpoint string                    `json:"active_endpoint,omitempty" yaml:"active_endpoint,omitempty"`
	LastUpdate     time.Time                 `json:"last_update" yaml:"last_update"`
	Loading        bool                      `json:"loading" yaml:"loading"`
	InFlight       bool                      `json:"in_flight" yaml:"in_flight"`
	ErrorMessage   string                    `json:"error,omitempty" yaml:"error,omitempty"`

	Phase               Phase    `json:"phase" yaml:"phase"`
	CandidateIndex      int      `json:"candidate_index" yaml:"candidate_index"`
	Candidates          []string `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	ConsecutiveFailures int      `json:"consecutive_failures" yaml:"consecutive_failures"`
	CycleID             string   `json:"cycle_id,omitempty" yaml:"cycle_id,omitempty"`
}

// HasData reports whether at least one records fetch has succeeded.
func (s SyncState) HasData() bool {
	return !s.LastUpdate.IsZero()
}

// IsOffline returns true when the collector has been unreachable for multiple cycles.
func (s SyncState) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Clone returns a deep copy of s.
func (s SyncState) Clone() SyncState {
	dup := s
	dup.Records = cloneRecords(s.Records)
	dup.Candidates = slices.Clone(s.Candidates)
	return dup
}

const subscriberBuffer = 8

// Store coordinates concurrent updates to the sync state.
type Store struct {
	mu     sync.RWMutex
	state  SyncState
	subs   map[chan SyncState]struct{}
	closed bool
}

// NewStore returns a store in its initial loading state.
func NewStore() *Store {
	return &Store{
		state: SyncState{Loading: true, Phase: PhaseIdle},
		subs:  make(map[chan SyncState]struct{}),
	}
}

// Update applies fn to the state under the write lock and fans the result
// out to subscribers. It returns false, without calling fn, once the store
// is closed.
func (s *Store) Update(fn func(*SyncState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	fn(&s.state)
	s.publishLocked()
	return true
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe returns a channel that receives a snapshot after every update.
// Slow subscribers miss intermediate states rather than blocking writers.
// The channel is closed by Unsubscribe or Close.
func (s *Store) Subscribe() <-chan SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan SyncState, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch
	}
	if s.subs == nil {
		s.subs = make(map[chan SyncState]struct{})
	}
	s.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Store) Unsubscribe(ch <-chan SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		if sub == ch {
			delete(s.subs, sub)
			close(sub)
			return
		}
	}
}

// Close tears the store down. Later updates are ignored. Safe to call twice.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		close(sub)
	}
	s.subs = nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	for sub := range s.subs {
		select {
		case sub <- s.state.Clone():
		default:
		}
	}
}

func cloneRecords(items []collector.AttemptRecord) []collector.AttemptRecord {
	if items == nil {
		return nil
	}
	dup := make([]collector.AttemptRecord, len(items))
	for i, rec := range items {
		dup[i] = rec
		if rec.Data != nil {
			data := *rec.Data
			dup[i].Data = &data
		}
	}
	return dup
}
