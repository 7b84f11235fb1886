package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/five82/honeywatch/internal/collector"
	"github.com/five82/honeywatch/internal/endpoint"
	"github.com/five82/honeywatch/internal/state"
)

const (
	// DefaultInterval is the fixed poll period.
	DefaultInterval   = 10 * time.Second
	defaultBackoffMax = 5 * time.Minute
)

// Cycle outcomes reported to the Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeExhausted = "exhausted"
	OutcomePanicked  = "panicked"
)

// CandidateSource yields the candidate endpoints in trial order. It is
// consulted at the start of every cycle.
type CandidateSource interface {
	Candidates() []string
}

// Recorder observes cycle activity. Implemented by metrics.Metrics.
type Recorder interface {
	ObserveCycle(outcome string, d time.Duration)
	CycleSkipped()
	CandidateFailed(candidate, kind string)
	StatsFailed()
	SetActiveEndpoint(endpoint string)
}

// Options configure a Coordinator.
type Options struct {
	Fetcher    collector.Fetcher
	Candidates CandidateSource
	Store      *state.Store
	Logger     *slog.Logger
	Recorder   Recorder

	// Interval is the fixed tick period. Zero uses DefaultInterval.
	Interval time.Duration
	// Sticky tries the last good endpoint before the resolver order.
	Sticky bool
	// Backoff skips scheduled ticks after consecutive exhausted cycles.
	Backoff bool
	// BackoffMax caps the backoff delay. Zero uses 5m.
	BackoffMax time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// CycleResult summarizes one executed cycle.
type CycleResult struct {
	CycleID  string
	Endpoint string
	Tried    []string
	Records  int
	StatsErr error
	Duration time.Duration
}

// Coordinator runs poll cycles against the collector and writes the outcome
// into the store. At most one cycle executes at a time.
type Coordinator struct {
	fetcher  collector.Fetcher
	source   CandidateSource
	store    *state.Store
	logger   *slog.Logger
	recorder Recorder
	interval time.Duration
	sticky   bool
	now      func() time.Time

	guard   *semaphore.Weighted
	trigger chan struct{}
	wg      sync.WaitGroup

	// reported is the endpoint last passed to the recorder. Guarded by guard.
	reported string

	boMu        sync.Mutex
	bo          *backoff.ExponentialBackOff
	nextAllowed time.Time
}

// New validates opts and returns a Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("poller: fetcher is required")
	}
	if opts.Candidates == nil {
		return nil, errors.New("poller: candidate source is required")
	}
	if opts.Store == nil {
		return nil, errors.New("poller: store is required")
	}

	c := &Coordinator{
		fetcher:  opts.Fetcher,
		source:   opts.Candidates,
		store:    opts.Store,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		interval: opts.Interval,
		sticky:   opts.Sticky,
		now:      opts.Now,
		guard:    semaphore.NewWeighted(1),
		trigger:  make(chan struct{}, 1),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.Backoff {
		maxDelay := opts.BackoffMax
		if maxDelay <= 0 {
			maxDelay = defaultBackoffMax
		}
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = c.interval
		bo.MaxInterval = maxDelay
		bo.Multiplier = 2
		bo.Reset()
		c.bo = bo
	}
	return c, nil
}

// Interval returns the tick period in use.
func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// RunCycle executes one poll cycle synchronously. It returns ErrCycleSkipped
// without side effects on the data when a cycle is already running.
func (c *Coordinator) RunCycle(ctx context.Context) (res CycleResult, err error) {
	if !c.guard.TryAcquire(1) {
		c.recorder.CycleSkipped()
		c.logger.Debug("poll cycle skipped, previous cycle still running")
		return CycleResult{}, ErrCycleSkipped
	}

	start := c.now()
	res.CycleID = uuid.NewString()
	log := c.logger.With("cycle_id", res.CycleID)

	c.store.Update(func(st *state.SyncState) {
		st.InFlight = true
		st.Phase = state.PhaseResolving
		st.CycleID = res.CycleID
		st.CandidateIndex = 0
	})

	outcome := OutcomeSuccess
	defer func() {
		if r := recover(); r != nil {
			panicID := uuid.NewString()
			log.Error("poll cycle panicked",
				"panic_id", panicID,
				"panic", r,
				"stack", string(debug.Stack()))
			outcome = OutcomePanicked
			err = fmt.Errorf("%w (panic id %s): %v", ErrCyclePanicked, panicID, r)
		}
		c.store.Update(func(st *state.SyncState) {
			st.InFlight = false
			st.Loading = false
		})
		res.Duration = c.now().Sub(start)
		c.recorder.ObserveCycle(outcome, res.Duration)
		c.guard.Release(1)
	}()

	candidates := c.source.Candidates()
	if c.sticky {
		candidates = endpoint.Prefer(candidates, c.store.Snapshot().ActiveEndpoint)
	}
	c.store.Update(func(st *state.SyncState) {
		st.Candidates = candidates
		if st.ActiveEndpoint == "" && len(candidates) > 0 {
			st.ActiveEndpoint = candidates[0]
		}
	})

	confirmed, records, tried, exhausted := c.tryCandidates(ctx, log, candidates)
	res.Tried = tried
	if exhausted != nil {
		outcome = OutcomeExhausted
		c.store.Update(func(st *state.SyncState) {
			st.ErrorMessage = exhausted.Error()
			st.ConsecutiveFailures++
			st.Phase = state.PhaseSettled
		})
		c.scheduleBackoff(log)
		log.Warn("all candidate endpoints failed", "tried", len(tried), "error", exhausted)
		return res, exhausted
	}
	res.Endpoint = confirmed
	res.Records = len(records)

	now := c.now()
	changed := false
	c.store.Update(func(st *state.SyncState) {
		if st.ActiveEndpoint != confirmed {
			st.ActiveEndpoint = confirmed
			changed = true
		}
		st.Records = records
		if now.After(st.LastUpdate) {
			st.LastUpdate = now
		} else {
			st.LastUpdate = st.LastUpdate.Add(time.Nanosecond)
		}
		st.ErrorMessage = ""
		st.ConsecutiveFailures = 0
		st.Phase = state.PhaseConfirmed
	})
	if changed {
		log.Info("active endpoint changed", "endpoint", confirmed)
	}
	if confirmed != c.reported {
		c.reported = confirmed
		c.recorder.SetActiveEndpoint(confirmed)
	}

	c.store.Update(func(st *state.SyncState) {
		st.Phase = state.PhaseFetchingStats
	})
	stats, statsErr := c.fetcher.FetchStats(ctx, confirmed)
	if statsErr != nil {
		res.StatsErr = &StatsFetchError{Endpoint: confirmed, Err: statsErr}
		c.recorder.StatsFailed()
		log.Warn("stats fetch failed, keeping previous stats", "endpoint", confirmed, "error", statsErr)
	}

	c.store.Update(func(st *state.SyncState) {
		if statsErr == nil {
			st.Stats = stats
		}
		st.Loading = false
		st.Phase = state.PhaseSettled
	})
	c.resetBackoff()

	log.Debug("poll cycle complete",
		"endpoint", confirmed,
		"records", len(records),
		"duration", c.now().Sub(start))
	return res, nil
}

// tryCandidates walks candidates in order until one serves the records
// request. The first success becomes the confirmed endpoint; the caller
// publishes it together with its records.
func (c *Coordinator) tryCandidates(ctx context.Context, log *slog.Logger, candidates []string) (string, []collector.AttemptRecord, []string, *ExhaustedError) {
	tried := make([]string, 0, len(candidates))
	var errs []error

	for i, candidate := range candidates {
		c.store.Update(func(st *state.SyncState) {
			st.Phase = state.PhaseTryingCandidate
			st.CandidateIndex = i
		})
		tried = append(tried, candidate)

		records, err := c.fetcher.FetchRecords(ctx, candidate)
		if err != nil {
			errs = append(errs, err)
			c.recorder.CandidateFailed(candidate, failureKind(err))
			log.Debug("candidate failed", "candidate", candidate, "index", i, "error", err)
			continue
		}

		return candidate, records, tried, nil
	}

	return "", nil, tried, &ExhaustedError{Candidates: tried, Errs: errs}
}

// Run polls immediately and then on every tick until ctx is cancelled. Each
// cycle runs on its own goroutine, so a tick that lands while a cycle is
// still executing is skipped rather than delayed. Cycles already running
// when ctx is cancelled complete against the request timeout.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("poller started", "interval", c.interval.String())
	c.spawn(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
			if wait, ok := c.backingOff(); ok {
				c.logger.Debug("poll tick skipped, backing off", "remaining", wait.String())
				continue
			}
			c.spawn(ctx)
		case <-c.trigger:
			c.logger.Debug("manual poll requested")
			c.spawn(ctx)
		}
	}
}

// Trigger requests an immediate cycle from Run. It never blocks; requests
// made while one is already pending are merged.
func (c *Coordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Wait blocks until every cycle started by Run has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) spawn(ctx context.Context) {
	cycleCtx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.RunCycle(cycleCtx)
	}()
}

func (c *Coordinator) scheduleBackoff(log *slog.Logger) {
	if c.bo == nil {
		return
	}
	c.boMu.Lock()
	defer c.boMu.Unlock()

	delay := c.bo.NextBackOff()
	if delay == backoff.Stop {
		delay = c.bo.MaxInterval
	}
	c.nextAllowed = c.now().Add(delay)
	log.Info("backing off scheduled polls", "delay", delay.String())
}

func (c *Coordinator) resetBackoff() {
	if c.bo == nil {
		return
	}
	c.boMu.Lock()
	defer c.boMu.Unlock()
	c.bo.Reset()
	c.nextAllowed = time.Time{}
}

// backingOff reports whether scheduled ticks are currently suppressed and
// for how much longer.
func (c *Coordinator) backingOff() (time.Duration, bool) {
	if c.bo == nil {
		return 0, false
	}
	c.boMu.Lock()
	defer c.boMu.Unlock()
	if c.nextAllowed.IsZero() {
		return 0, false
	}
	remaining := c.nextAllowed.Sub(c.now())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func failureKind(err error) string {
	var connErr *collector.ConnectivityError
	if errors.As(err, &connErr) {
		return connErr.Kind.String()
	}
	return "unknown"
}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(string, time.Duration) {}
func (nopRecorder) CycleSkipped()                      {}
func (nopRecorder) CandidateFailed(string, string)     {}
func (nopRecorder) StatsFailed()                       {}
func (nopRecorder) SetActiveEndpoint(string)           {}
