package poller

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleSkipped is returned by RunCycle when another cycle holds the guard.
	ErrCycleSkipped = errors.New("poll cycle skipped: previous cycle still running")
	// ErrExhausted matches any *ExhaustedError via errors.Is.
	ErrExhausted = errors.New("all candidate endpoints exhausted")
	// ErrCyclePanicked wraps a panic recovered inside a cycle.
	ErrCyclePanicked = errors.New("poll cycle panicked")
)

// ExhaustedError means no candidate answered the records request. It is the
// only failure that reaches the user.
type ExhaustedError struct {
	Candidates []string
	Errs       []error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("unable to reach the collector at any candidate endpoint (tried: %s)",
		strings.Join(e.Candidates, ", "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func (e *ExhaustedError) Unwrap() []error {
	return e.Errs
}

// StatsFetchError is a stats failure against the confirmed endpoint. Non-fatal.
type StatsFetchError struct {
	Endpoint string
	Err      error
}

func (e *StatsFetchError) Error() string {
	return fmt.Sprintf("fetch stats from %s: %v", e.Endpoint, e.Err)
}

func (e *StatsFetchError) Unwrap() error {
	return e.Err
}
