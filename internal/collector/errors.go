package collector

import (
	"errors"
	"fmt"
)

// ErrConnectivity is wrapped by every ConnectivityError.
var ErrConnectivity = errors.New("collector unreachable")

// FailureKind classifies why an exchange with a candidate failed.
type FailureKind int

const (
	// FailureTransport covers timeouts, refused connections and DNS errors.
	FailureTransport FailureKind = iota
	// FailureStatus means the collector answered with a non-2xx status.
	FailureStatus
	// FailureDecode means the body did not match the expected shape.
	FailureDecode
)

// String returns a short label for the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureStatus:
		return "status"
	case FailureDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ConnectivityError reports a failed exchange with one candidate endpoint.
type ConnectivityError struct {
	Endpoint   string
	Resource   string
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *ConnectivityError) Error() string {
	switch e.Kind {
	case FailureStatus:
		return fmt.Sprintf("%s%s returned status %d", e.Endpoint, e.Resource, e.StatusCode)
	case FailureDecode:
		return fmt.Sprintf("%s%s: decode response: %v", e.Endpoint, e.Resource, e.Err)
	default:
		return fmt.Sprintf("%s%s: %v", e.Endpoint, e.Resource, e.Err)
	}
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ConnectivityError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConnectivity}
	}
	return []error{ErrConnectivity, e.Err}
}
