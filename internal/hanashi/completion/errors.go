package completion

import (
	"errors"
	"fmt"
)

// Kind classifies a failed completion call.
type Kind int

const (
	// KindTimeout means the call did not finish within its time bound.
	KindTimeout Kind = iota + 1
	// KindNetwork covers connection-level failures (DNS, refused, reset).
	KindNetwork
	// KindServer means the API answered with a non-2xx status.
	KindServer
	// KindMalformed means a 2xx answer whose body has no usable choice.
	KindMalformed
)

// String returns the metrics/log label of k.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network_error"
	case KindServer:
		return "server_error"
	case KindMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is the only error type Complete returns.
type Error struct {
	Kind Kind
	// Status is the HTTP status code for KindServer, zero otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("completion: %s (HTTP %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("completion: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err. The boolean is false when err is not a
// completion error.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// StatusOf returns the HTTP status carried by a KindServer error, or 0.
func StatusOf(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}
