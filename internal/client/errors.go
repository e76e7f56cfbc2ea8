package client

import (
	"fmt"
	"time"
)

// AuthError means no valid caller credential was available before any request
// was sent. It is a precondition failure, never a transport failure.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication required: %s", e.Reason)
}

// TransportError wraps a network-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError means the provider responded with a non-success HTTP status.
// Message is the provider-supplied text, preserved verbatim.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.Message)
}

// TimeoutError means the poll attempt ceiling was exhausted while the job was
// still processing. Distinct from a failed status returned by the provider.
type TimeoutError struct {
	TaskID   string
	Attempts int
	Interval time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s still processing after %d polls at %v intervals",
		e.TaskID, e.Attempts, e.Interval)
}
