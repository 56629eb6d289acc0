package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates that no complete answer arrived in time.
	ErrTimeout = errors.New("transport: response timeout")

	// ErrUnresponsive indicates that every attempt of an exchange failed
	// with a transient error. See UnresponsiveError.
	ErrUnresponsive = errors.New("transport: device unresponsive")

	// ErrDesynchronized indicates that the answer does not structurally fit
	// the request. Retrying the same bytes cannot fix it; the caller has to
	// re-open the session.
	ErrDesynchronized = errors.New("transport: link desynchronized")

	// ErrUnexpectedObject indicates an answer for a different node or object
	// than the one queried.
	ErrUnexpectedObject = errors.New("transport: answer does not match request")

	// ErrDeviceChecksum indicates the device rejected the request because its
	// checksum did not match, i.e. the request was garbled on the way.
	ErrDeviceChecksum = errors.New("transport: device reported checksum error")

	// ErrLink indicates a failure of the underlying link other than a timeout.
	ErrLink = errors.New("transport: link failure")

	// ErrInvalidRequest indicates a request buffer that is not a valid
	// host-to-device telegram.
	ErrInvalidRequest = errors.New("transport: invalid request")
)

// UnresponsiveError is returned when the retry ceiling is exhausted.
// It matches ErrUnresponsive and unwraps to the last attempt's error.
type UnresponsiveError struct {
	Attempts int
	Last     error
}

func (e *UnresponsiveError) Error() string {
	return fmt.Sprintf("transport: device unresponsive after %d attempts: %v", e.Attempts, e.Last)
}

// Is reports whether target is ErrUnresponsive.
func (e *UnresponsiveError) Is(target error) bool {
	return target == ErrUnresponsive
}

func (e *UnresponsiveError) Unwrap() error {
	return e.Last
}
