// Package link defines the byte-oriented link a power supply session talks
// over, and adapters for network connections and serial ports.
//
// The protocol engine only needs two primitives: write a buffer, and read
// whatever bytes are available before a deadline. Baud rate, parity and the
// rest of the UART configuration belong to the adapter.
package link

import (
	"errors"
	"io"
	"time"
)

// ErrTimeout is returned by ReadAvailable when the deadline passes with no
// byte received.
var ErrTimeout = errors.New("link: read timeout")

// Link is a byte-oriented, half-duplex connection to one device.
type Link interface {
	// Write sends p. Implementations either write all of p or return an error.
	Write(p []byte) (int, error)

	// ReadAvailable reads at least one and at most len(p) bytes, waiting no
	// longer than deadline. It returns ErrTimeout (possibly wrapped) when no
	// byte arrives in time.
	ReadAvailable(p []byte, deadline time.Time) (int, error)
}

// Closer is implemented by links that own an OS resource.
type Closer interface {
	Link
	io.Closer
}

// writeAll writes p to w in as many calls as w needs. A call that makes no
// progress without an error is reported as io.ErrShortWrite.
func writeAll(w io.Writer, p []byte) (int, error) {
	for written := 0; written < len(p); {
		n, err := w.Write(p[written:])
		written += n

		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}

	return len(p), nil
}
