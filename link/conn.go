package link

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// ConnLink adapts a net.Conn (TCP serial servers, net.Pipe in tests) to Link.
type ConnLink struct {
	conn net.Conn
}

var _ Closer = (*ConnLink)(nil)

// FromConn wraps conn.
func FromConn(conn net.Conn) *ConnLink {
	return &ConnLink{conn: conn}
}

// Write writes all bytes in p to the connection.
func (l *ConnLink) Write(p []byte) (int, error) {
	return writeAll(l.conn, p)
}

// ReadAvailable implements Link using the connection's read deadline.
func (l *ConnLink) ReadAvailable(p []byte, deadline time.Time) (int, error) {
	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}

	n, err := l.conn.Read(p)
	if n > 0 {
		return n, nil
	}
	if err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%w: %w", ErrTimeout, err)
		}

		return 0, err
	}

	return 0, ErrTimeout
}

// Close closes the underlying connection.
func (l *ConnLink) Close() error {
	return l.conn.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
