package transport

import (
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/telegram"
	"github.com/stretchr/testify/require"
)

// countingLink records every write so tests can assert how many telegrams
// reached the wire.
type countingLink struct {
	link.Link

	writes     atomic.Int32
	writeTimes []time.Time
}

func (l *countingLink) Write(p []byte) (int, error) {
	l.writes.Add(1)
	l.writeTimes = append(l.writeTimes, time.Now())

	return l.Link.Write(p)
}

// newTestSession creates a Session over the local end of a net.Pipe with
// short timeouts and no inter-telegram gap. It returns the remote end for
// device simulation.
func newTestSession(t *testing.T, opts ...Option) (*Session, *countingLink, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	cl := &countingLink{Link: link.FromConn(local)}

	defaults := []Option{
		WithResponseTimeout(30 * time.Millisecond),
		WithCharTimeout(15 * time.Millisecond),
		WithMinInterval(0),
	}

	s, err := New(cl, append(defaults, opts...)...)
	require.NoError(t, err)

	return s, cl, remote
}

// readRequest reads one host telegram from r.
func readRequest(r io.Reader) ([]byte, error) {
	sd := make([]byte, 1)
	if _, err := io.ReadFull(r, sd); err != nil {
		return nil, err
	}

	buf := make([]byte, telegram.FrameLength(sd[0]))
	buf[0] = sd[0]
	if _, err := io.ReadFull(r, buf[1:]); err != nil {
		return nil, err
	}

	return buf, nil
}

// serveDevice answers each request on remote with the chunks returned by
// handle. The n-th request (starting at 0) is passed along. Returning nil
// simulates a lost answer.
func serveDevice(remote net.Conn, handle func(n int, req []byte) [][]byte) {
	go func() {
		for n := 0; ; n++ {
			req, err := readRequest(remote)
			if err != nil {
				return
			}

			for _, chunk := range handle(n, req) {
				if _, err := remote.Write(chunk); err != nil {
					return
				}
			}
		}
	}()
}

func mustAnswer(t *testing.T, obj telegram.ObjectID, payload []byte) []byte {
	t.Helper()

	buf, err := telegram.EncodeAnswer(0, obj, payload)
	require.NoError(t, err)

	return buf
}

func corruptChecksum(buf []byte) []byte {
	out := append([]byte{}, buf...)
	out[len(out)-1] ^= 0x5A

	return out
}
