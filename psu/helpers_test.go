package psu

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/scale"
	"github.com/arloliu/go-ps2000/sim"
	"github.com/arloliu/go-ps2000/transport"
	"github.com/stretchr/testify/require"
)

var testProfile = scale.Profile{
	Model:          "PS 2042-06B",
	NominalVoltage: 42,
	NominalCurrent: 6,
	NominalPower:   100,
}

// countingLink counts the telegrams written to a simulated device.
type countingLink struct {
	*link.ConnLink

	writes atomic.Int32
}

func (l *countingLink) Write(p []byte) (int, error) {
	l.writes.Add(1)
	return l.ConnLink.Write(p)
}

// silentLink accepts every write and never receives a byte.
type silentLink struct {
	writes atomic.Int32
}

func (l *silentLink) Write(p []byte) (int, error) {
	l.writes.Add(1)
	return len(p), nil
}

func (l *silentLink) ReadAvailable(_ []byte, deadline time.Time) (int, error) {
	time.Sleep(time.Until(deadline))
	return 0, link.ErrTimeout
}

func fastTransport() Option {
	return WithTransport(
		transport.WithResponseTimeout(50*time.Millisecond),
		transport.WithCharTimeout(20*time.Millisecond),
		transport.WithMinInterval(0),
	)
}

// connectSim starts d and returns a counting link to it.
func connectSim(t *testing.T, d *sim.Device) *countingLink {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	l := &countingLink{ConnLink: sim.Connect(ctx, d)}
	t.Cleanup(func() {
		cancel()
		_ = l.ConnLink.Close()
	})

	return l
}

// openSim opens a session on a simulated device.
func openSim(t *testing.T, d *sim.Device, opts ...Option) (*Session, *countingLink) {
	t.Helper()

	l := connectSim(t, d)
	s, err := Open(context.Background(), l, 0, append([]Option{fastTransport()}, opts...)...)
	require.NoError(t, err)

	return s, l
}

// openRemote opens a session and enables remote control.
func openRemote(t *testing.T, d *sim.Device, opts ...Option) (*Session, *countingLink) {
	t.Helper()

	s, l := openSim(t, d, opts...)
	require.NoError(t, s.SetRemoteControl(context.Background(), true))

	return s, l
}
