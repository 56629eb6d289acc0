package link

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestSerialConfig_Mode(t *testing.T) {
	mode, err := DefaultSerialConfig().Mode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.OddParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)

	mode, err = SerialConfig{BaudRate: 9600, Parity: "even", StopBits: 2}.Mode()
	require.NoError(t, err)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, DefaultDataBits, mode.DataBits)
}

func TestSerialConfig_ModeErrors(t *testing.T) {
	_, err := SerialConfig{BaudRate: 9600, Parity: "weird"}.Mode()
	assert.Error(t, err)

	_, err = SerialConfig{BaudRate: 9600, StopBits: 3}.Mode()
	assert.Error(t, err)

	_, err = SerialConfig{BaudRate: 0}.Mode()
	assert.Error(t, err)
}

// fakePort implements the subset of serial.Port used by SerialLink.
type fakePort struct {
	serial.Port

	rx      []byte
	tx      []byte
	timeout time.Duration
	closed  bool

	maxWrite int  // bytes accepted per Write, 0 for all
	stalled  bool // Write accepts nothing and reports no error
}

func (p *fakePort) Read(b []byte) (int, error) {
	n := copy(b, p.rx)
	p.rx = p.rx[n:]

	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.stalled {
		return 0, nil
	}
	n := len(b)
	if p.maxWrite > 0 && n > p.maxWrite {
		n = p.maxWrite
	}
	p.tx = append(p.tx, b[:n]...)

	return n, nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialLink(t *testing.T) {
	port := &fakePort{rx: []byte{0x80, 0x00, 0xFF, 0x00, 0x01, 0x7F}}
	l := FromPort(port)

	_, err := l.Write([]byte{0x70, 0x00, 0x00, 0x00, 0x70})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x70, 0x00, 0x00, 0x00, 0x70}, port.tx)

	buf := make([]byte, 16)
	n, err := l.ReadAvailable(buf, time.Now().Add(100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Positive(t, port.timeout)

	// Nothing left: the driver returns 0 bytes after its timeout.
	_, err = l.ReadAvailable(buf, time.Now().Add(10*time.Millisecond))
	assert.ErrorIs(t, err, ErrTimeout)

	// Deadline already passed.
	_, err = l.ReadAvailable(buf, time.Now().Add(-time.Millisecond))
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, l.Close())
	assert.True(t, port.closed)
}

func TestSerialLink_Write(t *testing.T) {
	req := []byte{0xF1, 0x00, 0x32, 0x1C, 0x92, 0x01, 0xD1}

	t.Run("partial writes", func(t *testing.T) {
		port := &fakePort{maxWrite: 3}
		n, err := FromPort(port).Write(req)
		require.NoError(t, err)
		assert.Equal(t, len(req), n)
		assert.Equal(t, req, port.tx)
	})

	t.Run("no progress", func(t *testing.T) {
		port := &fakePort{stalled: true}
		n, err := FromPort(port).Write(req)
		assert.ErrorIs(t, err, io.ErrShortWrite)
		assert.Zero(t, n)
	})
}
