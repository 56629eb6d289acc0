package link

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Default UART settings of the PS 2000 B USB interface.
const (
	DefaultBaudRate = 115200
	DefaultDataBits = 8
	DefaultParity   = "odd"
	DefaultStopBits = 1
)

// SerialConfig configures a serial port.
type SerialConfig struct {
	BaudRate int
	DataBits int
	Parity   string // "none", "odd", "even", "mark" or "space"
	StopBits int    // 1 or 2
}

// DefaultSerialConfig returns 115200 baud, 8 data bits, odd parity, 1 stop bit.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate: DefaultBaudRate,
		DataBits: DefaultDataBits,
		Parity:   DefaultParity,
		StopBits: DefaultStopBits,
	}
}

// Mode converts the configuration to a serial.Mode.
func (c SerialConfig) Mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch strings.ToLower(c.Parity) {
	case "", "none", "n":
		mode.Parity = serial.NoParity
	case "odd", "o":
		mode.Parity = serial.OddParity
	case "even", "e":
		mode.Parity = serial.EvenParity
	case "mark", "m":
		mode.Parity = serial.MarkParity
	case "space", "s":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("link: unknown parity %q", c.Parity)
	}

	switch c.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("link: unsupported stop bits %d", c.StopBits)
	}

	if mode.BaudRate <= 0 {
		return nil, fmt.Errorf("link: invalid baud rate %d", c.BaudRate)
	}
	if mode.DataBits == 0 {
		mode.DataBits = DefaultDataBits
	}

	return mode, nil
}

// SerialLink adapts a serial port to Link.
type SerialLink struct {
	port serial.Port
}

var _ Closer = (*SerialLink)(nil)

// OpenSerial opens the serial port at path.
func OpenSerial(path string, cfg SerialConfig) (*SerialLink, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", path, err)
	}

	return &SerialLink{port: port}, nil
}

// FromPort wraps an already opened serial port.
func FromPort(port serial.Port) *SerialLink {
	return &SerialLink{port: port}
}

// Write writes all bytes in p to the port.
func (l *SerialLink) Write(p []byte) (int, error) {
	return writeAll(l.port, p)
}

// ReadAvailable implements Link with the port's read timeout. The serial
// driver reports a timeout as a zero-byte read.
func (l *SerialLink) ReadAvailable(p []byte, deadline time.Time) (int, error) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0, ErrTimeout
	}

	if err := l.port.SetReadTimeout(remaining); err != nil {
		return 0, err
	}

	n, err := l.port.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrTimeout
	}

	return n, nil
}

// Close closes the port.
func (l *SerialLink) Close() error {
	return l.port.Close()
}
