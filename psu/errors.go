package psu

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-ps2000/telegram"
	"github.com/arloliu/go-ps2000/transport"
)

var (
	// ErrDeviceProfile is returned by Open when the device identity or
	// ratings cannot be established.
	ErrDeviceProfile = errors.New("psu: device profile unavailable")
	// ErrNotRemoteControlled is returned, without any I/O, by operations that
	// need remote control before SetRemoteControl(true) succeeded.
	ErrNotRemoteControlled = errors.New("psu: remote control not enabled")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("psu: session closed")
	// ErrDeviceRejected is matched by every *DeviceError.
	ErrDeviceRejected = errors.New("psu: device rejected request")
	// ErrUnexpectedAnswer is returned when a well-formed answer does not fit
	// the request, e.g. data where an acknowledgement was expected.
	ErrUnexpectedAnswer = errors.New("psu: unexpected answer")

	// ErrDesynchronized is returned once the link lost frame alignment. The
	// session stays unusable until it is reopened.
	ErrDesynchronized = transport.ErrDesynchronized
)

// DeviceError is a non-zero error code reported by the device.
type DeviceError struct {
	Object telegram.ObjectID
	Code   telegram.ErrorCode
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("psu: device rejected %s: %s (0x%02X)", e.Object, e.Code, byte(e.Code))
}

// Is reports whether target is ErrDeviceRejected.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceRejected
}
