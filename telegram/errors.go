package telegram

import (
	"errors"
	"fmt"
)

var (
	// ErrBadLength indicates a buffer whose size does not match its start
	// delimiter or the schema of its object.
	ErrBadLength = errors.New("telegram: bad length")

	// ErrBadChecksum indicates a telegram whose trailing checksum does not
	// match the sum of the preceding bytes.
	ErrBadChecksum = errors.New("telegram: checksum mismatch")

	// ErrUnexpectedDirection indicates a host-to-device telegram where a
	// device answer was expected.
	ErrUnexpectedDirection = errors.New("telegram: unexpected direction")

	// ErrPayloadTooLarge indicates a payload longer than MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("telegram: payload too large")

	// ErrNotWritable indicates a send telegram for a read-only object.
	ErrNotWritable = errors.New("telegram: object is not writable")

	// ErrBadValue indicates a payload that cannot be interpreted as the
	// value its object defines.
	ErrBadValue = errors.New("telegram: bad payload value")
)

// ErrorCode is the status carried by an error telegram (object 0xFF).
// ErrCodeNone acknowledges a send telegram.
type ErrorCode byte

const (
	ErrCodeNone            ErrorCode = 0x00
	ErrCodeChecksum        ErrorCode = 0x03
	ErrCodeStartDelimiter  ErrorCode = 0x04
	ErrCodeOutputAddress   ErrorCode = 0x05
	ErrCodeObjectUndefined ErrorCode = 0x07
	ErrCodeObjectLength    ErrorCode = 0x08
	ErrCodeAccessDenied    ErrorCode = 0x09
	ErrCodeDeviceLocked    ErrorCode = 0x0F
	ErrCodeUpperLimit      ErrorCode = 0x30
	ErrCodeLowerLimit      ErrorCode = 0x31
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNone:
		return "acknowledged"
	case ErrCodeChecksum:
		return "checksum incorrect"
	case ErrCodeStartDelimiter:
		return "start delimiter incorrect"
	case ErrCodeOutputAddress:
		return "wrong address for output"
	case ErrCodeObjectUndefined:
		return "object not defined"
	case ErrCodeObjectLength:
		return "object length incorrect"
	case ErrCodeAccessDenied:
		return "access denied"
	case ErrCodeDeviceLocked:
		return "device is locked"
	case ErrCodeUpperLimit:
		return "upper limit exceeded"
	case ErrCodeLowerLimit:
		return "lower limit exceeded"
	default:
		return fmt.Sprintf("unknown error code 0x%02X", byte(c))
	}
}
