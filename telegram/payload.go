package telegram

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// StringValue decodes a NUL-terminated ASCII payload.
func StringValue(payload []byte) string {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}

	return string(payload)
}

// StringPayload encodes s as a NUL-terminated payload, truncated so the
// terminator fits into MaxPayloadSize.
func StringPayload(s string) []byte {
	if len(s) > MaxPayloadSize-1 {
		s = s[:MaxPayloadSize-1]
	}
	out := make([]byte, len(s)+1)
	copy(out, s)

	return out
}

// Float32Value decodes a big-endian IEEE 754 float32 payload.
func Float32Value(payload []byte) (float32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("%w: float payload is %d bytes, want 4", ErrBadValue, len(payload))
	}

	return math.Float32frombits(binary.BigEndian.Uint32(payload)), nil
}

// Float32Payload encodes v as a big-endian IEEE 754 float32.
func Float32Payload(v float32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, math.Float32bits(v))

	return out
}

// Uint16Value decodes a big-endian 16-bit payload.
func Uint16Value(payload []byte) (uint16, error) {
	if len(payload) != 2 {
		return 0, fmt.Errorf("%w: integer payload is %d bytes, want 2", ErrBadValue, len(payload))
	}

	return binary.BigEndian.Uint16(payload), nil
}

// Uint16Payload encodes v big-endian.
func Uint16Payload(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)

	return out
}
