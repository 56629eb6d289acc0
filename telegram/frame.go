package telegram

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-ps2000/internal/util"
)

const (
	headerSize   = 3 // SD, DN, OBJ
	checksumSize = 2

	// MinFrameSize is the size of a query telegram, which has no payload.
	MinFrameSize = headerSize + checksumSize

	// MaxPayloadSize is the largest payload a telegram can carry.
	MaxPayloadSize = 16

	// MaxFrameSize is the size of a telegram with a MaxPayloadSize payload.
	MaxFrameSize = MinFrameSize + MaxPayloadSize
)

// Start delimiter bit fields.
const (
	typeMask     = 0xC0
	castBit      = 0x20
	directionBit = 0x10
	lengthMask   = 0x0F
)

// Type is the transmission type encoded in bits 7-6 of the start delimiter.
type Type byte

const (
	TypeReserved Type = 0x00
	TypeQuery    Type = 0x40
	TypeAnswer   Type = 0x80
	TypeSend     Type = 0xC0
)

func (t Type) String() string {
	switch t {
	case TypeQuery:
		return "query"
	case TypeAnswer:
		return "answer"
	case TypeSend:
		return "send"
	default:
		return "reserved"
	}
}

// Direction is encoded in bit 4 of the start delimiter.
type Direction int

const (
	// FromDevice marks a telegram sent by the power supply.
	FromDevice Direction = iota
	// ToDevice marks a telegram sent by the host.
	ToDevice
)

func (d Direction) String() string {
	if d == ToDevice {
		return "host->device"
	}

	return "device->host"
}

// Frame is a validated telegram.
type Frame struct {
	Control byte     // start delimiter
	Node    byte     // device node
	Object  ObjectID // addressed object
	Payload []byte   // 0-16 bytes
}

// ControlByte builds a start delimiter. Host telegrams carry the cast bit.
// payloadLen must be in [0, MaxPayloadSize]; 0 is only meaningful for queries.
func ControlByte(t Type, dir Direction, payloadLen int) byte {
	sd := byte(t) & typeMask
	if dir == ToDevice {
		sd |= castBit | directionBit
	}
	if payloadLen > 0 {
		sd |= byte(payloadLen-1) & lengthMask //nolint:gosec // masked to 4 bits
	}

	return sd
}

// IsStartDelimiter reports whether b can open a telegram, i.e. its
// transmission type bits are not the reserved 00 pattern.
func IsStartDelimiter(b byte) bool {
	return Type(b&typeMask) != TypeReserved
}

// FrameLength returns the total wire size of the telegram that starts
// with the start delimiter sd.
func FrameLength(sd byte) int {
	if isQueryRequest(sd) {
		return MinFrameSize
	}

	return MinFrameSize + int(sd&lengthMask) + 1
}

func isQueryRequest(sd byte) bool {
	return Type(sd&typeMask) == TypeQuery && sd&directionBit != 0
}

// Type returns the transmission type.
func (f *Frame) Type() Type {
	return Type(f.Control & typeMask)
}

// Direction returns the direction of the telegram.
func (f *Frame) Direction() Direction {
	if f.Control&directionBit != 0 {
		return ToDevice
	}

	return FromDevice
}

// Cast reports whether the cast bit is set. Host telegrams always carry it.
func (f *Frame) Cast() bool {
	return f.Control&castBit != 0
}

// IsRequest reports whether the telegram was sent by the host.
func (f *Frame) IsRequest() bool {
	return f.Direction() == ToDevice
}

// IsErrorTelegram reports whether the telegram is an error (or acknowledge)
// telegram.
func (f *Frame) IsErrorTelegram() bool {
	return f.Object == ObjError && len(f.Payload) == 1
}

// ErrorCode returns the status of an error telegram, or ErrCodeNone for any
// other telegram.
func (f *Frame) ErrorCode() ErrorCode {
	if !f.IsErrorTelegram() {
		return ErrCodeNone
	}

	return ErrorCode(f.Payload[0])
}

// Checksum computes the 16-bit checksum over SD, DN, OBJ and the payload.
func (f *Frame) Checksum() uint16 {
	sum := uint32(f.Control) + uint32(f.Node) + uint32(f.Object)
	for _, v := range f.Payload {
		sum += uint32(v)
	}

	return uint16(sum & 0xFFFF) //nolint:gosec // intentional truncation
}

// Pack serializes the frame to its wire format. Control is written as is;
// use Encode to derive it from the payload.
func (f *Frame) Pack() []byte {
	wireLen := MinFrameSize + len(f.Payload)
	buf := make([]byte, wireLen)

	buf[0] = f.Control
	buf[1] = f.Node
	buf[2] = byte(f.Object)
	copy(buf[headerSize:], f.Payload)

	binary.BigEndian.PutUint16(buf[wireLen-checksumSize:], f.Checksum())

	return buf
}

// Checksum computes the telegram checksum over b, the bytes from the start
// delimiter through the payload.
func Checksum(b []byte) uint16 {
	var sum uint32
	for _, v := range b {
		sum += uint32(v)
	}

	return uint16(sum & 0xFFFF) //nolint:gosec // intentional truncation
}

// Encode builds a host-to-device telegram of type t (TypeQuery or TypeSend).
//
// Payload lengths of known objects are checked against the catalog.
func Encode(t Type, node byte, obj ObjectID, payload []byte) ([]byte, error) {
	return encode(t, ToDevice, node, obj, payload)
}

// EncodeQuery builds a query telegram for obj.
func EncodeQuery(node byte, obj ObjectID) []byte {
	buf, _ := encode(TypeQuery, ToDevice, node, obj, nil) // a payload-less query cannot fail

	return buf
}

// EncodeSend builds a send telegram writing payload to obj.
func EncodeSend(node byte, obj ObjectID, payload []byte) ([]byte, error) {
	return encode(TypeSend, ToDevice, node, obj, payload)
}

// EncodeAnswer builds a device-to-host answer telegram. It is the device
// side of the codec, used by simulators.
func EncodeAnswer(node byte, obj ObjectID, payload []byte) ([]byte, error) {
	return encode(TypeAnswer, FromDevice, node, obj, payload)
}

// EncodeError builds a device-to-host error telegram carrying code.
func EncodeError(node byte, code ErrorCode) []byte {
	buf, _ := encode(TypeAnswer, FromDevice, node, ObjError, []byte{byte(code)}) // fixed 1-byte payload

	return buf
}

func encode(t Type, dir Direction, node byte, obj ObjectID, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	if len(payload) == 0 && (t != TypeQuery || dir != ToDevice) {
		return nil, fmt.Errorf("%w: %s telegram for %s needs a payload", ErrBadLength, t, obj)
	}
	if err := checkSchema(t, dir, obj, len(payload)); err != nil {
		return nil, err
	}

	f := &Frame{
		Control: ControlByte(t, dir, len(payload)),
		Node:    node,
		Object:  obj,
		Payload: payload,
	}

	return f.Pack(), nil
}

// Decode validates buf as one complete telegram.
//
// Decode checks, in order:
//   - buf is at least MinFrameSize bytes and exactly FrameLength(buf[0]).
//   - the checksum matches.
//   - the payload length matches the object's schema.
//
// A corrupted SD, DN or OBJ byte in a correctly sized telegram is therefore
// reported as ErrBadChecksum.
//
// The returned frame does not alias buf.
func Decode(buf []byte) (*Frame, error) {
	if len(buf) < MinFrameSize {
		return nil, fmt.Errorf("%w: got %d bytes, minimum %d", ErrBadLength, len(buf), MinFrameSize)
	}

	want := FrameLength(buf[0])
	if len(buf) != want {
		return nil, fmt.Errorf("%w: got %d bytes, start delimiter 0x%02X declares %d", ErrBadLength, len(buf), buf[0], want)
	}

	wire := binary.BigEndian.Uint16(buf[want-checksumSize:])
	calc := Checksum(buf[:want-checksumSize])
	if wire != calc {
		return nil, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrBadChecksum, wire, calc)
	}

	f := &Frame{
		Control: buf[0],
		Node:    buf[1],
		Object:  ObjectID(buf[2]),
	}
	if n := want - MinFrameSize; n > 0 {
		f.Payload = util.CloneSlice(buf[headerSize:headerSize+n], 0)
	}

	if err := checkSchema(f.Type(), f.Direction(), f.Object, len(f.Payload)); err != nil {
		return nil, err
	}

	return f, nil
}

// DecodeResponse decodes buf like Decode and additionally rejects telegrams
// sent in the host-to-device direction.
func DecodeResponse(buf []byte) (*Frame, error) {
	f, err := Decode(buf)
	if err != nil {
		return nil, err
	}

	if f.IsRequest() {
		return nil, fmt.Errorf("%w: got %s %s telegram for %s", ErrUnexpectedDirection, f.Direction(), f.Type(), f.Object)
	}

	return f, nil
}
