package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQuery_WireFormat(t *testing.T) {
	buf := EncodeQuery(0, ObjDeviceType)
	assert.Equal(t, []byte{0x70, 0x00, 0x00, 0x00, 0x70}, buf)

	buf = EncodeQuery(0, ObjActualValues)
	assert.Equal(t, []byte{0x70, 0x00, 0x47, 0x00, 0xB7}, buf)
}

func TestEncodeSend_WireFormat(t *testing.T) {
	// set value U = 7314 (0x1C92)
	buf, err := EncodeSend(0, ObjSetVoltage, []byte{0x1C, 0x92})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF1, 0x00, 0x32, 0x1C, 0x92, 0x01, 0xD1}, buf)

	// switch to remote control
	buf, err = EncodeSend(0, ObjControl, []byte{0x10, 0x10})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF1, 0x00, 0x36, 0x10, 0x10, 0x01, 0x47}, buf)
}

func TestEncode_Errors(t *testing.T) {
	_, err := EncodeSend(0, ObjSetVoltage, []byte{0x01})
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = EncodeSend(0, ObjNominalVoltage, []byte{0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrNotWritable)

	_, err = EncodeSend(0, ObjSetVoltage, nil)
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = Encode(TypeQuery, 0, ObjDeviceType, []byte{1})
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = EncodeSend(0, ObjectID(200), make([]byte, MaxPayloadSize+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestControlByte(t *testing.T) {
	assert.Equal(t, byte(0x70), ControlByte(TypeQuery, ToDevice, 0))
	assert.Equal(t, byte(0xF1), ControlByte(TypeSend, ToDevice, 2))
	assert.Equal(t, byte(0x85), ControlByte(TypeAnswer, FromDevice, 6))
	assert.Equal(t, byte(0x8F), ControlByte(TypeAnswer, FromDevice, 16))
}

func TestFrameLength(t *testing.T) {
	assert.Equal(t, MinFrameSize, FrameLength(0x70), "query without payload")
	assert.Equal(t, 7, FrameLength(0xF1))
	assert.Equal(t, 11, FrameLength(0x85))
	assert.Equal(t, MaxFrameSize, FrameLength(0x8F))
}

func TestIsStartDelimiter(t *testing.T) {
	assert.False(t, IsStartDelimiter(0x00))
	assert.False(t, IsStartDelimiter(0x3F))
	assert.True(t, IsStartDelimiter(0x70))
	assert.True(t, IsStartDelimiter(0x85))
	assert.True(t, IsStartDelimiter(0xF1))
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		node    byte
		obj     ObjectID
		payload []byte
	}{
		{"query", TypeQuery, 0, ObjDeviceType, nil},
		{"send setpoint", TypeSend, 0, ObjSetCurrent, []byte{0x64, 0x00}},
		{"send control", TypeSend, 1, ObjControl, []byte{0x01, 0x01}},
		{"unknown object", TypeSend, 0, ObjectID(120), []byte{1, 2, 3}},
		{"max payload", TypeSend, 0, ObjectID(121), make([]byte, MaxPayloadSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Encode(tt.typ, tt.node, tt.obj, tt.payload)
			require.NoError(t, err)

			f, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.obj, f.Object)
			assert.Equal(t, tt.node, f.Node)
			assert.Equal(t, tt.typ, f.Type())
			assert.True(t, f.IsRequest())
			if len(tt.payload) == 0 {
				assert.Empty(t, f.Payload)
			} else {
				assert.Equal(t, tt.payload, f.Payload)
			}
			assert.Equal(t, buf, f.Pack())
		})
	}
}

func TestDecodeResponse_Answer(t *testing.T) {
	payload := []byte{0x01, 0x01, 0x1C, 0x92, 0x32, 0x00}
	buf, err := EncodeAnswer(0, ObjActualValues, payload)
	require.NoError(t, err)
	assert.Equal(t, byte(0x85), buf[0])

	f, err := DecodeResponse(buf)
	require.NoError(t, err)
	assert.Equal(t, ObjActualValues, f.Object)
	assert.Equal(t, payload, f.Payload)
	assert.Equal(t, FromDevice, f.Direction())
	assert.Equal(t, TypeAnswer, f.Type())
	assert.False(t, f.Cast())
	assert.False(t, f.IsErrorTelegram())
	assert.Equal(t, ErrCodeNone, f.ErrorCode())
}

func TestDecodeResponse_ErrorTelegram(t *testing.T) {
	buf := EncodeError(0, ErrCodeAccessDenied)
	assert.Equal(t, []byte{0x80, 0x00, 0xFF, 0x09, 0x01, 0x88}, buf)

	f, err := DecodeResponse(buf)
	require.NoError(t, err)
	assert.True(t, f.IsErrorTelegram())
	assert.Equal(t, ErrCodeAccessDenied, f.ErrorCode())
}

func TestDecodeResponse_UnexpectedDirection(t *testing.T) {
	buf := EncodeQuery(0, ObjDeviceType)

	_, err := Decode(buf)
	require.NoError(t, err)

	_, err = DecodeResponse(buf)
	assert.ErrorIs(t, err, ErrUnexpectedDirection)
}

func TestDecode_BadLength(t *testing.T) {
	valid, err := EncodeAnswer(0, ObjSetVoltage, []byte{0x1C, 0x92})
	require.NoError(t, err)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"too short", valid[:4]},
		{"truncated", valid[:len(valid)-1]},
		{"trailing byte", append(append([]byte{}, valid...), 0x00)},
		{"schema mismatch", mustAnswer(t, ObjectID(120), []byte{1, 2, 3}, ObjSetVoltage)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadLength)
			assert.NotErrorIs(t, err, ErrBadChecksum)
		})
	}
}

// mustAnswer encodes an answer for obj and rewrites its object byte to
// retarget, fixing up the checksum so only the schema is wrong.
func mustAnswer(t *testing.T, obj ObjectID, payload []byte, retarget ObjectID) []byte {
	t.Helper()

	buf, err := EncodeAnswer(0, obj, payload)
	require.NoError(t, err)

	f := &Frame{Control: buf[0], Node: buf[1], Object: retarget, Payload: payload}

	return f.Pack()
}

func TestDecode_SingleByteCorruption(t *testing.T) {
	payload := []byte{0x01, 0x01, 0x1C, 0x92, 0x32, 0x00}
	buf, err := EncodeAnswer(0, ObjActualValues, payload)
	require.NoError(t, err)

	for i := headerSize; i < headerSize+len(payload); i++ {
		for _, flip := range []byte{0x01, 0x80, 0xFF} {
			corrupt := append([]byte{}, buf...)
			corrupt[i] ^= flip

			_, err := Decode(corrupt)
			require.Error(t, err, "byte %d flip 0x%02X", i, flip)
			assert.ErrorIs(t, err, ErrBadChecksum, "byte %d flip 0x%02X", i, flip)
		}
	}
}

func TestDecode_HeaderCorruption(t *testing.T) {
	payload := []byte{0x01, 0x01, 0x1C, 0x92, 0x32, 0x00}
	buf, err := EncodeAnswer(0, ObjActualValues, payload)
	require.NoError(t, err)

	tests := []struct {
		name  string
		index int
		value byte
	}{
		{"object retargeted to a 4 byte object", 2, byte(ObjNominalVoltage)},
		{"object retargeted to an undefined object", 2, 0x7A},
		{"node", 1, 0x05},
		{"direction bit", 0, buf[0] | 0x10},
		{"type bits", 0, (buf[0] &^ 0xC0) | byte(TypeQuery)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupt := append([]byte{}, buf...)
			corrupt[tt.index] = tt.value

			_, err := Decode(corrupt)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadChecksum)
			assert.NotErrorIs(t, err, ErrBadLength)
		})
	}
}

func TestDecode_ChecksumByteCorruption(t *testing.T) {
	buf := EncodeQuery(0, ObjDeviceType)
	buf[len(buf)-1] ^= 0x01

	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrBadChecksum)
}

func TestDecode_DoesNotAlias(t *testing.T) {
	buf, err := EncodeAnswer(0, ObjSetVoltage, []byte{0x1C, 0x92})
	require.NoError(t, err)

	f, err := Decode(buf)
	require.NoError(t, err)

	buf[3] = 0
	assert.Equal(t, []byte{0x1C, 0x92}, f.Payload)
}

func TestChecksum_Truncation(t *testing.T) {
	f := &Frame{Control: 0x8F, Node: 0xFF, Object: ObjectID(0xFF), Payload: make([]byte, MaxPayloadSize)}
	for i := range f.Payload {
		f.Payload[i] = 0xFF
	}

	assert.Equal(t, Checksum(f.Pack()[:MaxFrameSize-checksumSize]), f.Checksum())
}
