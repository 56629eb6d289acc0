package sim

import "fmt"

// Fault is a scripted misbehaviour applied to one request.
type Fault int

const (
	// FaultDrop loses the request. The device neither processes nor answers it.
	FaultDrop Fault = iota + 1
	// FaultCorruptChecksum processes the request and answers with a bad checksum.
	FaultCorruptChecksum
	// FaultGarbagePrefix processes the request and sends line noise before the answer.
	FaultGarbagePrefix
	// FaultEcho sends the request back unchanged, like a loopback cable.
	FaultEcho
	// FaultWrongLength answers with a telegram whose payload does not fit its object.
	FaultWrongLength
	// FaultWrongObject answers with a telegram for another object.
	FaultWrongObject
	// FaultDeviceChecksum reports the request checksum as bad without processing it.
	FaultDeviceChecksum
	// FaultDelay processes the request and holds the answer back for the
	// configured fault delay.
	FaultDelay
)

func (f Fault) String() string {
	switch f {
	case FaultDrop:
		return "drop"
	case FaultCorruptChecksum:
		return "corrupt checksum"
	case FaultGarbagePrefix:
		return "garbage prefix"
	case FaultEcho:
		return "echo"
	case FaultWrongLength:
		return "wrong length"
	case FaultWrongObject:
		return "wrong object"
	case FaultDeviceChecksum:
		return "device checksum"
	case FaultDelay:
		return "delay"
	default:
		return fmt.Sprintf("fault(%d)", int(f))
	}
}

// garbage is sent ahead of the answer by FaultGarbagePrefix. None of the
// bytes can start a telegram.
var garbage = []byte{0x00, 0x0F, 0x3E}
