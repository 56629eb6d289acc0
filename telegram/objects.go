package telegram

import "fmt"

// ObjectID selects the device register a telegram addresses.
type ObjectID byte

// Object catalog of the PS 2000 B single-output models.
const (
	ObjDeviceType      ObjectID = 0
	ObjSerialNumber    ObjectID = 1
	ObjNominalVoltage  ObjectID = 2
	ObjNominalCurrent  ObjectID = 3
	ObjNominalPower    ObjectID = 4
	ObjArticleNumber   ObjectID = 6
	ObjManufacturer    ObjectID = 8
	ObjSoftwareVersion ObjectID = 9
	ObjDeviceClass     ObjectID = 19
	ObjOVPThreshold    ObjectID = 38
	ObjOCPThreshold    ObjectID = 39
	ObjSetVoltage      ObjectID = 50
	ObjSetCurrent      ObjectID = 51
	ObjControl         ObjectID = 54
	ObjActualValues    ObjectID = 71
	ObjSetValues       ObjectID = 72
	ObjError           ObjectID = 0xFF
)

// Format describes how an object's payload is laid out.
type Format int

const (
	// FormatString is NUL-terminated ASCII.
	FormatString Format = iota
	// FormatFloat is an IEEE 754 float32, big-endian.
	FormatFloat
	// FormatUint16 is an unsigned 16-bit integer, big-endian.
	FormatUint16
	// FormatBinary is an object-specific byte layout.
	FormatBinary
	// FormatError is the single status byte of an error telegram.
	FormatError
)

// Schema is the fixed payload layout of an object.
type Schema struct {
	Name   string
	Format Format

	// AnswerLen is the payload length of the device's answer. For
	// variable-length objects it is the maximum length.
	AnswerLen int
	// Variable is true when the answer may be shorter than AnswerLen.
	Variable bool
	// SendLen is the payload length of a send telegram; 0 means read-only.
	SendLen int
}

// Writable reports whether the object accepts send telegrams.
func (s Schema) Writable() bool {
	return s.SendLen > 0
}

var catalog = map[ObjectID]Schema{
	ObjDeviceType:      {Name: "device type", Format: FormatString, AnswerLen: 16, Variable: true},
	ObjSerialNumber:    {Name: "serial number", Format: FormatString, AnswerLen: 16, Variable: true},
	ObjNominalVoltage:  {Name: "nominal voltage", Format: FormatFloat, AnswerLen: 4},
	ObjNominalCurrent:  {Name: "nominal current", Format: FormatFloat, AnswerLen: 4},
	ObjNominalPower:    {Name: "nominal power", Format: FormatFloat, AnswerLen: 4},
	ObjArticleNumber:   {Name: "article number", Format: FormatString, AnswerLen: 16, Variable: true},
	ObjManufacturer:    {Name: "manufacturer", Format: FormatString, AnswerLen: 16, Variable: true},
	ObjSoftwareVersion: {Name: "software version", Format: FormatString, AnswerLen: 16, Variable: true},
	ObjDeviceClass:     {Name: "device class", Format: FormatUint16, AnswerLen: 2},
	ObjOVPThreshold:    {Name: "OVP threshold", Format: FormatUint16, AnswerLen: 2, SendLen: 2},
	ObjOCPThreshold:    {Name: "OCP threshold", Format: FormatUint16, AnswerLen: 2, SendLen: 2},
	ObjSetVoltage:      {Name: "set value U", Format: FormatUint16, AnswerLen: 2, SendLen: 2},
	ObjSetCurrent:      {Name: "set value I", Format: FormatUint16, AnswerLen: 2, SendLen: 2},
	ObjControl:         {Name: "power supply control", Format: FormatBinary, AnswerLen: 2, SendLen: 2},
	ObjActualValues:    {Name: "status + actual values", Format: FormatBinary, AnswerLen: 6},
	ObjSetValues:       {Name: "status + set values", Format: FormatBinary, AnswerLen: 6},
	ObjError:           {Name: "error", Format: FormatError, AnswerLen: 1},
}

// Lookup returns the schema of a known object.
func Lookup(obj ObjectID) (Schema, bool) {
	s, ok := catalog[obj]
	return s, ok
}

func (o ObjectID) String() string {
	if s, ok := catalog[o]; ok {
		return s.Name
	}

	return fmt.Sprintf("object(%d)", byte(o))
}

// checkSchema validates a payload length against the object's schema.
// Unknown objects are not constrained.
func checkSchema(t Type, dir Direction, obj ObjectID, n int) error {
	s, ok := catalog[obj]
	if !ok {
		return nil
	}

	switch {
	case dir == ToDevice && t == TypeQuery:
		if n != 0 {
			return fmt.Errorf("%w: query for %s carries %d payload bytes", ErrBadLength, s.Name, n)
		}
	case dir == ToDevice && t == TypeSend:
		if !s.Writable() {
			return fmt.Errorf("%w: %s", ErrNotWritable, s.Name)
		}
		if n != s.SendLen {
			return fmt.Errorf("%w: %s send payload is %d bytes, want %d", ErrBadLength, s.Name, n, s.SendLen)
		}
	case s.Variable:
		if n < 1 || n > s.AnswerLen {
			return fmt.Errorf("%w: %s answer payload is %d bytes, want 1-%d", ErrBadLength, s.Name, n, s.AnswerLen)
		}
	default:
		if n != s.AnswerLen {
			return fmt.Errorf("%w: %s answer payload is %d bytes, want %d", ErrBadLength, s.Name, n, s.AnswerLen)
		}
	}

	return nil
}
