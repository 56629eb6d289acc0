package psu

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-ps2000/scale"
)

// Status bits. The first status byte is the high byte of StatusFlags.Raw.
const (
	StatusRemote          uint16 = 0x0300
	StatusOutputOn        uint16 = 0x0001
	StatusControlMode     uint16 = 0x0006
	StatusTracking        uint16 = 0x0008
	StatusOverVoltage     uint16 = 0x0010
	StatusOverCurrent     uint16 = 0x0020
	StatusOverPower       uint16 = 0x0040
	StatusOverTemperature uint16 = 0x0080

	statusKnown = StatusRemote | 0x00FF
)

// StatusFlags is the device status word. Bits without a known meaning are
// kept in Raw and reported by Reserved.
type StatusFlags struct {
	Raw uint16
}

func statusFrom(b0, b1 byte) StatusFlags {
	return StatusFlags{Raw: uint16(b0)<<8 | uint16(b1)}
}

func (f StatusFlags) has(mask uint16) bool { return f.Raw&mask != 0 }

// Remote reports whether the device is under remote control.
func (f StatusFlags) Remote() bool { return f.has(StatusRemote) }

// OutputOn reports whether the output is switched on.
func (f StatusFlags) OutputOn() bool { return f.has(StatusOutputOn) }

// ConstantCurrent reports current regulation.
func (f StatusFlags) ConstantCurrent() bool { return f.has(StatusControlMode) }

// ConstantVoltage reports voltage regulation.
func (f StatusFlags) ConstantVoltage() bool { return !f.ConstantCurrent() }

// Tracking reports tracking mode of a multi-output device.
func (f StatusFlags) Tracking() bool { return f.has(StatusTracking) }

// OverVoltage reports a tripped overvoltage protection.
func (f StatusFlags) OverVoltage() bool { return f.has(StatusOverVoltage) }

// OverCurrent reports a tripped overcurrent protection.
func (f StatusFlags) OverCurrent() bool { return f.has(StatusOverCurrent) }

// OverPower reports a tripped overpower protection.
func (f StatusFlags) OverPower() bool { return f.has(StatusOverPower) }

// OverTemperature reports a tripped overtemperature protection.
func (f StatusFlags) OverTemperature() bool { return f.has(StatusOverTemperature) }

// Alarm reports whether any protection is tripped.
func (f StatusFlags) Alarm() bool {
	return f.has(StatusOverVoltage | StatusOverCurrent | StatusOverPower | StatusOverTemperature)
}

// Reserved returns the bits with no known meaning.
func (f StatusFlags) Reserved() uint16 { return f.Raw &^ statusKnown }

func (f StatusFlags) String() string {
	parts := []string{"local"}
	if f.Remote() {
		parts[0] = "remote"
	}

	if f.OutputOn() {
		parts = append(parts, "on")
	} else {
		parts = append(parts, "off")
	}

	if f.ConstantCurrent() {
		parts = append(parts, "CC")
	} else {
		parts = append(parts, "CV")
	}

	for _, a := range []struct {
		set  bool
		name string
	}{
		{f.Tracking(), "tracking"},
		{f.OverVoltage(), "OVP"},
		{f.OverCurrent(), "OCP"},
		{f.OverPower(), "OPP"},
		{f.OverTemperature(), "OTP"},
	} {
		if a.set {
			parts = append(parts, a.name)
		}
	}

	if r := f.Reserved(); r != 0 {
		parts = append(parts, fmt.Sprintf("reserved=0x%04X", r))
	}

	return strings.Join(parts, " ")
}

// Identity describes the connected device.
type Identity struct {
	Model           string
	SerialNumber    string
	ArticleNumber   string
	Manufacturer    string
	SoftwareVersion string
	DeviceClass     uint16
}

// Actuals are the measured output values.
type Actuals struct {
	Voltage float64 // volts
	Current float64 // amps
	Power   float64 // watts, Voltage * Current
	Status  StatusFlags
}

// Setpoints are the set values the device regulates to.
type Setpoints struct {
	Voltage float64 // volts
	Current float64 // amps
	Status  StatusFlags
}

// Control is the state of the power supply control object.
type Control struct {
	Remote   bool
	OutputOn bool
	Raw      [2]byte
}

// State is the session's view of the device, changed only by acknowledged
// commands and successful reads.
type State struct {
	Profile scale.Profile

	// Remote is true after SetRemoteControl(true) was acknowledged.
	Remote bool
	// OutputOn is the last known output state.
	OutputOn bool

	// VoltageSetpoint and CurrentSetpoint are the last acknowledged set
	// values, as quantized by the device.
	VoltageSetpoint float64
	CurrentSetpoint float64
	VoltageSet      bool
	CurrentSet      bool
}
