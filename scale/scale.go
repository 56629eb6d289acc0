package scale

import (
	"errors"
	"fmt"
	"math"
)

// FullScale is the integer code that corresponds to 100 % of a nominal value.
const FullScale = 25600

// protectionHeadroom is the ceiling of the OVP/OCP thresholds relative to
// the nominal rating (110 %).
const protectionHeadroom = 1.1

var (
	// ErrOutOfRange is returned when a physical value is outside the range
	// the device accepts for its kind. No I/O is attempted.
	ErrOutOfRange = errors.New("scale: value out of device range")

	// ErrInvalidProfile is returned when the profile has no usable nominal
	// value for the requested kind.
	ErrInvalidProfile = errors.New("scale: invalid device profile")
)

// Kind selects which nominal rating scales a value.
type Kind int

const (
	Voltage Kind = iota
	Current
	Power
	// OverVoltage is the over-voltage protection threshold.
	OverVoltage
	// OverCurrent is the over-current protection threshold.
	OverCurrent
)

func (k Kind) String() string {
	switch k {
	case Voltage:
		return "voltage"
	case Current:
		return "current"
	case Power:
		return "power"
	case OverVoltage:
		return "over-voltage threshold"
	case OverCurrent:
		return "over-current threshold"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Unit returns the SI unit symbol of the kind.
func (k Kind) Unit() string {
	switch k {
	case Voltage, OverVoltage:
		return "V"
	case Current, OverCurrent:
		return "A"
	case Power:
		return "W"
	default:
		return ""
	}
}

// RangeError describes a value rejected by ToDeviceUnits.
type RangeError struct {
	Kind  Kind
	Value float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("scale: %s %g%s out of range [0, %g%s]", e.Kind, e.Value, e.Kind.Unit(), e.Max, e.Kind.Unit())
}

// Is reports whether target is ErrOutOfRange.
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// Profile holds the capabilities of the device a session talks to.
// It is established once per session and never mutated.
type Profile struct {
	// Model is the device type string as reported by the device.
	Model string
	// Node is the device node (output) address.
	Node byte

	NominalVoltage float64 // volts
	NominalCurrent float64 // amps
	NominalPower   float64 // watts
}

// Nominal returns the nominal rating that scales values of kind k.
func (p Profile) Nominal(k Kind) float64 {
	switch k {
	case Voltage, OverVoltage:
		return p.NominalVoltage
	case Current, OverCurrent:
		return p.NominalCurrent
	case Power:
		return p.NominalPower
	default:
		return 0
	}
}

// MaxForKind returns the largest physical value accepted for kind k.
func (p Profile) MaxForKind(k Kind) float64 {
	switch k {
	case OverVoltage, OverCurrent:
		return p.Nominal(k) * protectionHeadroom
	default:
		return p.Nominal(k)
	}
}

// Validate checks that the voltage and current ratings are usable.
// The power rating is optional.
func (p Profile) Validate() error {
	if !validNominal(p.NominalVoltage) {
		return fmt.Errorf("%w: nominal voltage %g", ErrInvalidProfile, p.NominalVoltage)
	}
	if !validNominal(p.NominalCurrent) {
		return fmt.Errorf("%w: nominal current %g", ErrInvalidProfile, p.NominalCurrent)
	}

	return nil
}

func validNominal(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ToDeviceUnits converts a physical value to the device code for kind k.
//
// It returns a *RangeError (matching ErrOutOfRange) when v is negative, NaN,
// or above p.MaxForKind(k).
func ToDeviceUnits(v float64, k Kind, p Profile) (uint16, error) {
	nominal := p.Nominal(k)
	if !validNominal(nominal) {
		return 0, fmt.Errorf("%w: nominal %s %g", ErrInvalidProfile, k, nominal)
	}

	limit := p.MaxForKind(k)
	if math.IsNaN(v) || v < 0 || v > limit {
		return 0, &RangeError{Kind: k, Value: v, Max: limit}
	}

	return uint16(math.Round(v / nominal * FullScale)), nil //nolint:gosec // bounded by limit
}

// FromDeviceUnits converts a device code of kind k to a physical value.
// It returns 0 when the profile has no usable nominal for k.
func FromDeviceUnits(code uint16, k Kind, p Profile) float64 {
	nominal := p.Nominal(k)
	if !validNominal(nominal) {
		return 0
	}

	return nominal * float64(code) / FullScale
}

// Resolution returns the physical value of one code step for kind k.
func Resolution(k Kind, p Profile) float64 {
	return p.Nominal(k) / FullScale
}
