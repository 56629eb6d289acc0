package scale

import (
	"strings"
	"unicode"
)

// Rating is the nominal rating of a power supply model.
type Rating struct {
	Voltage float64 // volts
	Current float64 // amps
	Power   float64 // watts
}

// Models maps normalized model identifiers to their nominal ratings.
// Keys are normalized with NormalizeModel; supporting another model of the
// family only needs a new entry here.
var Models = map[string]Rating{
	"PS2042-06B": {Voltage: 42, Current: 6, Power: 100},
	"PS2042-10B": {Voltage: 42, Current: 10, Power: 160},
	"PS2042-20B": {Voltage: 42, Current: 20, Power: 320},
	"PS2084-03B": {Voltage: 84, Current: 3, Power: 100},
	"PS2084-05B": {Voltage: 84, Current: 5, Power: 160},
	"PS2084-10B": {Voltage: 84, Current: 10, Power: 320},
	"PS2032-10B": {Voltage: 32, Current: 10, Power: 160},
	"PS2032-20B": {Voltage: 32, Current: 20, Power: 320},
}

// NormalizeModel strips spaces and trailing NULs from a device type string
// and upper-cases it, e.g. "PS 2042-06 B\x00" becomes "PS2042-06B".
func NormalizeModel(identity string) string {
	var b strings.Builder
	b.Grow(len(identity))

	for _, r := range identity {
		if r == 0 || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}

	return b.String()
}

// LookupModel returns the rating of a known model. The identity may carry
// a suffix after the model name (firmware variants report extra text), so
// the longest table key that prefixes the normalized identity wins.
func LookupModel(identity string) (Rating, bool) {
	norm := NormalizeModel(identity)
	if r, ok := Models[norm]; ok {
		return r, true
	}

	var (
		best    Rating
		bestLen int
	)
	for key, r := range Models {
		if len(key) > bestLen && strings.HasPrefix(norm, key) {
			best, bestLen = r, len(key)
		}
	}

	return best, bestLen > 0
}

// ProfileFor builds a profile for a known model.
func ProfileFor(identity string, node byte) (Profile, bool) {
	r, ok := LookupModel(identity)
	if !ok {
		return Profile{}, false
	}

	return Profile{
		Model:          identity,
		Node:           node,
		NominalVoltage: r.Voltage,
		NominalCurrent: r.Current,
		NominalPower:   r.Power,
	}, true
}
