// Package scale converts between physical quantities (volts, amps, watts)
// and the fixed-point codes a PS 2000 B power supply exchanges on the wire.
//
// The device expresses every setpoint and actual value as a percentage of
// the model's nominal rating, where [FullScale] (25600) means 100 %:
//
//	code = round(value / nominal * FullScale)
//	value = nominal * code / FullScale
//
// The nominal ratings are read from the device once per session and kept in
// an immutable [Profile]. A [Models] table holds the ratings of known models,
// so the engine can fall back to it when a device reports unusable values.
package scale
