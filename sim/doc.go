// Package sim implements the device side of the PS 2000 B protocol.
//
// A Device answers telegrams the way a single-output power supply does: it
// keeps a register file of identity and nominal objects, tracks the remote
// and output control bits, rejects writes without remote control and codes
// above the device limits, and derives actual values from the set values
// through a resistive load. Faults queued with Inject are applied to the
// following requests, one fault per request.
//
// Serve runs a Device on any byte stream. Connect starts one on an in-memory
// pipe and returns the host end as a link.Link, which is what the tests and
// the ps2000ctl --simulate mode use.
package sim
