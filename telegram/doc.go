// Package telegram implements the frame codec of the EA PS 2000 B serial
// protocol.
//
// A telegram on the wire is:
//
//	[SD][DN][OBJ][DATA(0-16)][CS_HI][CS_LO]
//
// SD is the start delimiter. It doubles as the control byte:
//
//   - bits 7-6: transmission type (01 query, 10 answer, 11 send)
//   - bit 5:    cast, set by the host
//   - bit 4:    direction (1 host to device, 0 device to host)
//   - bits 3-0: payload length - 1
//
// DN is the device node, OBJ the object (register) being addressed, and CS the
// 16-bit unsigned sum of every preceding byte, big-endian.
//
// A query sent by the host carries no payload. Every other telegram carries
// 1 to 16 payload bytes whose layout is fixed by the object; see [Lookup].
//
// The codec validates buffers it is given. It never searches a byte stream
// for a start delimiter; that is the transport's job.
package telegram
