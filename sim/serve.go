package sim

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/arloliu/go-ps2000/internal/pool"
	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/telegram"
)

// reply is one answer scheduled by the request loop.
type reply struct {
	data  []byte
	delay time.Duration
}

// Serve answers telegrams read from conn until conn fails or ctx is done.
// Cancelling ctx closes conn. A closed connection ends Serve without error.
//
// Answers are written by a separate goroutine, so a host that stops reading
// never blocks the request loop.
func (d *Device) Serve(ctx context.Context, conn io.ReadWriteCloser) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	replies := make(chan reply, 8)
	writerDone := make(chan struct{})
	go d.writeLoop(ctx, conn, replies, writerDone)

	err := d.readLoop(conn, replies)
	close(replies)
	<-writerDone

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

func (d *Device) readLoop(r io.Reader, replies chan<- reply) error {
	sd := make([]byte, 1)

	for {
		if _, err := io.ReadFull(r, sd); err != nil {
			return err
		}
		if !telegram.IsStartDelimiter(sd[0]) {
			continue
		}

		req := make([]byte, telegram.FrameLength(sd[0]))
		req[0] = sd[0]
		if _, err := io.ReadFull(r, req[1:]); err != nil {
			return err
		}

		d.requests.Add(1)

		if rep, ok := d.respond(req); ok {
			replies <- rep
		}
	}
}

func (d *Device) writeLoop(ctx context.Context, w io.Writer, replies <-chan reply, done chan<- struct{}) {
	defer close(done)

	failed := false
	for rep := range replies {
		if failed {
			continue
		}
		if rep.delay > 0 {
			if err := pool.Sleep(ctx, rep.delay); err != nil {
				failed = true
				continue
			}
		}
		if _, err := w.Write(rep.data); err != nil {
			d.logger.Debug("sim: write failed", "error", err)
			failed = true
		}
	}
}

// respond handles req, applying the next queued fault. ok is false when no
// answer is sent.
func (d *Device) respond(req []byte) (rep reply, ok bool) {
	fault, faulty := d.faults.Dequeue()
	if faulty {
		d.logger.Debug("sim: injecting fault", "fault", fault, "request", req)
	}

	switch {
	case !faulty:
	case fault == FaultDrop:
		return reply{}, false
	case fault == FaultEcho:
		return reply{data: append([]byte{}, req...)}, true
	case fault == FaultDeviceChecksum:
		return reply{data: telegram.EncodeError(req[1], telegram.ErrCodeChecksum)}, true
	case fault == FaultWrongLength:
		// An acknowledge telegram carries exactly one byte.
		f := &telegram.Frame{
			Control: telegram.ControlByte(telegram.TypeAnswer, telegram.FromDevice, 2),
			Node:    req[1],
			Object:  telegram.ObjError,
			Payload: []byte{byte(telegram.ErrCodeNone), 0x00},
		}
		return reply{data: f.Pack()}, true
	case fault == FaultWrongObject:
		obj := telegram.ObjDeviceClass
		if telegram.ObjectID(req[2]) == obj {
			obj = telegram.ObjSetVoltage
		}
		answer, _ := telegram.EncodeAnswer(req[1], obj, []byte{0x00, 0x10})
		return reply{data: answer}, true
	}

	answer := d.Handle(req)
	if answer == nil {
		return reply{}, false
	}

	switch {
	case !faulty:
	case fault == FaultCorruptChecksum:
		answer[len(answer)-1] ^= 0xA5
	case fault == FaultGarbagePrefix:
		answer = append(append([]byte{}, garbage...), answer...)
	case fault == FaultDelay:
		return reply{data: answer, delay: d.faultDelay}, true
	}

	return reply{data: answer}, true
}

// Connect runs d on one end of an in-memory pipe and returns the other end
// as a link. Closing the link or cancelling ctx stops the device.
func Connect(ctx context.Context, d *Device) *link.ConnLink {
	host, device := net.Pipe()

	go func() {
		if err := d.Serve(ctx, device); err != nil {
			d.logger.Debug("sim: device stopped", "error", err)
		}
	}()

	return link.FromConn(host)
}
