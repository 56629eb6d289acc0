// Package transport exchanges PS 2000 B telegrams over a link.
//
// A Session writes one request, accumulates the answer until the length
// declared by its start delimiter is satisfied, validates it with the
// telegram codec and retries transient failures:
//
//   - no or incomplete answer within the timeouts,
//   - an answer with a bad checksum,
//   - an error telegram in which the device reports our checksum as bad.
//
// Structural mismatches (bad length, wrong direction, answer for another
// object) are not retried. They are returned wrapped in ErrDesynchronized.
// After the retry ceiling an *UnresponsiveError is returned. The session
// never closes or resets the link.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ps2000/internal/pool"
	"github.com/arloliu/go-ps2000/internal/util"
	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/logger"
	"github.com/arloliu/go-ps2000/telegram"
)

// maxDrainReads bounds drainUntilSilence on a link that never goes quiet.
const maxDrainReads = 64

// Session runs request/response exchanges over one link.
//
// This type is NOT goroutine-safe. The device protocol has no transaction
// identifiers, so only one exchange may be in flight; callers serialize.
type Session struct {
	link    link.Link
	cfg     *Config
	logger  logger.Logger
	metrics Metrics

	rx     []byte // received bytes not consumed yet
	chunk  [telegram.MaxFrameSize]byte
	lastTx time.Time // end of the previous attempt

	// stale is set when an attempt timed out: the device may still answer it.
	// The line is drained before each write and after the next validated
	// answer until an exchange completes.
	stale bool
}

// New creates a transport session on l.
func New(l link.Link, opts ...Option) (*Session, error) {
	if l == nil {
		return nil, errors.New("transport: link is nil")
	}

	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Session{
		link:   l,
		cfg:    cfg,
		logger: cfg.logger,
		rx:     make([]byte, 0, 2*telegram.MaxFrameSize),
	}, nil
}

// Config returns the session configuration.
func (s *Session) Config() *Config {
	return s.cfg
}

// Metrics returns the session counters.
func (s *Session) Metrics() *Metrics {
	return &s.metrics
}

// attemptResult classifies the outcome of one attempt so the retry loop can
// decide whether to retry or give up.
type attemptResult int

const (
	attemptOK    attemptResult = iota // answer received and validated
	attemptRetry                      // transient failure
	attemptAbort                      // non-retryable failure
)

// Exchange sends request and returns the validated answer.
//
// request must be a complete host-to-device telegram. ctx is checked before
// each attempt is written and while waiting out the inter-telegram gap; once
// a request is on the wire the attempt runs to completion, bounded by the
// configured timeouts, so the device never sees a half-abandoned exchange.
func (s *Session) Exchange(ctx context.Context, request []byte) (*telegram.Frame, error) {
	req, err := telegram.Decode(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !req.IsRequest() {
		return nil, fmt.Errorf("%w: %s telegram is not host-to-device", ErrInvalidRequest, req.Type())
	}

	s.metrics.incExchangeCount()

	attempts := s.cfg.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := s.waitInterval(ctx); err != nil {
			return nil, err
		}

		if attempt > 1 {
			s.metrics.incRetryCount()
			s.logger.Debug("transport: retry",
				"object", req.Object,
				"attempt", attempt,
				"maxAttempts", attempts,
				"error", lastErr,
			)
		}

		resp, result, err := s.attempt(request, req)

		switch result {
		case attemptOK:
			if s.stale {
				// a late answer may have been taken for this one; its twin is still in flight
				s.drainUntilSilence()
				s.stale = false
			}

			return resp, nil

		case attemptRetry:
			lastErr = err

			continue

		case attemptAbort:
			if errors.Is(err, ErrDesynchronized) {
				s.metrics.incDesyncCount()
				s.logger.Warn("transport: link desynchronized", "object", req.Object, "error", err)
			}

			return nil, err
		}
	}

	s.metrics.incUnresponsiveCount()
	s.logger.Warn("transport: device unresponsive",
		"object", req.Object,
		"attempts", attempts,
		"error", lastErr,
	)

	return nil, &UnresponsiveError{Attempts: attempts, Last: lastErr}
}

// attempt writes the request once and reads one answer.
func (s *Session) attempt(request []byte, req *telegram.Frame) (*telegram.Frame, attemptResult, error) {
	defer func() { s.lastTx = time.Now() }()

	// Bytes left over from an earlier exchange cannot belong to this one.
	if s.stale {
		s.drainUntilSilence()
	} else {
		s.discardPending()
	}

	s.metrics.incAttemptCount()
	n, err := s.link.Write(request)
	s.metrics.addBytesSent(n)
	if err != nil {
		return nil, attemptAbort, fmt.Errorf("%w: write: %w", ErrLink, err)
	}

	s.logger.Debug("transport: request sent", "object", req.Object, "data", fmt.Sprintf("% X", request))

	raw, err := s.readFrame()
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			s.metrics.incTimeoutCount()
			s.stale = true
			s.drainUntilSilence()

			return nil, attemptRetry, err
		}

		return nil, attemptAbort, err
	}

	s.logger.Debug("transport: answer received", "object", req.Object, "data", fmt.Sprintf("% X", raw))

	resp, err := telegram.DecodeResponse(raw)
	if err != nil {
		if errors.Is(err, telegram.ErrBadChecksum) {
			s.metrics.incChecksumErrCount()
			s.drainUntilSilence()

			return nil, attemptRetry, err
		}

		return nil, attemptAbort, fmt.Errorf("%w: %w", ErrDesynchronized, err)
	}

	if resp.IsErrorTelegram() && resp.ErrorCode() == telegram.ErrCodeChecksum {
		s.metrics.incChecksumErrCount()

		return nil, attemptRetry, ErrDeviceChecksum
	}

	if err := correlate(req, resp); err != nil {
		return nil, attemptAbort, fmt.Errorf("%w: %w", ErrDesynchronized, err)
	}

	return resp, attemptOK, nil
}

// correlate checks that resp answers req. The device answers with the
// queried object, or with an error telegram.
func correlate(req, resp *telegram.Frame) error {
	if resp.Node != req.Node {
		return fmt.Errorf("%w: node %d, want %d", ErrUnexpectedObject, resp.Node, req.Node)
	}
	if resp.Object != req.Object && !resp.IsErrorTelegram() {
		return fmt.Errorf("%w: %s, want %s", ErrUnexpectedObject, resp.Object, req.Object)
	}

	return nil
}

// readFrame accumulates one complete telegram from the link.
//
// Leading bytes that cannot start a telegram are skipped. The first byte must
// arrive within the response timeout, each further chunk within the char
// timeout. No partial telegram is ever returned.
func (s *Session) readFrame() ([]byte, error) {
	deadline := time.Now().Add(s.cfg.responseTimeout)

	for {
		s.skipGarbage()
		if len(s.rx) > 0 {
			break
		}

		if err := s.readMore(deadline); err != nil {
			if errors.Is(err, ErrLink) {
				return nil, err
			}

			return nil, fmt.Errorf("%w: no answer within %v: %w", ErrTimeout, s.cfg.responseTimeout, err)
		}
	}

	need := telegram.FrameLength(s.rx[0])
	for len(s.rx) < need {
		if err := s.readMore(time.Now().Add(s.cfg.charTimeout)); err != nil {
			if errors.Is(err, ErrLink) {
				return nil, err
			}

			return nil, fmt.Errorf("%w: incomplete answer, %d of %d bytes: %w", ErrTimeout, len(s.rx), need, err)
		}
	}

	frame := util.CloneSlice(s.rx[:need], 0)
	s.rx = append(s.rx[:0], s.rx[need:]...)

	return frame, nil
}

// readMore appends the bytes available before deadline to s.rx.
// Link errors other than timeouts are wrapped in ErrLink.
func (s *Session) readMore(deadline time.Time) error {
	n, err := s.link.ReadAvailable(s.chunk[:], deadline)
	if n > 0 {
		s.metrics.addBytesRecv(n)
		s.rx = append(s.rx, s.chunk[:n]...)
	}
	if err != nil {
		if errors.Is(err, link.ErrTimeout) {
			return err
		}

		return fmt.Errorf("%w: read: %w", ErrLink, err)
	}

	return nil
}

func (s *Session) skipGarbage() {
	skip := 0
	for skip < len(s.rx) && !telegram.IsStartDelimiter(s.rx[skip]) {
		skip++
	}
	if skip > 0 {
		s.metrics.addGarbageBytes(skip)
		s.logger.Debug("transport: skipped garbage", "bytes", skip)
		s.rx = append(s.rx[:0], s.rx[skip:]...)
	}
}

func (s *Session) discardPending() {
	if len(s.rx) > 0 {
		s.metrics.addGarbageBytes(len(s.rx))
		s.rx = s.rx[:0]
	}
}

// drainUntilSilence reads and discards bytes until the line is silent for
// the char timeout, so a late or corrupt answer cannot leak into the next
// attempt or exchange.
func (s *Session) drainUntilSilence() {
	s.discardPending()

	for i := 0; i < maxDrainReads; i++ {
		n, err := s.link.ReadAvailable(s.chunk[:], time.Now().Add(s.cfg.charTimeout))
		if n > 0 {
			s.metrics.addBytesRecv(n)
			s.metrics.addGarbageBytes(n)
		}
		if err != nil {
			return
		}
	}
}

// waitInterval blocks until the minimum gap since the previous telegram has
// passed, or ctx is done.
func (s *Session) waitInterval(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.cfg.minInterval <= 0 || s.lastTx.IsZero() {
		return nil
	}

	return pool.Sleep(ctx, s.cfg.minInterval-time.Since(s.lastTx))
}
