// Package psu is the command layer of the PS 2000 B driver.
//
// Open reads the device identity and ratings and returns a Session. Each
// Session method performs one or more complete request/answer exchanges,
// converting between physical values and device codes with the scale
// package. Setpoint and output commands are refused locally with
// ErrNotRemoteControlled until SetRemoteControl(true) was acknowledged, and
// values outside the device range are refused with a *scale.RangeError
// before anything is written to the link.
//
// A Session serializes its operations with a mutex. The device protocol has
// no transaction identifiers, so a link must only ever be used by one
// Session.
package psu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/logger"
	"github.com/arloliu/go-ps2000/scale"
	"github.com/arloliu/go-ps2000/telegram"
	"github.com/arloliu/go-ps2000/transport"
)

// Session is an open connection to one power supply node.
type Session struct {
	mu sync.Mutex

	link           link.Link
	tr             *transport.Session
	logger         logger.Logger
	node           byte
	releaseOnClose bool

	state  State
	closed bool
	desync error
}

// Open establishes a session with the device at node on l.
//
// It reads the device type and the nominal voltage, current and power. When
// the device reports unusable ratings, the ratings of the model table are
// used instead. An unreadable identity, or bad ratings for an unknown model,
// fail with ErrDeviceProfile.
func Open(ctx context.Context, l link.Link, node byte, opts ...Option) (*Session, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	log := cfg.logger.With("node", node)

	trOpts := append([]transport.Option{transport.WithLogger(log)}, cfg.transportOpts...)
	tr, err := transport.New(l, trOpts...)
	if err != nil {
		return nil, err
	}

	s := &Session{
		link:           l,
		tr:             tr,
		logger:         log,
		node:           node,
		releaseOnClose: cfg.releaseOnClose,
	}

	model, err := s.queryString(ctx, telegram.ObjDeviceType)
	if err != nil {
		if errors.Is(err, ErrDeviceRejected) {
			return nil, fmt.Errorf("%w: device type: %w", ErrDeviceProfile, err)
		}

		return nil, fmt.Errorf("psu: open: %w", err)
	}
	if !printable(model) {
		return nil, fmt.Errorf("%w: device type %q", ErrDeviceProfile, model)
	}

	profile := scale.Profile{Model: model, Node: node}
	if cfg.profile != nil {
		profile.NominalVoltage = cfg.profile.NominalVoltage
		profile.NominalCurrent = cfg.profile.NominalCurrent
		profile.NominalPower = cfg.profile.NominalPower
	} else if profile, err = s.readRatings(ctx, profile); err != nil {
		return nil, err
	}

	s.state.Profile = profile
	s.logger.Info("psu: session opened",
		"model", profile.Model,
		"nominalVoltage", profile.NominalVoltage,
		"nominalCurrent", profile.NominalCurrent,
		"nominalPower", profile.NominalPower,
	)

	return s, nil
}

// readRatings fills the nominal values of p from the device, falling back
// to the model table.
func (s *Session) readRatings(ctx context.Context, p scale.Profile) (scale.Profile, error) {
	nominals := []struct {
		obj telegram.ObjectID
		dst *float64
	}{
		{telegram.ObjNominalVoltage, &p.NominalVoltage},
		{telegram.ObjNominalCurrent, &p.NominalCurrent},
		{telegram.ObjNominalPower, &p.NominalPower},
	}

	for _, n := range nominals {
		v, err := s.queryFloat(ctx, n.obj)
		if err != nil {
			// A device that rejects the query is handled by the fallback
			// below. Link failures are not.
			if !errors.Is(err, ErrDeviceRejected) && !errors.Is(err, telegram.ErrBadValue) {
				return p, fmt.Errorf("psu: open: %w", err)
			}
			s.logger.Warn("psu: nominal value unavailable", "object", n.obj, "error", err)

			continue
		}
		*n.dst = v
	}

	err := p.Validate()
	if err == nil {
		if p.NominalPower <= 0 {
			if r, ok := scale.LookupModel(p.Model); ok {
				p.NominalPower = r.Power
			}
		}

		return p, nil
	}

	r, ok := scale.LookupModel(p.Model)
	if !ok {
		return p, fmt.Errorf("%w: %w", ErrDeviceProfile, err)
	}

	s.logger.Warn("psu: using model table ratings", "model", p.Model, "error", err)
	p.NominalVoltage, p.NominalCurrent, p.NominalPower = r.Voltage, r.Current, r.Power

	return p, nil
}

func printable(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			return false
		}
	}

	return true
}

// Profile returns the device profile established by Open.
func (s *Session) Profile() scale.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Profile
}

// State returns a copy of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Metrics returns the transport counters of this session.
func (s *Session) Metrics() *transport.Metrics {
	return s.tr.Metrics()
}

// Close releases remote control if this session enabled it, then closes the
// link if it implements io.Closer. A failed release is logged, not returned.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if s.state.Remote && s.releaseOnClose && s.desync == nil {
		if err := s.send(ctx, telegram.ObjControl, []byte{ctrlRemote, 0x00}); err != nil {
			s.logger.Warn("psu: release remote control failed", "error", err)
		} else {
			s.state.Remote = false
		}
	}

	s.closed = true
	s.logger.Debug("psu: session closed")

	if c, ok := s.link.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// exchange runs one transport exchange. s.mu must be held.
func (s *Session) exchange(ctx context.Context, req []byte) (*telegram.Frame, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.desync != nil {
		return nil, fmt.Errorf("psu: session must be reopened: %w", s.desync)
	}

	resp, err := s.tr.Exchange(ctx, req)
	if err != nil {
		if errors.Is(err, ErrDesynchronized) {
			s.desync = err
		}

		return nil, err
	}

	return resp, nil
}

// query reads obj and returns its payload.
func (s *Session) query(ctx context.Context, obj telegram.ObjectID) ([]byte, error) {
	resp, err := s.exchange(ctx, telegram.EncodeQuery(s.node, obj))
	if err != nil {
		return nil, err
	}

	if resp.IsErrorTelegram() {
		if code := resp.ErrorCode(); code != telegram.ErrCodeNone {
			return nil, &DeviceError{Object: obj, Code: code}
		}

		return nil, fmt.Errorf("%w: acknowledge for query of %s", ErrUnexpectedAnswer, obj)
	}

	return resp.Payload, nil
}

// send writes payload to obj and waits for the acknowledgement.
func (s *Session) send(ctx context.Context, obj telegram.ObjectID, payload []byte) error {
	req, err := telegram.EncodeSend(s.node, obj, payload)
	if err != nil {
		return err
	}

	resp, err := s.exchange(ctx, req)
	if err != nil {
		return err
	}

	if !resp.IsErrorTelegram() {
		return fmt.Errorf("%w: %s answered with data", ErrUnexpectedAnswer, obj)
	}
	if code := resp.ErrorCode(); code != telegram.ErrCodeNone {
		return &DeviceError{Object: obj, Code: code}
	}

	return nil
}

func (s *Session) queryString(ctx context.Context, obj telegram.ObjectID) (string, error) {
	payload, err := s.query(ctx, obj)
	if err != nil {
		return "", err
	}

	return telegram.StringValue(payload), nil
}

func (s *Session) queryFloat(ctx context.Context, obj telegram.ObjectID) (float64, error) {
	payload, err := s.query(ctx, obj)
	if err != nil {
		return 0, err
	}

	v, err := telegram.Float32Value(payload)
	if err != nil {
		return 0, err
	}

	return float64(v), nil
}

func (s *Session) queryUint16(ctx context.Context, obj telegram.ObjectID) (uint16, error) {
	payload, err := s.query(ctx, obj)
	if err != nil {
		return 0, err
	}

	return telegram.Uint16Value(payload)
}
