package psu

import (
	"context"
	"fmt"

	"github.com/arloliu/go-ps2000/scale"
	"github.com/arloliu/go-ps2000/telegram"
)

// Masks of the power supply control object. A send carries [mask, value].
const (
	ctrlOutput    = 0x01
	ctrlAckAlarms = 0x0A
	ctrlRemote    = 0x10
)

// requireRemote refuses commands that the device only accepts under remote
// control. s.mu must be held.
func (s *Session) requireRemote() error {
	if s.closed {
		return ErrSessionClosed
	}
	if !s.state.Remote {
		return ErrNotRemoteControlled
	}

	return nil
}

// SetRemoteControl switches the device to remote (true) or local (false)
// control.
func (s *Session) SetRemoteControl(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value byte
	if enabled {
		value = ctrlRemote
	}

	if err := s.send(ctx, telegram.ObjControl, []byte{ctrlRemote, value}); err != nil {
		return err
	}

	s.state.Remote = enabled
	s.logger.Debug("psu: remote control changed", "remote", enabled)

	return nil
}

// SetOutputEnabled switches the output on or off.
func (s *Session) SetOutputEnabled(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRemote(); err != nil {
		return err
	}

	var value byte
	if on {
		value = ctrlOutput
	}

	if err := s.send(ctx, telegram.ObjControl, []byte{ctrlOutput, value}); err != nil {
		return err
	}

	s.state.OutputOn = on
	s.logger.Debug("psu: output changed", "on", on)

	return nil
}

// AcknowledgeAlarms clears latched protection alarms (OVP, OCP, OPP, OTP).
func (s *Session) AcknowledgeAlarms(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRemote(); err != nil {
		return err
	}

	return s.send(ctx, telegram.ObjControl, []byte{ctrlAckAlarms, ctrlAckAlarms})
}

// SetVoltage sets the output voltage setpoint in volts.
func (s *Session) SetVoltage(ctx context.Context, volts float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.setValue(ctx, telegram.ObjSetVoltage, scale.Voltage, volts)
	if err != nil {
		return err
	}

	s.state.VoltageSetpoint, s.state.VoltageSet = v, true

	return nil
}

// SetCurrent sets the output current limit in amps.
func (s *Session) SetCurrent(ctx context.Context, amps float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.setValue(ctx, telegram.ObjSetCurrent, scale.Current, amps)
	if err != nil {
		return err
	}

	s.state.CurrentSetpoint, s.state.CurrentSet = v, true

	return nil
}

// SetOVPThreshold sets the overvoltage protection threshold in volts, up to
// 110 % of the nominal voltage.
func (s *Session) SetOVPThreshold(ctx context.Context, volts float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.setValue(ctx, telegram.ObjOVPThreshold, scale.OverVoltage, volts)

	return err
}

// SetOCPThreshold sets the overcurrent protection threshold in amps, up to
// 110 % of the nominal current.
func (s *Session) SetOCPThreshold(ctx context.Context, amps float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.setValue(ctx, telegram.ObjOCPThreshold, scale.OverCurrent, amps)

	return err
}

// setValue validates v, writes it to obj and returns the value the device
// code represents. s.mu must be held.
func (s *Session) setValue(ctx context.Context, obj telegram.ObjectID, k scale.Kind, v float64) (float64, error) {
	if err := s.requireRemote(); err != nil {
		return 0, err
	}

	code, err := scale.ToDeviceUnits(v, k, s.state.Profile)
	if err != nil {
		return 0, err
	}

	if err := s.send(ctx, obj, telegram.Uint16Payload(code)); err != nil {
		return 0, err
	}

	applied := scale.FromDeviceUnits(code, k, s.state.Profile)
	s.logger.Debug("psu: set value", "object", obj, "value", applied, "code", code)

	return applied, nil
}

// ReadActuals reads the measured output voltage and current. Power is
// computed from them.
func (s *Session) ReadActuals(ctx context.Context) (Actuals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, u, i, err := s.queryStatusValues(ctx, telegram.ObjActualValues)
	if err != nil {
		return Actuals{}, err
	}

	p := s.state.Profile
	a := Actuals{
		Voltage: scale.FromDeviceUnits(u, scale.Voltage, p),
		Current: scale.FromDeviceUnits(i, scale.Current, p),
		Status:  status,
	}
	a.Power = a.Voltage * a.Current

	return a, nil
}

// ReadStatus reads the device status word.
func (s *Session) ReadStatus(ctx context.Context) (StatusFlags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, _, _, err := s.queryStatusValues(ctx, telegram.ObjActualValues)

	return status, err
}

// ReadSetpoints reads the set values together with the status word.
func (s *Session) ReadSetpoints(ctx context.Context) (Setpoints, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, u, i, err := s.queryStatusValues(ctx, telegram.ObjSetValues)
	if err != nil {
		return Setpoints{}, err
	}

	p := s.state.Profile

	return Setpoints{
		Voltage: scale.FromDeviceUnits(u, scale.Voltage, p),
		Current: scale.FromDeviceUnits(i, scale.Current, p),
		Status:  status,
	}, nil
}

// queryStatusValues reads a status + values object. s.mu must be held.
func (s *Session) queryStatusValues(ctx context.Context, obj telegram.ObjectID) (StatusFlags, uint16, uint16, error) {
	payload, err := s.query(ctx, obj)
	if err != nil {
		return StatusFlags{}, 0, 0, err
	}
	if len(payload) != 6 {
		return StatusFlags{}, 0, 0, fmt.Errorf("%w: %s payload is %d bytes", ErrUnexpectedAnswer, obj, len(payload))
	}

	status := statusFrom(payload[0], payload[1])
	u, _ := telegram.Uint16Value(payload[2:4])
	i, _ := telegram.Uint16Value(payload[4:6])

	s.state.OutputOn = status.OutputOn()

	return status, u, i, nil
}

// ReadVoltageSetpoint reads the voltage set value in volts.
func (s *Session) ReadVoltageSetpoint(ctx context.Context) (float64, error) {
	return s.readScaled(ctx, telegram.ObjSetVoltage, scale.Voltage)
}

// ReadCurrentSetpoint reads the current set value in amps.
func (s *Session) ReadCurrentSetpoint(ctx context.Context) (float64, error) {
	return s.readScaled(ctx, telegram.ObjSetCurrent, scale.Current)
}

// OVPThreshold reads the overvoltage protection threshold in volts.
func (s *Session) OVPThreshold(ctx context.Context) (float64, error) {
	return s.readScaled(ctx, telegram.ObjOVPThreshold, scale.OverVoltage)
}

// OCPThreshold reads the overcurrent protection threshold in amps.
func (s *Session) OCPThreshold(ctx context.Context) (float64, error) {
	return s.readScaled(ctx, telegram.ObjOCPThreshold, scale.OverCurrent)
}

func (s *Session) readScaled(ctx context.Context, obj telegram.ObjectID, k scale.Kind) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.queryUint16(ctx, obj)
	if err != nil {
		return 0, err
	}

	return scale.FromDeviceUnits(code, k, s.state.Profile), nil
}

// ReadControl reads the power supply control object.
func (s *Session) ReadControl(ctx context.Context) (Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.query(ctx, telegram.ObjControl)
	if err != nil {
		return Control{}, err
	}
	if len(payload) != 2 {
		return Control{}, fmt.Errorf("%w: control payload is %d bytes", ErrUnexpectedAnswer, len(payload))
	}

	c := Control{
		Remote:   payload[0]&0x01 != 0,
		OutputOn: payload[1]&0x01 != 0,
		Raw:      [2]byte{payload[0], payload[1]},
	}
	s.state.OutputOn = c.OutputOn

	return c, nil
}

// ReadIdentity reads the identification objects of the device.
func (s *Session) ReadIdentity(ctx context.Context) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		id  Identity
		err error
	)

	strs := []struct {
		obj telegram.ObjectID
		dst *string
	}{
		{telegram.ObjDeviceType, &id.Model},
		{telegram.ObjSerialNumber, &id.SerialNumber},
		{telegram.ObjArticleNumber, &id.ArticleNumber},
		{telegram.ObjManufacturer, &id.Manufacturer},
		{telegram.ObjSoftwareVersion, &id.SoftwareVersion},
	}
	for _, f := range strs {
		if *f.dst, err = s.queryString(ctx, f.obj); err != nil {
			return Identity{}, err
		}
	}

	if id.DeviceClass, err = s.queryUint16(ctx, telegram.ObjDeviceClass); err != nil {
		return Identity{}, err
	}

	return id, nil
}
