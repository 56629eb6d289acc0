package sim

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-ps2000/internal/queue"
	"github.com/arloliu/go-ps2000/logger"
	"github.com/arloliu/go-ps2000/scale"
	"github.com/arloliu/go-ps2000/telegram"
	"github.com/puzpuzpuz/xsync/v3"
)

// Control byte masks of the power supply control object.
const (
	ctrlOutput    = 0x01
	ctrlAckAlarms = 0x0A
	ctrlRemote    = 0x10
)

// Alarm bits of the second status byte.
const (
	AlarmOVP byte = 0x10
	AlarmOCP byte = 0x20
	AlarmOPP byte = 0x40
	AlarmOTP byte = 0x80
)

const (
	statusRemote   = 0x01 // first status byte
	statusOutputOn = 0x01 // second status byte
	statusCC       = 0x02

	// protectionLimit is the largest OVP/OCP code, 110 % of full scale.
	protectionLimit = scale.FullScale * 11 / 10

	// DefaultFaultDelay is how long FaultDelay holds an answer back.
	DefaultFaultDelay = 250 * time.Millisecond
)

// Device is a simulated power supply.
//
// Handle and Serve may be called from one goroutine while another inspects
// the device or injects faults.
type Device struct {
	profile    scale.Profile
	logger     logger.Logger
	load       float64 // ohms, 0 means open circuit
	faultDelay time.Duration

	registers *xsync.MapOf[telegram.ObjectID, []byte]
	faults    *queue.Queue[Fault]
	requests  atomic.Uint64

	mu     sync.Mutex
	remote bool
	output bool
	alarms byte
	setU   uint16
	setI   uint16
	ovp    uint16
	ocp    uint16
}

// Option configures a Device.
type Option func(*Device)

// WithLoad connects a resistive load of ohms to the output.
func WithLoad(ohms float64) Option {
	return func(d *Device) { d.load = ohms }
}

// WithRegister overrides the payload of a read-only object. A nil payload
// removes the object so queries for it are answered with "object not defined".
func WithRegister(obj telegram.ObjectID, payload []byte) Option {
	return func(d *Device) {
		if payload == nil {
			d.registers.Delete(obj)
			return
		}
		d.registers.Store(obj, payload)
	}
}

// WithFaultDelay sets how long FaultDelay holds an answer back.
func WithFaultDelay(delay time.Duration) Option {
	return func(d *Device) { d.faultDelay = delay }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// New creates a device with the identity and ratings of profile. The
// protection thresholds start at their maximum.
func New(profile scale.Profile, opts ...Option) *Device {
	d := &Device{
		profile:    profile,
		logger:     logger.GetLogger(),
		faultDelay: DefaultFaultDelay,
		registers:  xsync.NewMapOf[telegram.ObjectID, []byte](),
		faults:     queue.New[Fault](4),
		ovp:        protectionLimit,
		ocp:        protectionLimit,
	}

	d.registers.Store(telegram.ObjDeviceType, telegram.StringPayload(profile.Model))
	d.registers.Store(telegram.ObjSerialNumber, telegram.StringPayload("1001440001"))
	d.registers.Store(telegram.ObjNominalVoltage, telegram.Float32Payload(float32(profile.NominalVoltage)))
	d.registers.Store(telegram.ObjNominalCurrent, telegram.Float32Payload(float32(profile.NominalCurrent)))
	d.registers.Store(telegram.ObjNominalPower, telegram.Float32Payload(float32(profile.NominalPower)))
	d.registers.Store(telegram.ObjArticleNumber, telegram.StringPayload("39200112"))
	d.registers.Store(telegram.ObjManufacturer, telegram.StringPayload("EA-Elektro-Autom"))
	d.registers.Store(telegram.ObjSoftwareVersion, telegram.StringPayload("V2.01 09.11.10"))
	d.registers.Store(telegram.ObjDeviceClass, telegram.Uint16Payload(0x0010))

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Inject queues faults for the following requests, one per request.
func (d *Device) Inject(faults ...Fault) {
	d.faults.Enqueue(faults...)
}

// PendingFaults returns the number of faults not applied yet.
func (d *Device) PendingFaults() int {
	return d.faults.Length()
}

// NextFault returns the fault the next request will see, without consuming
// it. ok is false when no fault is queued.
func (d *Device) NextFault() (fault Fault, ok bool) {
	return d.faults.Peek()
}

// ClearFaults drops every queued fault, so following requests are answered
// normally.
func (d *Device) ClearFaults() {
	d.faults.Reset()
}

// Requests returns the number of telegrams received by Serve.
func (d *Device) Requests() uint64 {
	return d.requests.Load()
}

// Remote reports whether the device is under remote control.
func (d *Device) Remote() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.remote
}

// Output reports whether the output is switched on.
func (d *Device) Output() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.output
}

// SetValues returns the voltage and current set value codes.
func (d *Device) SetValues() (voltage, current uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.setU, d.setI
}

// RaiseAlarm trips the protection alarms in bits and switches the output off,
// like the device does when a protection threshold is crossed.
func (d *Device) RaiseAlarm(bits byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.alarms |= bits
	d.output = false
}

// Handle processes one request telegram and returns the answer. It returns
// nil for telegrams a device does not answer.
func (d *Device) Handle(req []byte) []byte {
	f, err := telegram.Decode(req)
	if err != nil {
		return d.rejectMalformed(req, err)
	}
	if !f.IsRequest() {
		return nil
	}
	if f.Node != d.profile.Node {
		return telegram.EncodeError(f.Node, telegram.ErrCodeOutputAddress)
	}

	if f.Type() == telegram.TypeSend {
		return telegram.EncodeError(f.Node, d.write(f.Object, f.Payload))
	}

	payload, code := d.read(f.Object)
	if code != telegram.ErrCodeNone {
		return telegram.EncodeError(f.Node, code)
	}

	answer, err := telegram.EncodeAnswer(f.Node, f.Object, payload)
	if err != nil {
		return telegram.EncodeError(f.Node, telegram.ErrCodeObjectLength)
	}

	return answer
}

func (d *Device) rejectMalformed(req []byte, err error) []byte {
	var node byte
	if len(req) > 1 {
		node = req[1]
	}

	switch {
	case errors.Is(err, telegram.ErrBadChecksum):
		return telegram.EncodeError(node, telegram.ErrCodeChecksum)
	case errors.Is(err, telegram.ErrNotWritable):
		return telegram.EncodeError(node, telegram.ErrCodeAccessDenied)
	case errors.Is(err, telegram.ErrBadLength):
		return telegram.EncodeError(node, telegram.ErrCodeObjectLength)
	default:
		return telegram.EncodeError(node, telegram.ErrCodeStartDelimiter)
	}
}

func (d *Device) read(obj telegram.ObjectID) ([]byte, telegram.ErrorCode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch obj {
	case telegram.ObjSetVoltage:
		return telegram.Uint16Payload(d.setU), telegram.ErrCodeNone
	case telegram.ObjSetCurrent:
		return telegram.Uint16Payload(d.setI), telegram.ErrCodeNone
	case telegram.ObjOVPThreshold:
		return telegram.Uint16Payload(d.ovp), telegram.ErrCodeNone
	case telegram.ObjOCPThreshold:
		return telegram.Uint16Payload(d.ocp), telegram.ErrCodeNone
	case telegram.ObjControl:
		status := d.status(false)
		return status[:], telegram.ErrCodeNone
	case telegram.ObjActualValues:
		u, i, cc := d.actuals()
		return d.statusPayload(cc, u, i), telegram.ErrCodeNone
	case telegram.ObjSetValues:
		_, _, cc := d.actuals()
		return d.statusPayload(cc, d.setU, d.setI), telegram.ErrCodeNone
	}

	if payload, ok := d.registers.Load(obj); ok {
		return payload, telegram.ErrCodeNone
	}

	return nil, telegram.ErrCodeObjectUndefined
}

func (d *Device) write(obj telegram.ObjectID, payload []byte) telegram.ErrorCode {
	d.mu.Lock()
	defer d.mu.Unlock()

	if obj == telegram.ObjControl {
		return d.control(payload[0], payload[1])
	}

	if !d.remote {
		return telegram.ErrCodeAccessDenied
	}

	code, err := telegram.Uint16Value(payload)
	if err != nil {
		return telegram.ErrCodeObjectLength
	}

	switch obj {
	case telegram.ObjSetVoltage, telegram.ObjSetCurrent:
		if code > scale.FullScale {
			return telegram.ErrCodeUpperLimit
		}
		if obj == telegram.ObjSetVoltage {
			d.setU = code
		} else {
			d.setI = code
		}
	case telegram.ObjOVPThreshold, telegram.ObjOCPThreshold:
		if code > protectionLimit {
			return telegram.ErrCodeUpperLimit
		}
		if obj == telegram.ObjOVPThreshold {
			d.ovp = code
		} else {
			d.ocp = code
		}
	default:
		return telegram.ErrCodeAccessDenied
	}

	return telegram.ErrCodeNone
}

func (d *Device) control(mask, value byte) telegram.ErrorCode {
	if mask&ctrlRemote != 0 {
		d.remote = value&ctrlRemote != 0
		mask &^= ctrlRemote
	}
	if mask == 0 {
		return telegram.ErrCodeNone
	}
	if !d.remote {
		return telegram.ErrCodeAccessDenied
	}

	if mask&ctrlOutput != 0 {
		d.output = value&ctrlOutput != 0
	}
	if mask&ctrlAckAlarms == ctrlAckAlarms {
		d.alarms = 0
	}

	return telegram.ErrCodeNone
}

// status returns the two status bytes. d.mu must be held.
func (d *Device) status(cc bool) [2]byte {
	var s [2]byte
	if d.remote {
		s[0] |= statusRemote
	}
	if d.output {
		s[1] |= statusOutputOn
	}
	if cc {
		s[1] |= statusCC
	}
	s[1] |= d.alarms

	return s
}

func (d *Device) statusPayload(cc bool, u, i uint16) []byte {
	s := d.status(cc)
	out := make([]byte, 0, 6)
	out = append(out, s[0], s[1])
	out = append(out, telegram.Uint16Payload(u)...)
	out = append(out, telegram.Uint16Payload(i)...)

	return out
}

// actuals derives the output voltage and current codes from the set values
// and the load. cc reports constant current regulation. d.mu must be held.
func (d *Device) actuals() (u, i uint16, cc bool) {
	if !d.output {
		return 0, 0, false
	}
	if d.load <= 0 {
		return d.setU, 0, false
	}

	volts := scale.FromDeviceUnits(d.setU, scale.Voltage, d.profile)
	limit := scale.FromDeviceUnits(d.setI, scale.Current, d.profile)

	amps := volts / d.load
	if amps > limit {
		amps = limit
		volts = limit * d.load
		cc = true
	}

	return d.code(volts, scale.Voltage), d.code(amps, scale.Current), cc
}

func (d *Device) code(v float64, k scale.Kind) uint16 {
	c := math.Round(v / d.profile.Nominal(k) * scale.FullScale)
	if c > scale.FullScale {
		c = scale.FullScale
	}

	return uint16(c) //nolint:gosec // clamped to full scale
}
