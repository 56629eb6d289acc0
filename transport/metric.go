package transport

import (
	"sync/atomic"
)

// Metrics contains atomic counters of a transport session.
// They can back prometheus CounterFuncs; see package metrics.
type Metrics struct {
	// ExchangeCount is the number of Exchange calls.
	ExchangeCount atomic.Uint64
	// AttemptCount is the number of telegrams written.
	AttemptCount atomic.Uint64
	// RetryCount is the number of retried attempts.
	RetryCount atomic.Uint64
	// TimeoutCount is the number of attempts without a complete answer.
	TimeoutCount atomic.Uint64
	// ChecksumErrCount is the number of corrupt answers, including device-reported ones.
	ChecksumErrCount atomic.Uint64
	// DesyncCount is the number of exchanges that failed on a structural mismatch.
	DesyncCount atomic.Uint64
	// UnresponsiveCount is the number of exchanges that exhausted all attempts.
	UnresponsiveCount atomic.Uint64

	// BytesSent is the number of bytes written to the link.
	BytesSent atomic.Uint64
	// BytesRecv is the number of bytes read from the link.
	BytesRecv atomic.Uint64
	// GarbageBytes is the number of received bytes discarded outside a telegram.
	GarbageBytes atomic.Uint64
}

func (m *Metrics) incExchangeCount() {
	m.ExchangeCount.Add(1)
}

func (m *Metrics) incAttemptCount() {
	m.AttemptCount.Add(1)
}

func (m *Metrics) incRetryCount() {
	m.RetryCount.Add(1)
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) incChecksumErrCount() {
	m.ChecksumErrCount.Add(1)
}

func (m *Metrics) incDesyncCount() {
	m.DesyncCount.Add(1)
}

func (m *Metrics) incUnresponsiveCount() {
	m.UnresponsiveCount.Add(1)
}

func (m *Metrics) addBytesSent(n int) {
	m.BytesSent.Add(uint64(n)) //nolint:gosec // n is non-negative
}

func (m *Metrics) addBytesRecv(n int) {
	m.BytesRecv.Add(uint64(n)) //nolint:gosec // n is non-negative
}

func (m *Metrics) addGarbageBytes(n int) {
	m.GarbageBytes.Add(uint64(n)) //nolint:gosec // n is non-negative
}
