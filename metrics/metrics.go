// Package metrics exports transport counters to prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/arloliu/go-ps2000/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ps2000"

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// RegisterTransport registers one counter per transport metric. The
// counters read m on every scrape. labels are attached to all of them,
// typically the port and node of the session.
func RegisterTransport(reg prometheus.Registerer, m *transport.Metrics, labels prometheus.Labels) error {
	counters := []struct {
		name string
		help string
		v    *atomic.Uint64
	}{
		{"exchanges_total", "Request/answer exchanges started.", &m.ExchangeCount},
		{"attempts_total", "Telegrams written, including retries.", &m.AttemptCount},
		{"retries_total", "Retried attempts.", &m.RetryCount},
		{"timeouts_total", "Attempts without a complete answer.", &m.TimeoutCount},
		{"checksum_errors_total", "Corrupt answers and device-reported checksum errors.", &m.ChecksumErrCount},
		{"desyncs_total", "Exchanges failed on a structural mismatch.", &m.DesyncCount},
		{"unresponsive_total", "Exchanges that exhausted all attempts.", &m.UnresponsiveCount},
		{"sent_bytes_total", "Bytes written to the link.", &m.BytesSent},
		{"received_bytes_total", "Bytes read from the link.", &m.BytesRecv},
		{"garbage_bytes_total", "Received bytes discarded outside a telegram.", &m.GarbageBytes},
	}

	for _, c := range counters {
		v := c.v
		cf := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "transport",
			Name:        c.name,
			Help:        c.help,
			ConstLabels: labels,
		}, func() float64 { return float64(v.Load()) })

		if err := reg.Register(cf); err != nil {
			return err
		}
	}

	return nil
}
