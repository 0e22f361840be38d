package ingest

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gauge"

// Metrics holds the Prometheus collectors of the ingestion server. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	connectionsAccepted prometheus.Counter
	connectionsActive   prometheus.Gauge
	acceptErrors        prometheus.Counter
	bytesReceived       prometheus.Counter
	framesDecoded       *prometheus.CounterVec
	framesRejected      *prometheus.CounterVec
	dispatchErrors      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer yields nil metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "connections_accepted_total",
			Help:      "Total TCP connections accepted",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "connections_active",
			Help:      "Connections currently served by a worker",
		}),
		acceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "accept_errors_total",
			Help:      "Accept calls that failed",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from sensor connections",
		}),
		framesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "frames_decoded_total",
			Help:      "Frames decoded, by gauge kind",
		}, []string{"kind"}),
		framesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "frames_rejected_total",
			Help:      "Frames rejected by the decoder, by reason",
		}, []string{"reason"}),
		dispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "dispatch_errors_total",
			Help:      "Decoded frames the handler failed to process",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.connectionsAccepted,
		m.connectionsActive,
		m.acceptErrors,
		m.bytesReceived,
		m.framesDecoded,
		m.framesRejected,
		m.dispatchErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register ingest metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) acceptFailed() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) decoded(kind string) {
	if m == nil {
		return
	}
	m.framesDecoded.WithLabelValues(kind).Inc()
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.framesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) dispatchFailed() {
	if m == nil {
		return
	}
	m.dispatchErrors.Inc()
}
