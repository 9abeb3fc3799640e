// Package metrics exports transmitter metrics to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/mantx/pkg/manchester"
)

const namespace = "mantx"

// Metrics implements transmitter.Observer. Label children are resolved
// up front so observations made in tick context don't allocate.
type Metrics struct {
	transmissions *prometheus.CounterVec
	frameBytes    prometheus.Counter
	inFlight      prometheus.Gauge
	submitErrors  *prometheus.CounterVec

	completed prometheus.Counter
	aborted   prometheus.Counter
	failures  [manchester.StatusUnknown + 1]prometheus.Counter
}

// New creates Metrics and registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transmissions_total",
			Help:      "Finished transmissions by result.",
		}, []string{"result"}),
		frameBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_bytes_total",
			Help:      "Encoded bytes handed to the framer.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transmission_in_flight",
			Help:      "1 while a transmission is on the line.",
		}),
		submitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_errors_total",
			Help:      "Rejected submissions by status.",
		}, []string{"status"}),
	}
	m.completed = m.transmissions.WithLabelValues("completed")
	m.aborted = m.transmissions.WithLabelValues("aborted")
	for _, s := range []manchester.Status{
		manchester.StatusInvalidEncode,
		manchester.StatusErrorStandard,
		manchester.StatusErrorSize,
		manchester.StatusWorking,
		manchester.StatusUnknown,
	} {
		m.failures[s] = m.submitErrors.WithLabelValues(s.String())
	}
	reg.MustRegister(m.transmissions, m.frameBytes, m.inFlight, m.submitErrors)
	return m
}

// TransmissionStarted implements transmitter.Observer.
func (m *Metrics) TransmissionStarted(frameLen int) {
	m.frameBytes.Add(float64(frameLen))
	m.inFlight.Set(1)
}

// TransmissionDone implements transmitter.Observer.
func (m *Metrics) TransmissionDone(aborted bool) {
	if aborted {
		m.aborted.Inc()
	} else {
		m.completed.Inc()
	}
	m.inFlight.Set(0)
}

// SubmitFailed implements transmitter.Observer.
func (m *Metrics) SubmitFailed(s manchester.Status) {
	if int(s) >= len(m.failures) || m.failures[s] == nil {
		s = manchester.StatusUnknown
	}
	m.failures[s].Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
