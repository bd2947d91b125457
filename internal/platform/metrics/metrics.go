package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	bookingsConfirmed prometheus.Counter
	offlineFallbacks  *prometheus.CounterVec
	reconciled        prometheus.Counter
	assistantRequests *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		bookingsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peraluna",
			Name:      "bookings_confirmed_total",
			Help:      "Planned items confirmed with a booking reference.",
		}),
		offlineFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peraluna",
			Name:      "offline_fallbacks_total",
			Help:      "Operations served from the local working set because the trip store was unavailable.",
		}, []string{"op"}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peraluna",
			Name:      "trips_reconciled_total",
			Help:      "Offline trip changes pushed back to the trip store.",
		}),
		assistantRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peraluna",
			Name:      "assistant_requests_total",
			Help:      "Assistant chat requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.bookingsConfirmed,
		m.offlineFallbacks,
		m.reconciled,
		m.assistantRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) BookingsConfirmed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bookingsConfirmed.Add(float64(n))
}

func (m *Metrics) OfflineFallback(op string) {
	if m == nil {
		return
	}
	m.offlineFallbacks.WithLabelValues(op).Inc()
}

func (m *Metrics) Reconciled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reconciled.Add(float64(n))
}

// AssistantRequest records one chat request; outcome is "ok", "fallback" or "error".
func (m *Metrics) AssistantRequest(outcome string) {
	if m == nil {
		return
	}
	m.assistantRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
