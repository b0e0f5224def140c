package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "google_auth"

// Login outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the collectors for the login flow and session store. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	logins          *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	exchangeSeconds prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Completed OAuth callbacks by result and failure reason.",
		}, []string{"result", "reason"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created after a successful callback.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions removed, by cause.",
		}, []string{"cause"}),
		exchangeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_exchange_seconds",
			Help:      "Duration of the code exchange and profile fetch against the provider.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(m.logins, m.sessionsCreated, m.sessionsEnded, m.exchangeSeconds)
	reg.MustRegister(collectors.NewGoCollector())
	return m
}

func (m *Metrics) LoginSucceeded() {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(ResultSuccess, "").Inc()
	m.sessionsCreated.Inc()
}

func (m *Metrics) LoginFailed(reason string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(ResultFailure, reason).Inc()
}

func (m *Metrics) SessionsEnded(cause string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsEnded.WithLabelValues(cause).Add(float64(n))
}

func (m *Metrics) ObserveExchange(seconds float64) {
	if m == nil {
		return
	}
	m.exchangeSeconds.Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
