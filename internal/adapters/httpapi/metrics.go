package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds session endpoint Prometheus metrics.
type Metrics struct {
	SessionsTotal    *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
	RateLimitedTotal prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatkit_broker_sessions_total",
			Help: "Session requests by outcome.",
		}, []string{"outcome", "status"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatkit_broker_session_duration_seconds",
			Help:    "Session request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		RateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "chatkit_broker_rate_limited_total",
			Help: "Session requests rejected by rate limiting.",
		}),
	}
}

func (m *Metrics) observe(outcome string, status string, seconds float64) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(outcome, status).Inc()
	m.SessionDuration.Observe(seconds)
}

func (m *Metrics) rateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
