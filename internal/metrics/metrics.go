package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Rita backend.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Membership metrics.
	MemberMutationsTotal *prometheus.CounterVec

	// Password reset metrics.
	ResetTokensIssuedTotal      prometheus.Counter
	ResetTokenConsumptionsTotal *prometheus.CounterVec

	// Rate limiting and auth metrics.
	RateLimitRejectionsTotal prometheus.Counter
	AuthFailuresTotal        prometheus.Counter
	AuthSuccessesTotal       prometheus.Counter

	// Live update metrics.
	SSESubscribers prometheus.Gauge

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rita_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rita_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		MemberMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rita_member_mutations_total",
			Help: "Total number of membership mutation attempts.",
		}, []string{"action", "outcome"}),

		ResetTokensIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rita_reset_tokens_issued_total",
			Help: "Total number of password reset tokens issued.",
		}),

		ResetTokenConsumptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rita_reset_token_consumptions_total",
			Help: "Total number of password reset consumption attempts.",
		}, []string{"outcome"}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rita_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}),

		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rita_auth_failures_total",
			Help: "Total number of authentication failures.",
		}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rita_auth_successes_total",
			Help: "Total number of successful authentications.",
		}),

		SSESubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rita_sse_subscribers",
			Help: "Number of currently connected SSE subscribers.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rita_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MemberMutationsTotal,
		m.ResetTokensIssuedTotal,
		m.ResetTokenConsumptionsTotal,
		m.RateLimitRejectionsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.SSESubscribers,
		m.ServerStartTime,
		collectors.NewGoCollector(),
	)

	m.ServerStartTime.SetToCurrentTime()
	return m
}

// Registry exposes the private registry for exposition handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
