package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpad_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quillpad_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			// Generation requests can span two backend attempts.
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	RateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpad_ratelimit_decisions_total",
			Help: "Rate limiter decisions by scope and outcome.",
		},
		[]string{"scope", "outcome"},
	)

	RateLimitEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quillpad_ratelimit_entries",
			Help: "Live fixed-window entries held by the in-memory rate limiter after the last sweep.",
		},
	)

	QuotaConsumptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpad_quota_consumptions_total",
			Help: "Usage quota checks by effective plan and outcome.",
		},
		[]string{"plan", "outcome"},
	)

	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpad_provider_calls_total",
			Help: "Generation backend calls by provider and outcome (success, quota, fatal).",
		},
		[]string{"provider", "outcome"},
	)

	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quillpad_provider_call_duration_seconds",
			Help:    "Generation backend call latency in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider"},
	)

	ProviderFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpad_provider_fallbacks_total",
			Help: "Times a provider was skipped after a quota-class error.",
		},
		[]string{"from"},
	)

	SubscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quillpad_subscription_transitions_total",
			Help: "Subscription lifecycle transitions by event.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimitDecisionsTotal,
		RateLimitEntries,
		QuotaConsumptionsTotal,
		ProviderCallsTotal,
		ProviderCallDuration,
		ProviderFallbacksTotal,
		SubscriptionTransitionsTotal,
	)
}
