// Package metrics holds the Prometheus collectors for provider calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

// LLMBuckets covers provider latencies from 50ms to 120s.
var LLMBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ProviderRequestsTotal counts provider calls by outcome. status is "ok" or
	// the error kind.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "operation", "model", "status"},
	)

	// ProviderLatency records provider call latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "operation", "model"},
	)

	// ProviderTokensTotal counts tokens by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
	)
}

// Status returns the status label for a call result.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// Call is an in-flight provider call. Finish it exactly once.
type Call struct {
	provider  string
	operation string
	model     string
	start     time.Time
}

// Start begins timing a call.
func Start(provider, operation, model string) *Call {
	return &Call{provider: provider, operation: operation, model: model, start: time.Now()}
}

// Finish records the call outcome and latency.
func (c *Call) Finish(err error) {
	ProviderRequestsTotal.WithLabelValues(c.provider, c.operation, c.model, Status(err)).Inc()
	ProviderLatency.WithLabelValues(c.provider, c.operation, c.model).Observe(time.Since(c.start).Seconds())
}

// RecordUsage adds token usage to the token counters.
func RecordUsage(provider, model string, usage domain.Usage) {
	if usage.InputTokens > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(usage.OutputTokens))
	}
}
