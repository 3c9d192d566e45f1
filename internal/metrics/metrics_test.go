package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

func TestMetricsRegistered(t *testing.T) {
	ProviderRequestsTotal.WithLabelValues("tei", "embed", "test", "ok").Inc()
	ProviderLatency.WithLabelValues("tei", "embed", "test").Observe(0.1)
	ProviderTokensTotal.WithLabelValues("tei", "test", "input").Add(1)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"polyglot_provider_requests_total":  false,
		"polyglot_provider_latency_seconds": false,
		"polyglot_provider_tokens_total":    false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: "ok"},
		{name: "validation", err: domain.NewValidationError("empty"), want: "validation"},
		{name: "http status", err: domain.NewHTTPStatusError(500, "x"), want: "http_status"},
		{name: "foreign error", err: errors.New("boom"), want: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallFinish(t *testing.T) {
	counter := ProviderRequestsTotal.WithLabelValues("bailian", "rerank", "gte-rerank-v2", "decode")
	before := testutil.ToFloat64(counter)

	Start("bailian", "rerank", "gte-rerank-v2").Finish(domain.NewDecodeError("bad", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("request counter delta = %v, want 1", got)
	}
}

func TestRecordUsage(t *testing.T) {
	in := ProviderTokensTotal.WithLabelValues("volcengine", "doubao", "input")
	out := ProviderTokensTotal.WithLabelValues("volcengine", "doubao", "output")
	beforeIn, beforeOut := testutil.ToFloat64(in), testutil.ToFloat64(out)

	RecordUsage("volcengine", "doubao", domain.Usage{InputTokens: 12, OutputTokens: 0})

	if got := testutil.ToFloat64(in) - beforeIn; got != 12 {
		t.Errorf("input delta = %v, want 12", got)
	}
	if got := testutil.ToFloat64(out) - beforeOut; got != 0 {
		t.Errorf("output delta = %v, want 0", got)
	}
}
