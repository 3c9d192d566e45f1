package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/polyglot-providers/pkg/polyglot"
)

func TestModelSelection(t *testing.T) {
	app.clients = polyglot.New(polyglot.Config{}, nil)
	t.Cleanup(func() { app.clients = nil })

	if _, err := completionModel("volcengine", ""); !errors.Is(err, errNotConfigured) {
		t.Errorf("completionModel(volcengine) error = %v, want not configured", err)
	}
	if _, err := completionModel("openai", ""); err == nil {
		t.Error("completionModel(openai) succeeded")
	}
	if _, err := embeddingModel("tei", "", 0); err != nil {
		t.Errorf("embeddingModel(tei) error = %v", err)
	}
	if _, err := rerankModel("bailian", "", false); !errors.Is(err, errNotConfigured) {
		t.Errorf("rerankModel(bailian) error = %v, want not configured", err)
	}
	if m, err := rerankModel("tei", "", false); err != nil || m != polyglot.RerankModel(app.clients.TEI) {
		t.Errorf("rerankModel(tei) = %v, %v", m, err)
	}
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_test_total", Help: "test counter"})
	reg.MustRegister(c)
	c.Add(3)

	var buf bytes.Buffer
	if err := writeMetrics(&buf, reg); err != nil {
		t.Fatalf("writeMetrics() error = %v", err)
	}
	if !strings.Contains(buf.String(), "probe_test_total 3") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault("", "qwen3-max"); got != "qwen3-max" {
		t.Errorf("orDefault empty = %q", got)
	}
	if got := orDefault("qwen-plus", "qwen3-max"); got != "qwen-plus" {
		t.Errorf("orDefault set = %q", got)
	}
}
