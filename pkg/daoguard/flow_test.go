package daoguard

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg, WithBurstThreshold(50*time.Millisecond), WithStrictSequence())
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}
	if cfg.Validator.BurstThreshold != 50*time.Millisecond || !cfg.Validator.StrictSequence {
		t.Fatalf("expected validator overrides to apply, got %+v", cfg.Validator)
	}

	col := &stubCollector{}
	store := &stubStore{}
	j := &stubJournal{}

	rt, err := flow.
		StreamIN(
			StreamInCollector(col),
			StreamInJournal(j),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(
			StreamOutReportStore(store),
			StreamOutObservability(&stubObservability{}),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	defer rt.Close()
	rt.reportWriter = &bytes.Buffer{}

	if rt.collector != col {
		t.Fatalf("expected custom collector to be wired")
	}
	if rt.journal != j {
		t.Fatalf("expected custom journal to be wired")
	}
	if len(rt.stores) != 1 || rt.stores[0] != store {
		t.Fatalf("expected custom report store to be wired")
	}
	if rt.validator.BurstThreshold() != 50*time.Millisecond {
		t.Fatalf("expected burst threshold to reach the validator")
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg, WithFlowOptions(
		WithRegistry(prometheus.NewRegistry()),
		WithReportWriter(&bytes.Buffer{}),
		WithoutMetricsServer(),
	))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var reported int
	if err := flow.StreamIN(
		StreamInCollector(&stubCollector{}),
	).Run(ctx,
		StreamOutCallback("count", func(context.Context, Summary) error {
			reported++
			return nil
		}),
	); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
	if reported != 1 {
		t.Fatalf("expected one final report, got %d", reported)
	}
}

func TestConfLoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daoguard.yaml")
	data := "validator:\n  burst_threshold: 300ms\njournal:\n  dir: " + t.TempDir() + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flow, err := Conf(path)
	if err != nil {
		t.Fatalf("Conf returned error: %v", err)
	}
	if flow.Config().Validator.BurstThreshold != 300*time.Millisecond {
		t.Fatalf("expected burst threshold from YAML, got %s", flow.Config().Validator.BurstThreshold)
	}

	if _, err := Conf(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config")
	}
}
