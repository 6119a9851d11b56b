package daoguard

import (
	"context"
	"fmt"
	"time"
)

// Flow is a convenience builder that lets callers say Conf → StreamIN → StreamOUT
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the collector/journal/queue side of the pipeline.
type StreamInOption func(*Flow)

// StreamOutOption configures the report/checkpoint/observability side of the pipeline.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw RuntimeOption values to the builder for advanced scenarios.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records collector-side overrides (collector, journal, queue, codec).
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records report-side overrides and builds a Runtime ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// WithBurstThreshold overrides validator.burst_threshold.
func WithBurstThreshold(d time.Duration) FlowOption {
	return func(f *Flow) {
		if f != nil && d > 0 {
			f.cfg.Validator.BurstThreshold = d
		}
	}
}

// WithStrictSequence turns on rejection of reused sequence numbers.
func WithStrictSequence() FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.cfg.Validator.StrictSequence = true
		}
	}
}

// StreamInCollector injects a custom collector (simulators, other transports).
func StreamInCollector(col Collector) StreamInOption {
	return func(f *Flow) {
		if f != nil && col != nil {
			f.appendOptions(WithCollector(col))
		}
	}
}

// StreamInQueue swaps the in-memory queue for a caller-provided implementation.
func StreamInQueue(q EventQueue) StreamInOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithEventQueue(q))
		}
	}
}

// StreamInJournal lets callers bring their own journal implementation.
func StreamInJournal(j Journal) StreamInOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithJournal(j))
		}
	}
}

// StreamInCodec replaces the text DAO codec.
func StreamInCodec(c Codec) StreamInOption {
	return func(f *Flow) {
		if f != nil && c != nil {
			f.appendOptions(WithCodec(c))
		}
	}
}

// StreamInObservability overrides the default Prometheus-based observability stack.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutReportStore adds a report store.
func StreamOutReportStore(s ReportStore) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithReportStore(s))
		}
	}
}

// StreamOutCheckpointer overrides the Redis checkpointer.
func StreamOutCheckpointer(c Checkpointer) StreamOutOption {
	return func(f *Flow) {
		if f != nil && c != nil {
			f.appendOptions(WithCheckpointer(c))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback installs a report store built from a simple callback function.
func StreamOutCallback(name string, fn ReportFunc) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithReportStore(NewCallbackReportStore(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
