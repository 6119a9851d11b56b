package daoguard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/DAOGuard/internal/app/pipeline"
	"github.com/ghalamif/DAOGuard/internal/domain"
)

// ErrQueueFull indicates the in-memory queue rejected the event according to policy.
var ErrQueueFull = pipeline.ErrQueueFull

// ErrJournalFull indicates the journal is at capacity and OnJournalFull != "block".
var ErrJournalFull = pipeline.ErrJournalFull

// ErrPublisherClosed is returned by Deliver after Close.
var ErrPublisherClosed = errors.New("daoguard: publisher closed")

// PublisherConfig configures the journal-backed publisher used by callers
// that own their transport.
type PublisherConfig struct {
	Policy    Policy
	Journal   JournalConfig
	Validator ValidatorConfig
	Report    ReportConfig
	Logging   LoggingConfig
}

func (c *PublisherConfig) toConfig() *Config {
	cfg := DefaultConfig()
	if c.Policy != (Policy{}) {
		cfg.Policy = c.Policy
	}
	if c.Journal.Dir == "" {
		cfg.Journal.Dir = "./data/daoguard-journal"
	} else {
		cfg.Journal = c.Journal
	}
	if c.Validator.BurstThreshold != 0 {
		cfg.Validator.BurstThreshold = c.Validator.BurstThreshold
	}
	cfg.Validator.StrictSequence = c.Validator.StrictSequence
	if c.Report.CSVPath != "" {
		cfg.Report.CSVPath = c.Report.CSVPath
	}
	cfg.Report.PostgresConn = c.Report.PostgresConn
	if c.Report.Table != "" {
		cfg.Report.Table = c.Report.Table
	}
	cfg.Report.Interval = c.Report.Interval
	if c.Logging.Level != "" {
		cfg.Logging.Level = c.Logging.Level
	}
	cfg.Logging.File = c.Logging.File
	if c.Logging.SuppressWindow != 0 {
		cfg.Logging.SuppressWindow = c.Logging.SuppressWindow
	}
	return cfg
}

// Publisher exposes the journal → queue → dispatcher pipeline to callers
// that receive advertisements themselves. It runs without a socket or a
// metrics server.
type Publisher struct {
	rt *Runtime

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	err    error
}

// NewPublisher starts a runtime with no collector. Its metrics go to a
// private registry unless WithRegistry is passed. Options are applied after
// the publisher's own, so callers can still inject stores, observability or
// a checkpointer.
func NewPublisher(cfg *PublisherConfig, opts ...RuntimeOption) (*Publisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	full := cfg.toConfig()
	if err := full.Validate(); err != nil {
		return nil, err
	}

	all := append([]RuntimeOption{
		WithCollector(nopCollector{}),
		WithoutMetricsServer(),
		WithRegistry(prometheus.NewRegistry()),
	}, opts...)
	rt, err := NewRuntime(full, all...)
	if err != nil {
		return nil, err
	}
	if err := rt.Start(); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return &Publisher{rt: rt}, nil
}

// Deliver hands one payload to the pipeline. The verdict is reached
// asynchronously; Report reflects it once dispatched.
func (p *Publisher) Deliver(ctx context.Context, sender SenderID, payload []byte, arrival time.Time) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if arrival.IsZero() {
		arrival = time.Now()
	}
	ev := domain.Event{
		Sender:  sender,
		Payload: append([]byte(nil), payload...),
		Arrival: arrival,
	}
	return p.rt.Deliver(ctx, ev)
}

// Report returns the current summary.
func (p *Publisher) Report() Summary {
	return p.rt.Report()
}

// Runtime exposes the underlying runtime.
func (p *Publisher) Runtime() *Runtime {
	return p.rt
}

// Close drains queued events, writes the final report and releases the
// journal. Later calls return the first call's result.
func (p *Publisher) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.err = p.rt.Shutdown(ctx)
	})
	return p.err
}

type nopCollector struct{}

func (nopCollector) Start(chan<- *domain.Event) error { return nil }
func (nopCollector) Stop() error                      { return nil }
