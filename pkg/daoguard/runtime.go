package daoguard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/DAOGuard/internal/adapters/checkpoint"
	"github.com/ghalamif/DAOGuard/internal/adapters/codec"
	"github.com/ghalamif/DAOGuard/internal/adapters/journal"
	"github.com/ghalamif/DAOGuard/internal/adapters/observability"
	"github.com/ghalamif/DAOGuard/internal/adapters/queue"
	"github.com/ghalamif/DAOGuard/internal/adapters/reportstore"
	"github.com/ghalamif/DAOGuard/internal/adapters/udp"
	"github.com/ghalamif/DAOGuard/internal/app/dispatch"
	"github.com/ghalamif/DAOGuard/internal/app/freshness"
	"github.com/ghalamif/DAOGuard/internal/app/metrics"
	"github.com/ghalamif/DAOGuard/internal/app/pipeline"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// ErrRuntimeClosed is returned by Start and Deliver after Shutdown.
var ErrRuntimeClosed = errors.New("daoguard: runtime closed")

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     Collector
	stores        []ReportStore
	journal       Journal
	queue         EventQueue
	codec         Codec
	observability Observability
	checkpointer  Checkpointer
	registry      *prometheus.Registry
	reportWriter  io.Writer
	noMetricsSrv  bool
}

// WithCollector injects a custom collector implementation (simulators, other transports).
func WithCollector(col Collector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithReportStore adds a report store. Once any store is given, the
// configured CSV and PostgreSQL stores are not created.
func WithReportStore(s ReportStore) RuntimeOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.stores = append(o.stores, s)
		}
	}
}

// WithJournal lets callers bring their own journal implementation.
func WithJournal(j Journal) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithEventQueue injects a custom queue implementation.
func WithEventQueue(q EventQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithCodec replaces the text DAO codec.
func WithCodec(c Codec) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.codec = c
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithCheckpointer overrides the Redis checkpointer built from config.
func WithCheckpointer(c Checkpointer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.checkpointer = c
	}
}

// WithRegistry registers metrics on reg and serves it on /metrics instead of
// the process-wide default registry.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// WithReportWriter sets where the final console summary is printed.
// Defaults to stdout.
func WithReportWriter(w io.Writer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.reportWriter = w
	}
}

// WithoutMetricsServer skips the /metrics and /healthz HTTP server.
func WithoutMetricsServer() RuntimeOption {
	return func(o *runtimeOverrides) {
		o.noMetricsSrv = true
	}
}

// Runtime wires up the collector → journal → queue → dispatcher pipeline,
// exports reports and checkpoints, and exposes lifecycle hooks for
// embedding DAOGuard inside any Go service.
type Runtime struct {
	cfg    *Config
	policy ports.Policy
	runID  uuid.UUID

	obs          ports.Observability
	journal      ports.Journal
	queue        ports.EventQueue
	collector    ports.Collector
	validator    *freshness.Validator
	recorder     *metrics.Recorder
	dispatcher   *dispatch.Dispatcher
	stores       reportstore.Multi
	checkpointer ports.Checkpointer

	db           *sql.DB
	logCloser    io.Closer
	registry     *prometheus.Registry
	reportWriter io.Writer
	noMetricsSrv bool
	metricsSrv   *http.Server

	admitter *pipeline.Admitter
	// admitMu is held for reading by Deliver for its whole admission and
	// for writing while shutdown marks the runtime closed.
	admitMu sync.RWMutex

	mu           sync.Mutex
	started      bool
	closed       bool
	cancel       context.CancelFunc
	collectDone  <-chan struct{}
	dispatchDone chan struct{}
	bg           sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewRuntime bootstraps the default adapters (UDP collector, file journal,
// in-memory queue, CSV and optional PostgreSQL report stores, optional Redis
// checkpointer, Prometheus observability). RuntimeOption values override any
// of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	rt := &Runtime{
		cfg:          cfg,
		policy:       cfg.Policy,
		runID:        uuid.New(),
		registry:     overrides.registry,
		reportWriter: overrides.reportWriter,
		noMetricsSrv: overrides.noMetricsSrv,
	}
	if rt.reportWriter == nil {
		rt.reportWriter = os.Stdout
	}

	if err := rt.build(overrides); err != nil {
		rt.releaseResources()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) build(overrides runtimeOverrides) error {
	cfg := rt.cfg

	rt.obs = overrides.observability
	if rt.obs == nil {
		logger, closer, err := observability.NewLogger(cfg.Logging.LogConfig, os.Stderr)
		if err != nil {
			return err
		}
		rt.logCloser = closer
		var reg prometheus.Registerer
		if rt.registry != nil {
			reg = rt.registry
		}
		rt.obs = observability.NewPromObs(reg, logger.With(slog.String("run_id", rt.runID.String())))
	}

	var err error
	rt.journal = overrides.journal
	if rt.journal == nil {
		if rt.journal, err = journal.NewFileJournal(cfg.Journal.Dir); err != nil {
			return err
		}
	}

	rt.queue = overrides.queue
	if rt.queue == nil {
		rt.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	rt.admitter = pipeline.NewAdmitter(rt.journal, rt.queue, rt.policy, rt.obs)

	if _, err := pipeline.ReplayJournal(context.Background(), rt.journal, rt.queue, rt.policy, rt.obs); err != nil {
		return fmt.Errorf("journal replay: %w", err)
	}

	rt.collector = overrides.collector
	if rt.collector == nil {
		if rt.collector, err = udp.NewCollector(cfg.Collector); err != nil {
			return err
		}
	}

	if len(overrides.stores) > 0 {
		rt.stores = reportstore.Multi(overrides.stores)
	} else if err := rt.buildStores(); err != nil {
		return err
	}

	rt.checkpointer = overrides.checkpointer
	if rt.checkpointer == nil && cfg.Checkpoint.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rt.checkpointer, err = checkpoint.NewRedisCheckpointer(ctx, cfg.Checkpoint.RedisURL, cfg.Checkpoint.KeyPrefix)
		cancel()
		if err != nil {
			return err
		}
	}

	c := overrides.codec
	if c == nil {
		c = codec.Text{}
	}
	rt.validator = freshness.NewValidator(cfg.Validator)
	rt.recorder = metrics.NewRecorder()
	rt.dispatcher = dispatch.New(c, rt.validator, rt.recorder, rt.obs,
		dispatch.WithLogSuppression(cfg.Logging.SuppressWindow))

	return rt.restore()
}

func (rt *Runtime) buildStores() error {
	cfg := rt.cfg
	if cfg.Report.CSVPath != "" {
		rt.stores = append(rt.stores, reportstore.NewCSVStore(cfg.Report.CSVPath))
	}
	if cfg.Report.PostgresConn == "" {
		return nil
	}

	db, err := sql.Open("postgres", cfg.Report.PostgresConn)
	if err != nil {
		return err
	}
	rt.db = db
	pg, err := reportstore.NewPostgresStore(db, cfg.Report.Table, rt.runID)
	if err != nil {
		return err
	}
	rt.stores = append(rt.stores, pg)
	return nil
}

func (rt *Runtime) restore() error {
	if rt.checkpointer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cp, err := rt.checkpointer.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		return nil
	}
	n := rt.validator.Restore(cp.Senders)
	rt.obs.LogInfo("checkpoint_restored",
		ports.Field{Key: "senders", Value: n},
		ports.Field{Key: "taken_at", Value: cp.TakenAt})
	return nil
}

// RunID identifies this runtime's rows in the PostgreSQL report table.
func (rt *Runtime) RunID() uuid.UUID { return rt.runID }

// Start begins the collect and dispatch pipelines and launches the
// observability, report and checkpoint loops. It returns immediately; call
// Run to block on a context instead.
func (rt *Runtime) Start() error {
	if rt == nil {
		return fmt.Errorf("runtime is nil")
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return ErrRuntimeClosed
	}
	if rt.started {
		return fmt.Errorf("runtime already started")
	}

	if err := rt.ensureTables(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	collectDone, err := pipeline.RunCollectPipeline(ctx, rt.collector, rt.admitter)
	if err != nil {
		cancel()
		return err
	}
	rt.cancel = cancel
	rt.collectDone = collectDone

	rt.dispatchDone = make(chan struct{})
	go func() {
		defer close(rt.dispatchDone)
		pipeline.RunDispatchPipeline(ctx, rt.journal, rt.queue, rt.dispatcher, rt.policy, rt.obs)
	}()

	if !rt.noMetricsSrv {
		rt.startMetrics()
	}
	rt.goEvery(ctx, time.Second, rt.recordGauges)
	if rt.cfg.Report.Interval > 0 {
		rt.goEvery(ctx, rt.cfg.Report.Interval, rt.exportReport)
	}
	if rt.checkpointer != nil && rt.cfg.Checkpoint.Interval > 0 {
		rt.goEvery(ctx, rt.cfg.Checkpoint.Interval, rt.saveCheckpoint)
	}

	rt.started = true
	rt.obs.LogInfo("runtime_started",
		ports.Field{Key: "stores", Value: rt.stores.Name()},
		ports.Field{Key: "burst_threshold", Value: rt.validator.BurstThreshold().String()})
	return nil
}

func (rt *Runtime) ensureTables() error {
	type tableMaker interface {
		EnsureTable(ctx context.Context) error
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, s := range rt.stores {
		if tm, ok := s.(tableMaker); ok {
			if err := tm.EnsureTable(ctx); err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
		}
	}
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Deliver journals and queues one event for dispatch, as if the collector
// had received it. Shutdown waits for Deliver calls already in progress.
func (rt *Runtime) Deliver(ctx context.Context, ev Event) error {
	rt.admitMu.RLock()
	defer rt.admitMu.RUnlock()

	rt.mu.Lock()
	closed := rt.closed
	rt.mu.Unlock()
	if closed {
		return ErrRuntimeClosed
	}
	return rt.admitter.Admit(ctx, &ev)
}

// Report returns the current summary. It is safe to call at any time.
func (rt *Runtime) Report() Summary {
	return rt.dispatcher.Report()
}

// SenderState returns what the validator remembers about sender.
func (rt *Runtime) SenderState(sender SenderID) (SenderState, bool) {
	return rt.validator.State(sender)
}

// Close shuts down with a default timeout.
func (rt *Runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(ctx)
}

// Shutdown stops the collector, drains the queue, writes the final report to
// every store and the report writer, saves a checkpoint and releases every
// resource. Only the first call does any work; later calls return its result.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.closeOnce.Do(func() {
		rt.closeErr = rt.shutdown(ctx)
	})
	return rt.closeErr
}

func (rt *Runtime) shutdown(ctx context.Context) error {
	var errs []error

	rt.admitMu.Lock()
	rt.mu.Lock()
	rt.closed = true
	started := rt.started
	rt.mu.Unlock()
	rt.admitMu.Unlock()

	if started {
		if err := rt.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
		rt.cancel()
		<-rt.collectDone
		<-rt.dispatchDone
		rt.bg.Wait()

		if rt.metricsSrv != nil {
			if err := rt.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
		}

		for pipeline.DrainOnce(rt.journal, rt.queue, rt.dispatcher, rt.policy, rt.obs) {
		}

		if rt.checkpointer != nil {
			rt.saveCheckpoint(ctx)
		}
	}

	summary := rt.recorder.Report()
	if err := rt.appendReport(ctx, summary); err != nil {
		errs = append(errs, err)
	}
	if _, err := io.WriteString(rt.reportWriter, summary.String()); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, rt.releaseResources())
	return errors.Join(errs...)
}

func (rt *Runtime) releaseResources() error {
	var errs []error
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.checkpointer != nil {
		if err := rt.checkpointer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.logCloser != nil {
		if err := rt.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (rt *Runtime) appendReport(ctx context.Context, s Summary) error {
	if len(rt.stores) == 0 {
		return nil
	}
	if err := rt.stores.Append(ctx, s); err != nil {
		rt.obs.IncCounter(observability.MetricReportFailures, 1)
		rt.obs.LogError("report_export_failed", err, ports.Field{Key: "stores", Value: rt.stores.Name()})
		return err
	}
	rt.obs.IncCounter(observability.MetricReportsExported, 1)
	return nil
}

func (rt *Runtime) exportReport(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = rt.appendReport(ctx, rt.recorder.Report())
}

func (rt *Runtime) saveCheckpoint(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	start := time.Now()
	cp := ports.Checkpoint{
		Senders: rt.validator.Snapshot(),
		Summary: rt.recorder.Report(),
		TakenAt: start.UTC(),
	}
	if err := rt.checkpointer.Save(ctx, cp); err != nil {
		rt.obs.LogError("checkpoint_save_failed", err)
		return
	}
	rt.obs.ObserveLatency(observability.MetricCheckpointLatency, time.Since(start).Seconds())
}

func (rt *Runtime) goEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	rt.bg.Add(1)
	go func() {
		defer rt.bg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

func (rt *Runtime) startMetrics() {
	handler := promhttp.Handler()
	if rt.registry != nil {
		handler = promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rt.metricsSrv = &http.Server{
		Addr:              rt.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := rt.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.obs.LogError("metrics_server_exited", err)
		}
	}()
}

func (rt *Runtime) recordGauges(context.Context) {
	stats := rt.journal.Stats()
	rt.obs.SetGauge(observability.MetricJournalSize, float64(stats.SizeBytes))
	rt.obs.SetGauge(observability.MetricQueueLength, float64(rt.queue.Len()))
	rt.obs.SetGauge(observability.MetricTrackedSenders, float64(len(rt.validator.Snapshot())))
}
