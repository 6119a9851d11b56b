package observability

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

const (
	MetricAdvertisements    = "daoguard_advertisements_total"
	MetricRejections        = "daoguard_rejections_total"
	MetricDecodeFailures    = "daoguard_decode_failures_total"
	MetricQueueDropped      = "daoguard_queue_dropped_total"
	MetricJournalDropped    = "daoguard_journal_dropped_total"
	MetricReportsExported   = "daoguard_reports_exported_total"
	MetricReportFailures    = "daoguard_report_failures_total"
	MetricJournalSize       = "daoguard_journal_size_bytes"
	MetricQueueLength       = "daoguard_queue_length"
	MetricTrackedSenders    = "daoguard_tracked_senders"
	MetricDispatchLatency   = "daoguard_dispatch_batch_seconds"
	MetricCheckpointLatency = "daoguard_checkpoint_seconds"
)

// PromObs logs through slog and exports counters to Prometheus.
type PromObs struct {
	log *slog.Logger

	verdicts   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histos     map[string]prometheus.Observer
}

// NewPromObs registers the collector metrics on reg (the default registerer
// when nil). Metrics already registered there by an earlier PromObs are
// reused, so several runtimes in one process share them.
func NewPromObs(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricAdvertisements,
		Help: "Decoded advertisements by verdict.",
	}, []string{"verdict"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricRejections,
		Help: "Rejected advertisements by freshness rule.",
	}, []string{"reason"})

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	decode := counter(MetricDecodeFailures, "Payloads dropped because they could not be decoded.")
	queueDrops := counter(MetricQueueDropped, "Events lost due to queue backpressure policies.")
	journalDrops := counter(MetricJournalDropped, "Events lost because the journal was full.")
	exported := counter(MetricReportsExported, "Summary rows appended to report stores.")
	exportFailures := counter(MetricReportFailures, "Report store appends that failed.")

	journalSize := gauge(MetricJournalSize, "Size of the event journal on disk.")
	queueLen := gauge(MetricQueueLength, "Events waiting for dispatch.")
	senders := gauge(MetricTrackedSenders, "Senders with freshness state.")

	dispatch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricDispatchLatency,
		Help:    "Time to dispatch one dequeued batch.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
	checkpoint := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricCheckpointLatency,
		Help:    "Time to persist one checkpoint.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	verdicts = register(reg, verdicts)
	rejections = register(reg, rejections)
	decode = register(reg, decode)
	queueDrops = register(reg, queueDrops)
	journalDrops = register(reg, journalDrops)
	exported = register(reg, exported)
	exportFailures = register(reg, exportFailures)
	journalSize = register(reg, journalSize)
	queueLen = register(reg, queueLen)
	senders = register(reg, senders)
	dispatch = register(reg, dispatch)
	checkpoint = register(reg, checkpoint)

	return &PromObs{
		log:        logger,
		verdicts:   verdicts,
		rejections: rejections,
		counters: map[string]prometheus.Counter{
			MetricDecodeFailures:  decode,
			MetricQueueDropped:    queueDrops,
			MetricJournalDropped:  journalDrops,
			MetricReportsExported: exported,
			MetricReportFailures:  exportFailures,
		},
		gauges: map[string]prometheus.Gauge{
			MetricJournalSize:    journalSize,
			MetricQueueLength:    queueLen,
			MetricTrackedSenders: senders,
		},
		histos: map[string]prometheus.Observer{
			MetricDispatchLatency:   dispatch,
			MetricCheckpointLatency: checkpoint,
		},
	}
}

// register adds c to reg, or returns the collector already registered under
// the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) { p.log.Debug(msg, attrs(fields)...) }
func (p *PromObs) LogInfo(msg string, fields ...ports.Field)  { p.log.Info(msg, attrs(fields)...) }
func (p *PromObs) LogWarn(msg string, fields ...ports.Field)  { p.log.Warn(msg, attrs(fields)...) }

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("error", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("error", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordVerdict(_ domain.SenderID, v domain.Verdict) {
	if v.Accepted {
		p.verdicts.WithLabelValues("accepted").Inc()
		return
	}
	p.verdicts.WithLabelValues("rejected").Inc()
	p.rejections.WithLabelValues(string(v.Reason)).Inc()
}

func (p *PromObs) RecordDecodeFailure(_ *domain.Event, _ error) {
	p.IncCounter(MetricDecodeFailures, 1)
}

var _ ports.Observability = (*PromObs)(nil)
