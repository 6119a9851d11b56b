package daoguard

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/DAOGuard/internal/domain"
	base "github.com/ghalamif/DAOGuard/pkg/daoguard"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull          = base.ErrQueueFull
	ErrJournalFull        = base.ErrJournalFull
	ErrPublisherClosed    = base.ErrPublisherClosed
	ErrRuntimeClosed      = base.ErrRuntimeClosed
	ErrChannelStoreClosed = base.ErrChannelStoreClosed
)

// Verdict reasons.
const (
	ReasonFirstContact    = domain.ReasonFirstContact
	ReasonFresh           = domain.ReasonFresh
	ReasonStaleSeq        = domain.ReasonStaleSeq
	ReasonDuplicate       = domain.ReasonDuplicate
	ReasonBurst           = domain.ReasonBurst
	ReasonOriginRegressed = domain.ReasonOriginRegressed
	ReasonSeqNotAdvanced  = domain.ReasonSeqNotAdvanced
)

// Type aliases so consumers can import github.com/ghalamif/DAOGuard directly.
type (
	Config           = base.Config
	Policy           = base.Policy
	ValidatorConfig  = base.ValidatorConfig
	CollectorConfig  = base.CollectorConfig
	ReportConfig     = base.ReportConfig
	MetricsConfig    = base.MetricsConfig
	JournalConfig    = base.JournalConfig
	CheckpointConfig = base.CheckpointConfig
	LoggingConfig    = base.LoggingConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Event            = base.Event
	SenderID         = base.SenderID
	OriginTime       = base.OriginTime
	Advertisement    = base.Advertisement
	Verdict          = base.Verdict
	Reason           = base.Reason
	Summary          = base.Summary
	SenderState      = base.SenderState
	Collector        = base.Collector
	EventQueue       = base.EventQueue
	QueuedEvent      = base.QueuedEvent
	Journal          = base.Journal
	JournalStats     = base.JournalStats
	JournalEntryID   = base.JournalEntryID
	Codec            = base.Codec
	ReportStore      = base.ReportStore
	ReportFunc       = base.ReportFunc
	Checkpointer     = base.Checkpointer
	Checkpoint       = base.Checkpoint
	Observability    = base.Observability
	Field            = base.Field
	Publisher        = base.Publisher
	PublisherConfig  = base.PublisherConfig
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func WithBurstThreshold(d time.Duration) FlowOption {
	return base.WithBurstThreshold(d)
}

func WithStrictSequence() FlowOption {
	return base.WithStrictSequence()
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInQueue(q EventQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInJournal(j Journal) StreamInOption {
	return base.StreamInJournal(j)
}

func StreamInCodec(c Codec) StreamInOption {
	return base.StreamInCodec(c)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutReportStore(s ReportStore) StreamOutOption {
	return base.StreamOutReportStore(s)
}

func StreamOutCheckpointer(c Checkpointer) StreamOutOption {
	return base.StreamOutCheckpointer(c)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn ReportFunc) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCollector(col Collector) RuntimeOption {
	return base.WithCollector(col)
}

func WithReportStore(s ReportStore) RuntimeOption {
	return base.WithReportStore(s)
}

func WithJournal(j Journal) RuntimeOption {
	return base.WithJournal(j)
}

func WithEventQueue(q EventQueue) RuntimeOption {
	return base.WithEventQueue(q)
}

func WithCodec(c Codec) RuntimeOption {
	return base.WithCodec(c)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithCheckpointer(c Checkpointer) RuntimeOption {
	return base.WithCheckpointer(c)
}

func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return base.WithRegistry(reg)
}

func WithReportWriter(w io.Writer) RuntimeOption {
	return base.WithReportWriter(w)
}

func WithoutMetricsServer() RuntimeOption {
	return base.WithoutMetricsServer()
}

// Report store adapters.
func NewCallbackReportStore(name string, fn ReportFunc) ReportStore {
	return base.NewCallbackReportStore(name, fn)
}

func NewChannelReportStore(name string, buffer int) (ReportStore, <-chan Summary, func()) {
	return base.NewChannelReportStore(name, buffer)
}

// Publisher for callers that own their transport.
func NewPublisher(cfg *PublisherConfig, opts ...RuntimeOption) (*Publisher, error) {
	return base.NewPublisher(cfg, opts...)
}
