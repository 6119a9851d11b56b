package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/DAOGuard/internal/adapters/observability"
	"github.com/ghalamif/DAOGuard/internal/adapters/udp"
	"github.com/ghalamif/DAOGuard/internal/app/freshness"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

type Config struct {
	Policy     ports.Policy     `yaml:"policy"`
	Validator  freshness.Config `yaml:"validator"`
	Collector  udp.Config       `yaml:"collector"`
	Report     ReportConfig     `yaml:"report"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Journal    JournalConfig    `yaml:"journal"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ReportConfig struct {
	CSVPath      string `yaml:"csv_path"`
	PostgresConn string `yaml:"postgres_conn"`
	Table        string `yaml:"table"`
	// Interval between checkpoint reports while running. Zero means only
	// the final report on shutdown is written.
	Interval time.Duration `yaml:"interval"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Dir string `yaml:"dir"`
}

type CheckpointConfig struct {
	RedisURL  string        `yaml:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix"`
	Interval  time.Duration `yaml:"interval"`
}

type LoggingConfig struct {
	observability.LogConfig `yaml:",inline"`
	SuppressWindow          time.Duration `yaml:"suppress_window"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.MaxJournalSizeBytes == 0 {
		c.Policy.MaxJournalSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnJournalFull == "" {
		c.Policy.OnJournalFull = "block"
	}
	if c.Validator.BurstThreshold == 0 {
		c.Validator.BurstThreshold = freshness.DefaultBurstThreshold
	}
	if c.Report.CSVPath == "" {
		c.Report.CSVPath = "dao_metrics.csv"
	}
	if c.Report.Table == "" {
		c.Report.Table = "dao_reports"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}
	if c.Checkpoint.KeyPrefix == "" {
		c.Checkpoint.KeyPrefix = "daoguard"
	}
	if c.Checkpoint.Interval == 0 {
		c.Checkpoint.Interval = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.SuppressWindow == 0 {
		c.Logging.SuppressWindow = time.Second
	}

	c.Collector.ApplyDefaults()
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Policy.MaxQueueLen <= 0 {
		errs = append(errs, errors.New("policy.max_queue_len must be positive"))
	}
	if c.Policy.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("policy.max_batch_size must be positive"))
	}
	if c.Policy.MaxJournalSizeBytes < 0 {
		errs = append(errs, errors.New("policy.max_journal_size_bytes must not be negative"))
	}
	switch c.Policy.OnJournalFull {
	case "block", "drop":
	default:
		errs = append(errs, fmt.Errorf("policy.on_journal_full: unknown policy %q", c.Policy.OnJournalFull))
	}
	switch c.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		errs = append(errs, fmt.Errorf("policy.on_queue_full: unknown policy %q", c.Policy.OnQueueFull))
	}
	if c.Validator.BurstThreshold < 0 {
		errs = append(errs, errors.New("validator.burst_threshold must not be negative"))
	}
	if err := c.Collector.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("collector: %w", err))
	}
	if c.Report.Interval < 0 {
		errs = append(errs, errors.New("report.interval must not be negative"))
	}
	if c.Checkpoint.Interval < 0 {
		errs = append(errs, errors.New("checkpoint.interval must not be negative"))
	}
	if c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required"))
	}
	if c.Journal.Dir == "" {
		errs = append(errs, errors.New("journal.dir is required"))
	}
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.SuppressWindow < 0 {
		errs = append(errs, errors.New("logging.suppress_window must not be negative"))
	}
	return errors.Join(errs...)
}
