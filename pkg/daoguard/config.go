package daoguard

import (
	"github.com/ghalamif/DAOGuard/internal/adapters/udp"
	"github.com/ghalamif/DAOGuard/internal/app/config"
	"github.com/ghalamif/DAOGuard/internal/app/freshness"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls journal/queue thresholds.
	Policy = ports.Policy
	// ValidatorConfig holds the burst threshold and sequence strictness.
	ValidatorConfig = freshness.Config
	// CollectorConfig configures the UDP listener.
	CollectorConfig = udp.Config
	// ReportConfig configures the CSV and PostgreSQL report stores.
	ReportConfig = config.ReportConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// JournalConfig configures on-disk durability.
	JournalConfig = config.JournalConfig
	// CheckpointConfig configures the Redis checkpointer.
	CheckpointConfig = config.CheckpointConfig
	// LoggingConfig configures slog output.
	LoggingConfig = config.LoggingConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
