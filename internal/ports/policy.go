package ports

import "time"

type Policy struct {
	MaxJournalSizeBytes int64         `yaml:"max_journal_size_bytes"`
	MaxQueueLen         int           `yaml:"max_queue_len"`
	MaxBatchSize        int           `yaml:"max_batch_size"`
	IdleSleep           time.Duration `yaml:"idle_sleep"`

	OnJournalFull string `yaml:"on_journal_full"` // "block", "drop"
	OnQueueFull   string `yaml:"on_queue_full"`   // "block", "drop", "reject"
}
