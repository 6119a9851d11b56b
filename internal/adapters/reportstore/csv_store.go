package reportstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// DefaultCSVPath is where summaries are appended when nothing else is set.
const DefaultCSVPath = "dao_metrics.csv"

// CSVStore appends one headerless row per summary:
// total,accepted,rejected,reject_ratio_percent,avg_inter_arrival_seconds.
// The file is created on first append.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

func NewCSVStore(path string) *CSVStore {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVStore{path: path}
}

func (s *CSVStore) Name() string { return "csv" }

func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) Append(ctx context.Context, sum domain.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening report file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(sum.Record()); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing report row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flushing csv writer: %w", err)
	}
	return f.Close()
}

var _ ports.ReportStore = (*CSVStore)(nil)
