package reportstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghalamif/DAOGuard/internal/domain"
)

func TestCSVStoreAppendsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dao_metrics.csv")
	store := NewCSVStore(path)

	first := domain.Summary{Total: 100, Accepted: 80, Rejected: 20, RejectRatioPercent: 20, AvgInterArrivalSeconds: 0.25}
	second := domain.Summary{}

	if err := store.Append(context.Background(), first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := store.Append(context.Background(), second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := "100,80,20,20.00,0.25\n0,0,0,0.00,0\n"
	if string(data) != want {
		t.Fatalf("unexpected csv contents:\n%q\nwant\n%q", data, want)
	}
}

func TestCSVStoreDefaultPath(t *testing.T) {
	if got := NewCSVStore("").Path(); got != DefaultCSVPath {
		t.Fatalf("expected default path %s, got %s", DefaultCSVPath, got)
	}
}

func TestCSVStoreHonoursCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dao_metrics.csv")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewCSVStore(path).Append(ctx, domain.Summary{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file to be created, stat err=%v", err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Name() string { return "failing" }
func (f failingStore) Append(context.Context, domain.Summary) error {
	return f.err
}

func TestMultiAppendsToAllStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dao_metrics.csv")
	boom := errors.New("boom")
	m := Multi{failingStore{err: boom}, NewCSVStore(path)}

	err := m.Append(context.Background(), domain.Summary{Total: 1, Accepted: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("csv store should still have been written: %v", statErr)
	}
	if m.Name() != "failing+csv" {
		t.Fatalf("unexpected name %s", m.Name())
	}
}
