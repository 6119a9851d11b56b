package reportstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/ghalamif/DAOGuard/internal/domain"
)

func TestPostgresStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	runID := uuid.MustParse("2f1c7a52-6f0e-4c55-9d1a-0c1d3d4b8e11")
	store, err := NewPostgresStore(db, "dao_reports", runID)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return ts }

	expectedQuery := regexp.QuoteMeta("INSERT INTO dao_reports (run_id, recorded_at, total, accepted, rejected, reject_ratio_percent, avg_inter_arrival_seconds) VALUES ($1,$2,$3,$4,$5,$6,$7)")
	mock.ExpectExec(expectedQuery).
		WithArgs(runID.String(), ts, int64(100), int64(80), int64(20), "20.00", 1.5).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := domain.Summary{Total: 100, Accepted: 80, Rejected: 20, RejectRatioPercent: 20, AvgInterArrivalSeconds: 1.5}
	if err := store.Append(context.Background(), s); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreEnsureTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store, err := NewPostgresStore(db, "metrics.dao_reports", uuid.New())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS metrics.dao_reports")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreRejectsBadTableName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	for _, table := range []string{"", "reports; DROP TABLE x", "1table", "a.b.c"} {
		if _, err := NewPostgresStore(db, table, uuid.New()); err == nil {
			t.Fatalf("expected error for table %q", table)
		}
	}
}

func TestPostgresStoreName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	store, _ := NewPostgresStore(db, "dao_reports", uuid.New())
	if store.Name() != "postgres" {
		t.Fatalf("expected store name postgres, got %s", store.Name())
	}
}
