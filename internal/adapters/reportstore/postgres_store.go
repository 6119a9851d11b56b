package reportstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresStore appends summaries to a table. Every row carries the run id
// of the collector that produced it, so checkpoints of one run can be told
// apart from the next.
type PostgresStore struct {
	db        *sql.DB
	tableName string
	runID     uuid.UUID
	now       func() time.Time
}

func NewPostgresStore(db *sql.DB, table string, runID uuid.UUID) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres report store: db is nil")
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("postgres report store: invalid table name %q", table)
	}
	return &PostgresStore{db: db, tableName: table, runID: runID, now: time.Now}, nil
}

func (p *PostgresStore) Name() string { return "postgres" }

// EnsureTable creates the report table when it does not exist yet.
func (p *PostgresStore) EnsureTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+p.tableName+` (
	run_id UUID NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	total BIGINT NOT NULL,
	accepted BIGINT NOT NULL,
	rejected BIGINT NOT NULL,
	reject_ratio_percent NUMERIC(6,2) NOT NULL,
	avg_inter_arrival_seconds DOUBLE PRECISION NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create report table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Append(ctx context.Context, s domain.Summary) error {
	query := "INSERT INTO " + p.tableName +
		" (run_id, recorded_at, total, accepted, rejected, reject_ratio_percent, avg_inter_arrival_seconds)" +
		" VALUES ($1,$2,$3,$4,$5,$6,$7)"

	_, err := p.db.ExecContext(ctx, query,
		p.runID.String(),
		p.now().UTC(),
		int64(s.Total),
		int64(s.Accepted),
		int64(s.Rejected),
		s.RejectRatioText(),
		s.AvgInterArrivalSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert report row: %w", err)
	}
	return nil
}

var _ ports.ReportStore = (*PostgresStore)(nil)
