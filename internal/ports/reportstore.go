package ports

import (
	"context"

	"github.com/ghalamif/DAOGuard/internal/domain"
)

// ReportStore appends summary rows to a durable, append-only record.
type ReportStore interface {
	Append(ctx context.Context, s domain.Summary) error
	Name() string
}
