package reportstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// Multi appends to every store and reports all failures together. A
// failing store does not stop the others.
type Multi []ports.ReportStore

func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, s := range m {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

func (m Multi) Append(ctx context.Context, s domain.Summary) error {
	var errs []error
	for _, store := range m {
		if err := store.Append(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ ports.ReportStore = Multi(nil)
