package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/DAOGuard/internal/adapters/observability"
	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// Deliverer processes one event to completion.
type Deliverer interface {
	Deliver(ev domain.Event) (domain.Verdict, error)
}

// RunDispatchPipeline drains the queue in FIFO order into d and advances the
// journal watermark after each batch. Decode failures are final, so their
// entries are committed too. It returns when ctx is done, after finishing
// the batch in hand.
func RunDispatchPipeline(ctx context.Context, j ports.Journal, q ports.EventQueue, d Deliverer, pol ports.Policy, obs ports.Observability) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !DrainOnce(j, q, d, pol, obs) {
			if !sleepCtx(ctx, idleSleep(pol)) {
				return
			}
		}
	}
}

// DrainOnce dispatches a single batch. It reports whether anything was
// dequeued.
func DrainOnce(j ports.Journal, q ports.EventQueue, d Deliverer, pol ports.Policy, obs ports.Observability) bool {
	batch := q.DequeueBatch(pol.MaxBatchSize)
	if len(batch) == 0 {
		return false
	}

	start := time.Now()
	var maxID ports.JournalEntryID
	for _, item := range batch {
		if item.Event != nil {
			_, _ = d.Deliver(*item.Event)
		}
		if item.ID > maxID {
			maxID = item.ID
		}
	}
	obs.ObserveLatency(observability.MetricDispatchLatency, time.Since(start).Seconds())

	if err := j.Commit(maxID); err != nil {
		obs.LogError("journal_commit_failed", err)
	}
	return true
}
