package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/DAOGuard/internal/adapters/observability"
	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

var (
	// ErrJournalFull means the journal was at capacity and the policy did
	// not allow waiting.
	ErrJournalFull = errors.New("journal full")
	// ErrQueueFull means the queue rejected the event under its policy.
	ErrQueueFull = errors.New("queue full")
)

// Admitter journals events and queues them for dispatch. Admissions run one
// at a time, so an entry the queue refuses is still the newest in the
// journal when it is discarded.
type Admitter struct {
	mu  sync.Mutex
	j   ports.Journal
	q   ports.EventQueue
	pol ports.Policy
	obs ports.Observability
}

func NewAdmitter(j ports.Journal, q ports.EventQueue, pol ports.Policy, obs ports.Observability) *Admitter {
	return &Admitter{j: j, q: q, pol: pol, obs: obs}
}

// RunCollectPipeline starts the collector and admits every event it emits.
// It returns once the collector is running; the forwarding goroutine exits
// when ctx is done and then closes done.
func RunCollectPipeline(ctx context.Context, col ports.Collector, a *Admitter) (<-chan struct{}, error) {
	ch := make(chan *domain.Event, a.pol.MaxQueueLen)

	if err := col.Start(ch); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				_ = a.Admit(ctx, ev)
			}
		}
	}()

	return done, nil
}

// Admit journals ev and queues it. Once Admit returns nil the event is
// dispatched at least once, across restarts if need be. An event the queue
// refuses is discarded from the journal again and never replayed.
func (a *Admitter) Admit(ctx context.Context, ev *domain.Event) error {
	if ev == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if !waitForJournalCapacity(ctx, a.j, a.pol, a.obs) {
		a.obs.IncCounter(observability.MetricJournalDropped, 1)
		return ErrJournalFull
	}

	id, err := a.j.Append(ev)
	if err != nil {
		a.obs.LogCritical("journal_append_failed", err)
		return fmt.Errorf("journal append: %w", err)
	}

	if !enqueueWithPolicy(ctx, a.q, id, ev, a.pol, a.obs) {
		if err := a.j.Discard(id); err != nil {
			a.obs.LogError("journal_discard_failed", err, ports.Field{Key: "id", Value: uint64(id)})
		}
		a.obs.IncCounter(observability.MetricQueueDropped, 1)
		return ErrQueueFull
	}
	return nil
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return 5 * time.Millisecond
	}
	return pol.IdleSleep
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func waitForJournalCapacity(ctx context.Context, j ports.Journal, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxJournalSizeBytes <= 0 {
		return true
	}
	sleep := idleSleep(pol)

	for {
		stats := j.Stats()
		if stats.SizeBytes < pol.MaxJournalSizeBytes {
			return true
		}

		switch pol.OnJournalFull {
		case "block":
			if !sleepCtx(ctx, sleep) {
				return false
			}
		case "drop":
			obs.LogError("journal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxJournalSizeBytes))
			return false
		default:
			obs.LogError("journal_policy_invalid", fmt.Errorf("policy=%s", pol.OnJournalFull))
			return false
		}
	}
}

func enqueueWithPolicy(ctx context.Context, q ports.EventQueue, id ports.JournalEntryID, ev *domain.Event, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleSleep(pol)

	for {
		if ok := q.Enqueue(id, ev); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			if !sleepCtx(ctx, sleep) {
				return false
			}
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

// ReplayJournal queues every uncommitted journal entry, in order. It runs
// before the collector starts so replayed events keep their place ahead of
// new ones.
func ReplayJournal(ctx context.Context, j ports.Journal, q ports.EventQueue, pol ports.Policy, obs ports.Observability) (int, error) {
	stats := j.Stats()
	if stats.LatestAppended == 0 {
		return 0, nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return 0, nil
	}

	sleep := idleSleep(pol)
	var replayed int
	err := j.Iterate(start, func(id ports.JournalEntryID, ev *domain.Event) error {
		for {
			if q.Enqueue(id, ev) {
				replayed++
				return nil
			}
			switch pol.OnQueueFull {
			case "drop", "reject":
				return fmt.Errorf("queue full during journal replay")
			default:
				if !sleepCtx(ctx, sleep) {
					return ctx.Err()
				}
			}
		}
	})
	if err != nil {
		return replayed, err
	}
	if replayed > 0 {
		obs.LogInfo("journal_replay_complete",
			ports.Field{Key: "events", Value: replayed},
			ports.Field{Key: "from_id", Value: uint64(start)})
	}
	return replayed, nil
}
