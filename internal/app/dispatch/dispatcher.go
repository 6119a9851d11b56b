// Package dispatch turns delivered events into verdicts: decode, record the
// arrival, ask the validator, record the verdict.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// Validator is the freshness authority.
type Validator interface {
	Evaluate(sender domain.SenderID, adv domain.Advertisement, arrival time.Time) domain.Verdict
}

// Recorder observes arrivals and verdicts.
type Recorder interface {
	OnArrival(sender domain.SenderID, arrival time.Time)
	OnVerdict(accepted bool)
	Report() domain.Summary
}

type Dispatcher struct {
	codec     ports.Codec
	validator Validator
	recorder  Recorder
	obs       ports.Observability

	// recently reported decode failures, keyed by sender
	malformed *ttlcache.Cache[domain.SenderID, struct{}]

	locksMu sync.Mutex
	locks   map[domain.SenderID]*sync.Mutex
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithLogSuppression logs at most one decode failure per sender per window
// at error level; the rest go to debug. Counting is unaffected.
func WithLogSuppression(window time.Duration) Option {
	return func(d *Dispatcher) {
		if window <= 0 {
			d.malformed = nil
			return
		}
		d.malformed = ttlcache.New[domain.SenderID, struct{}](
			ttlcache.WithTTL[domain.SenderID, struct{}](window),
			ttlcache.WithDisableTouchOnHit[domain.SenderID, struct{}](),
		)
	}
}

func New(codec ports.Codec, v Validator, r Recorder, obs ports.Observability, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		codec:     codec,
		validator: v,
		recorder:  r,
		obs:       obs,
		locks:     make(map[domain.SenderID]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Dispatcher) senderLock(sender domain.SenderID) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	mu, ok := d.locks[sender]
	if !ok {
		mu = &sync.Mutex{}
		d.locks[sender] = mu
	}
	return mu
}

// Deliver processes one event to completion. A decode failure is returned
// as the error and leaves every counter untouched. Events from the same
// sender are processed one at a time, in call order.
func (d *Dispatcher) Deliver(ev domain.Event) (domain.Verdict, error) {
	adv, err := d.codec.Decode(ev.Payload)
	if err != nil {
		d.reportMalformed(&ev, err)
		return domain.Verdict{}, err
	}

	mu := d.senderLock(ev.Sender)
	mu.Lock()
	d.recorder.OnArrival(ev.Sender, ev.Arrival)
	verdict := d.validator.Evaluate(ev.Sender, adv, ev.Arrival)
	d.recorder.OnVerdict(verdict.Accepted)
	mu.Unlock()

	d.obs.RecordVerdict(ev.Sender, verdict)
	fields := []ports.Field{
		{Key: "sender", Value: string(ev.Sender)},
		{Key: "seq", Value: adv.Seq},
		{Key: "origin", Value: adv.Origin.String()},
		{Key: "reason", Value: string(verdict.Reason)},
	}
	if verdict.Accepted {
		d.obs.LogDebug("dao_accepted", fields...)
	} else {
		d.obs.LogWarn("dao_rejected", fields...)
	}
	return verdict, nil
}

func (d *Dispatcher) reportMalformed(ev *domain.Event, err error) {
	d.obs.RecordDecodeFailure(ev, err)
	fields := []ports.Field{
		{Key: "sender", Value: string(ev.Sender)},
		{Key: "bytes", Value: len(ev.Payload)},
	}
	if d.malformed != nil {
		if d.malformed.Get(ev.Sender) != nil {
			d.obs.LogDebug("dao_malformed_suppressed", append(fields, ports.Field{Key: "error", Value: err.Error()})...)
			return
		}
		d.malformed.Set(ev.Sender, struct{}{}, ttlcache.DefaultTTL)
	}
	d.obs.LogError("dao_malformed", err, fields...)
}

// Run consumes events until the channel closes or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, events <-chan *domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev == nil {
				continue
			}
			_, _ = d.Deliver(*ev)
		}
	}
}

// Report returns the recorder's current summary.
func (d *Dispatcher) Report() domain.Summary {
	return d.recorder.Report()
}
