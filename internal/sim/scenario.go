// Package sim generates DAO traffic on a virtual clock: periodic senders and
// an optional attacker that captures sender 0's first advertisement and
// replays it in a storm.
package sim

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/ghalamif/DAOGuard/internal/adapters/codec"
	"github.com/ghalamif/DAOGuard/internal/domain"
)

type Config struct {
	Senders  int
	Attacker bool
	// Duration is when the receiver stops; later arrivals are not delivered.
	Duration time.Duration
	// BaseInterval is sender 0's send period; sender i sends every
	// BaseInterval + i seconds.
	BaseInterval time.Duration
	LinkDelay    time.Duration
	ReplayCount  int
	ReplayGap    time.Duration
	// ReplayDelay is the pause between capture and the first replay.
	ReplayDelay time.Duration
	// Seed drives the start jitter. Zero picks a time-based seed.
	Seed  int64
	Epoch time.Time
}

// DefaultConfig is three senders and an attacker over 25 seconds.
func DefaultConfig() Config {
	cfg := Config{Attacker: true}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Senders <= 0 {
		c.Senders = 3
	}
	if c.Duration <= 0 {
		c.Duration = 25 * time.Second
	}
	if c.BaseInterval <= 0 {
		c.BaseInterval = 10 * time.Second
	}
	if c.LinkDelay < 0 {
		c.LinkDelay = 0
	} else if c.LinkDelay == 0 {
		c.LinkDelay = 5 * time.Millisecond
	}
	if c.ReplayCount <= 0 {
		c.ReplayCount = 100
	}
	if c.ReplayGap <= 0 {
		c.ReplayGap = 10 * time.Millisecond
	}
	if c.ReplayDelay <= 0 {
		c.ReplayDelay = 50 * time.Millisecond
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.Epoch.IsZero() {
		c.Epoch = time.Unix(0, 0).UTC()
	}
}

// SenderAddr is the source address of sender i.
func SenderAddr(i int) domain.SenderID {
	return domain.SenderID(fmt.Sprintf("2001:db8:0:%x::1", i))
}

// Delivery is one event as the receiver sees it. Replay marks traffic the
// attacker injected.
type Delivery struct {
	domain.Event
	Replay bool
}

// Generate returns every delivery of the scenario in arrival order.
//
// Sender i starts at 2s+i, waits a further 1s plus up to 1s of jitter, then
// sends every BaseInterval+i seconds with sequence numbers counting up from
// 1+100*i. The attacker sits on sender 0's node, so its replays carry
// sender 0's address.
func Generate(cfg Config) []Delivery {
	cfg.ApplyDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	var out []Delivery
	emit := func(sender domain.SenderID, payload []byte, at time.Duration, replay bool) {
		arrival := at + cfg.LinkDelay
		if arrival >= cfg.Duration {
			return
		}
		out = append(out, Delivery{
			Event: domain.Event{
				Sender:  sender,
				Payload: payload,
				Arrival: cfg.Epoch.Add(arrival),
			},
			Replay: replay,
		})
	}

	for i := 0; i < cfg.Senders; i++ {
		sender := SenderAddr(i)
		offset := time.Duration(rng.Float64() * float64(time.Second))
		first := time.Duration(2+i)*time.Second + time.Second + offset
		interval := cfg.BaseInterval + time.Duration(i)*time.Second
		seq := uint32(1 + i*100)

		for at := first; at < cfg.Duration; at += interval {
			payload := codec.Encode(seq, domain.OriginFromTime(cfg.Epoch.Add(at)))
			emit(sender, payload, at, false)

			if i == 0 && cfg.Attacker && at == first {
				for k := 0; k < cfg.ReplayCount; k++ {
					emit(sender, payload, at+cfg.ReplayDelay+time.Duration(k)*cfg.ReplayGap, true)
				}
			}
			seq++
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Arrival.Before(out[b].Arrival)
	})
	return out
}

// Deliverer processes one event to completion.
type Deliverer interface {
	Deliver(ev domain.Event) (domain.Verdict, error)
}

// Outcome tallies how the receiver treated each kind of traffic.
type Outcome struct {
	Legitimate       int
	LegitAccepted    int
	Replays          int
	ReplaysRejected  int
	DecodeFailures   int
	RejectionReasons map[domain.Reason]int
}

// Run feeds deliveries to d in order.
func Run(deliveries []Delivery, d Deliverer) Outcome {
	o := Outcome{RejectionReasons: make(map[domain.Reason]int)}
	for _, del := range deliveries {
		if del.Replay {
			o.Replays++
		} else {
			o.Legitimate++
		}

		v, err := d.Deliver(del.Event)
		if err != nil {
			o.DecodeFailures++
			continue
		}
		if !v.Accepted {
			o.RejectionReasons[v.Reason]++
		}
		switch {
		case del.Replay && !v.Accepted:
			o.ReplaysRejected++
		case !del.Replay && v.Accepted:
			o.LegitAccepted++
		}
	}
	return o
}
