// Package freshness decides whether an advertisement is new or a replay.
package freshness

import (
	"sort"
	"sync"
	"time"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// DefaultBurstThreshold is the minimum spacing between two arrivals that
// claim the same sequence number.
const DefaultBurstThreshold = 200 * time.Millisecond

type Config struct {
	BurstThreshold time.Duration `yaml:"burst_threshold"`
	// StrictSequence requires seq to strictly increase after first contact.
	// Off by default: a reused seq with a later origin that arrives after
	// the burst window is accepted, which lets a patient attacker replay a
	// captured message with a forged, incremented timestamp.
	StrictSequence bool `yaml:"strict_sequence"`
}

// SenderState is what the validator remembers about the last accepted
// advertisement of one sender.
type SenderState struct {
	LastSeq     uint32
	LastOrigin  domain.OriginTime
	LastArrival time.Time
}

type senderEntry struct {
	mu      sync.Mutex
	tracked bool
	state   SenderState
}

// Validator holds per-sender state. Calls for the same sender are
// serialised; calls for different senders never contend beyond the map
// lookup.
type Validator struct {
	cfg Config

	mu      sync.Mutex
	senders map[domain.SenderID]*senderEntry
}

func NewValidator(cfg Config) *Validator {
	if cfg.BurstThreshold < 0 {
		cfg.BurstThreshold = 0
	}
	return &Validator{
		cfg:     cfg,
		senders: make(map[domain.SenderID]*senderEntry),
	}
}

func (v *Validator) BurstThreshold() time.Duration { return v.cfg.BurstThreshold }

func (v *Validator) entry(sender domain.SenderID) *senderEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.senders[sender]
	if !ok {
		e = &senderEntry{}
		v.senders[sender] = e
	}
	return e
}

// Evaluate accepts or rejects adv and, on accept, records it as the
// sender's latest state. Rejections never touch state.
func (v *Validator) Evaluate(sender domain.SenderID, adv domain.Advertisement, arrival time.Time) domain.Verdict {
	e := v.entry(sender)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.tracked {
		e.tracked = true
		e.state = SenderState{LastSeq: adv.Seq, LastOrigin: adv.Origin, LastArrival: arrival}
		return domain.Accept(domain.ReasonFirstContact)
	}

	if verdict, ok := v.check(&e.state, adv, arrival); !ok {
		return verdict
	}

	e.state = SenderState{LastSeq: adv.Seq, LastOrigin: adv.Origin, LastArrival: arrival}
	return domain.Accept(domain.ReasonFresh)
}

func (v *Validator) check(last *SenderState, adv domain.Advertisement, arrival time.Time) (domain.Verdict, bool) {
	if adv.Seq < last.LastSeq {
		return domain.Reject(domain.ReasonStaleSeq), false
	}

	if adv.Seq == last.LastSeq {
		if adv.Origin.Equal(last.LastOrigin) {
			return domain.Reject(domain.ReasonDuplicate), false
		}
		if arrival.Sub(last.LastArrival) < v.cfg.BurstThreshold {
			return domain.Reject(domain.ReasonBurst), false
		}
		if v.cfg.StrictSequence {
			return domain.Reject(domain.ReasonSeqNotAdvanced), false
		}
	}

	if adv.Origin.Before(last.LastOrigin) {
		return domain.Reject(domain.ReasonOriginRegressed), false
	}
	return domain.Verdict{}, true
}

// State returns a copy of the state held for sender, if any.
func (v *Validator) State(sender domain.SenderID) (SenderState, bool) {
	v.mu.Lock()
	e, ok := v.senders[sender]
	v.mu.Unlock()
	if !ok {
		return SenderState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.tracked
}

// Snapshot copies every tracked sender, sorted by sender id.
func (v *Validator) Snapshot() []ports.SenderSnapshot {
	v.mu.Lock()
	ids := make([]domain.SenderID, 0, len(v.senders))
	entries := make(map[domain.SenderID]*senderEntry, len(v.senders))
	for id, e := range v.senders {
		ids = append(ids, id)
		entries[id] = e
	}
	v.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]ports.SenderSnapshot, 0, len(ids))
	for _, id := range ids {
		e := entries[id]
		e.mu.Lock()
		if e.tracked {
			out = append(out, ports.SenderSnapshot{
				Sender:      id,
				LastSeq:     e.state.LastSeq,
				LastOrigin:  e.state.LastOrigin,
				LastArrival: e.state.LastArrival,
			})
		}
		e.mu.Unlock()
	}
	return out
}

// Restore loads previously snapshotted senders. Senders the validator has
// already seen keep their current state.
func (v *Validator) Restore(snaps []ports.SenderSnapshot) int {
	restored := 0
	for _, s := range snaps {
		e := v.entry(s.Sender)
		e.mu.Lock()
		if !e.tracked {
			e.tracked = true
			e.state = SenderState{LastSeq: s.LastSeq, LastOrigin: s.LastOrigin, LastArrival: s.LastArrival}
			restored++
		}
		e.mu.Unlock()
	}
	return restored
}
