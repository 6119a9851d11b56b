// Package metrics accumulates verdict counters and inter-arrival delays.
// The recorder only observes; it has no say in acceptance.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/DAOGuard/internal/domain"
)

type arrivals struct {
	mu       sync.Mutex
	seen     bool
	previous time.Time
	delays   []time.Duration
	seconds  float64
}

// Recorder keeps total as accepted+rejected so the two can never disagree
// in a report.
type Recorder struct {
	accepted atomic.Uint64
	rejected atomic.Uint64

	mu      sync.RWMutex
	senders map[domain.SenderID]*arrivals
}

func NewRecorder() *Recorder {
	return &Recorder{senders: make(map[domain.SenderID]*arrivals)}
}

func (r *Recorder) arrivalsFor(sender domain.SenderID) *arrivals {
	r.mu.RLock()
	a, ok := r.senders[sender]
	r.mu.RUnlock()
	if ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok = r.senders[sender]; !ok {
		a = &arrivals{}
		r.senders[sender] = a
	}
	return a
}

// OnArrival records the delay since the sender's previous decoded message.
func (r *Recorder) OnArrival(sender domain.SenderID, arrival time.Time) {
	a := r.arrivalsFor(sender)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen {
		d := arrival.Sub(a.previous)
		a.delays = append(a.delays, d)
		a.seconds += d.Seconds()
	}
	a.seen = true
	a.previous = arrival
}

// OnVerdict counts one decided advertisement.
func (r *Recorder) OnVerdict(accepted bool) {
	if accepted {
		r.accepted.Add(1)
		return
	}
	r.rejected.Add(1)
}

// Report computes the summary without resetting anything.
func (r *Recorder) Report() domain.Summary {
	s := domain.Summary{
		Accepted: r.accepted.Load(),
		Rejected: r.rejected.Load(),
	}
	s.Total = s.Accepted + s.Rejected
	if s.Total > 0 {
		s.RejectRatioPercent = float64(s.Rejected) * 100 / float64(s.Total)
	}

	var (
		sum   float64
		count int
	)
	r.mu.RLock()
	for _, a := range r.senders {
		a.mu.Lock()
		sum += a.seconds
		count += len(a.delays)
		a.mu.Unlock()
	}
	r.mu.RUnlock()
	if count > 0 {
		s.AvgInterArrivalSeconds = sum / float64(count)
	}
	return s
}

// History returns a copy of the delays recorded for sender.
func (r *Recorder) History(sender domain.SenderID) []time.Duration {
	r.mu.RLock()
	a, ok := r.senders[sender]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]time.Duration, len(a.delays))
	copy(out, a.delays)
	return out
}

// Senders lists every sender with at least one recorded arrival.
func (r *Recorder) Senders() []domain.SenderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SenderID, 0, len(r.senders))
	for id := range r.senders {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
