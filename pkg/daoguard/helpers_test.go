package daoguard

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/DAOGuard/internal/adapters/codec"
	"github.com/ghalamif/DAOGuard/internal/domain"
)

var epoch = time.Unix(1_700_000_000, 0)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Journal.Dir = t.TempDir()
	cfg.Report.CSVPath = filepath.Join(t.TempDir(), "dao_metrics.csv")
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Policy.IdleSleep = time.Millisecond
	cfg.Logging.Level = "error"
	return cfg
}

func advert(sender string, seq uint32, secs uint64, at time.Duration) Event {
	return Event{
		Sender:  domain.SenderID(sender),
		Payload: codec.Encode(seq, domain.OriginTime{Seconds: secs}),
		Arrival: epoch.Add(at),
	}
}

func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				sum += c.GetValue()
			}
		}
	}
	return sum
}

type sliceCollector struct {
	events []Event
	wg     sync.WaitGroup
}

func (c *sliceCollector) Start(out chan<- *Event) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for i := range c.events {
			ev := c.events[i]
			out <- &ev
		}
	}()
	return nil
}

func (c *sliceCollector) Stop() error {
	c.wg.Wait()
	return nil
}

type stubCollector struct{}

func (s *stubCollector) Start(out chan<- *Event) error { return nil }
func (s *stubCollector) Stop() error                   { return nil }

type stubStore struct{}

func (s *stubStore) Append(_ context.Context, _ Summary) error { return nil }
func (s *stubStore) Name() string                              { return "stub" }

type stubQueue struct{}

func (s *stubQueue) Enqueue(id JournalEntryID, ev *Event) bool { return true }
func (s *stubQueue) DequeueBatch(max int) []QueuedEvent        { return nil }
func (s *stubQueue) Len() int                                  { return 0 }

type stubJournal struct{}

func (s *stubJournal) Append(ev *Event) (JournalEntryID, error) { return 0, nil }
func (s *stubJournal) Iterate(from JournalEntryID, fn func(id JournalEntryID, ev *Event) error) error {
	return nil
}
func (s *stubJournal) Commit(upto JournalEntryID) error { return nil }
func (s *stubJournal) Discard(id JournalEntryID) error  { return nil }
func (s *stubJournal) Stats() JournalStats              { return JournalStats{} }
func (s *stubJournal) Close() error                     { return nil }

type stubObservability struct{}

func (s *stubObservability) LogDebug(string, ...Field)           {}
func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogWarn(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordVerdict(SenderID, Verdict)     {}
func (s *stubObservability) RecordDecodeFailure(*Event, error)   {}
