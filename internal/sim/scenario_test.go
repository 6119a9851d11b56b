package sim

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/DAOGuard/internal/adapters/codec"
	"github.com/ghalamif/DAOGuard/internal/adapters/observability"
	"github.com/ghalamif/DAOGuard/internal/app/dispatch"
	"github.com/ghalamif/DAOGuard/internal/app/freshness"
	"github.com/ghalamif/DAOGuard/internal/app/metrics"
	"github.com/ghalamif/DAOGuard/internal/domain"
)

func newDispatcher(burst time.Duration) *dispatch.Dispatcher {
	obs := observability.NewPromObs(prometheus.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	v := freshness.NewValidator(freshness.Config{BurstThreshold: burst})
	return dispatch.New(codec.Text{}, v, metrics.NewRecorder(), obs)
}

func TestGenerateDefaultScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42

	deliveries := Generate(cfg)
	require.Len(t, deliveries, 107)

	perSender := make(map[domain.SenderID]int)
	var replays int
	for i, d := range deliveries {
		if i > 0 {
			require.False(t, d.Arrival.Before(deliveries[i-1].Arrival), "deliveries must be in arrival order")
		}
		require.True(t, d.Arrival.Before(cfg.Epoch.Add(cfg.Duration)))
		if d.Replay {
			replays++
			assert.Equal(t, SenderAddr(0), d.Sender)
			continue
		}
		perSender[d.Sender]++
	}
	assert.Equal(t, 100, replays)
	assert.Equal(t, map[domain.SenderID]int{
		SenderAddr(0): 3,
		SenderAddr(1): 2,
		SenderAddr(2): 2,
	}, perSender)
}

func TestGenerateSequenceNumbers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.Attacker = false

	seqs := make(map[domain.SenderID][]uint32)
	for _, d := range Generate(cfg) {
		adv, err := codec.Decode(d.Payload)
		require.NoError(t, err)
		seqs[d.Sender] = append(seqs[d.Sender], adv.Seq)
	}
	assert.Equal(t, []uint32{1, 2, 3}, seqs[SenderAddr(0)])
	assert.Equal(t, []uint32{101, 102}, seqs[SenderAddr(1)])
	assert.Equal(t, []uint32{201, 202}, seqs[SenderAddr(2)])
}

func TestGenerateReplayTiming(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 3
	cfg.Senders = 1

	deliveries := Generate(cfg)
	var original *Delivery
	var replays []Delivery
	for i := range deliveries {
		if deliveries[i].Replay {
			replays = append(replays, deliveries[i])
		} else if original == nil {
			original = &deliveries[i]
		}
	}
	require.NotNil(t, original)
	require.Len(t, replays, 100)

	assert.Equal(t, original.Payload, replays[0].Payload)
	assert.Equal(t, 50*time.Millisecond, replays[0].Arrival.Sub(original.Arrival))
	assert.Equal(t, 10*time.Millisecond, replays[1].Arrival.Sub(replays[0].Arrival))
	assert.Equal(t, 990*time.Millisecond, replays[99].Arrival.Sub(replays[0].Arrival))
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 99

	a := Generate(cfg)
	b := Generate(cfg)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different traffic (-first +second):\n%s", diff)
	}

	cfg.Seed = 100
	c := Generate(cfg)
	assert.NotEqual(t, a[0].Arrival, c[0].Arrival)
}

func TestRunRejectsEveryReplay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	d := newDispatcher(freshness.DefaultBurstThreshold)

	out := Run(Generate(cfg), d)
	assert.Equal(t, 7, out.Legitimate)
	assert.Equal(t, 7, out.LegitAccepted)
	assert.Equal(t, 100, out.Replays)
	assert.Equal(t, 100, out.ReplaysRejected)
	assert.Zero(t, out.DecodeFailures)
	assert.Equal(t, map[domain.Reason]int{domain.ReasonDuplicate: 100}, out.RejectionReasons)

	s := d.Report()
	assert.Equal(t, uint64(107), s.Total)
	assert.Equal(t, uint64(7), s.Accepted)
	assert.Equal(t, uint64(100), s.Rejected)
	assert.Equal(t, "93.46", s.RejectRatioText())
	assert.Greater(t, s.AvgInterArrivalSeconds, 0.0)
}

func TestRunWithoutAttacker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 5
	cfg.Attacker = false
	d := newDispatcher(freshness.DefaultBurstThreshold)

	out := Run(Generate(cfg), d)
	assert.Equal(t, 7, out.LegitAccepted)
	assert.Zero(t, out.Replays)

	s := d.Report()
	assert.Equal(t, uint64(7), s.Total)
	assert.Equal(t, "0.00", s.RejectRatioText())
}

func TestRunCountsDecodeFailures(t *testing.T) {
	d := newDispatcher(freshness.DefaultBurstThreshold)
	out := Run([]Delivery{{Event: domain.Event{Sender: "x", Payload: []byte("garbage")}}}, d)
	assert.Equal(t, 1, out.DecodeFailures)
	assert.Zero(t, d.Report().Total)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, 3, cfg.Senders)
	assert.False(t, cfg.Attacker)
	assert.Equal(t, 25*time.Second, cfg.Duration)
	assert.Equal(t, 5*time.Millisecond, cfg.LinkDelay)
	assert.Equal(t, 100, cfg.ReplayCount)
	assert.NotZero(t, cfg.Seed)
	assert.Equal(t, "2001:db8:0:a::1", string(SenderAddr(10)))
}
