package daoguard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelStoreClosed is returned when a channel store is written to after being closed.
var ErrChannelStoreClosed = errors.New("daoguard: channel report store closed")

// ReportFunc receives one summary row.
type ReportFunc func(context.Context, Summary) error

// NewCallbackReportStore adapts a ReportFunc into a full ReportStore so callers
// can plug arbitrary functions without defining structs.
func NewCallbackReportStore(name string, fn ReportFunc) ReportStore {
	if name == "" {
		name = "callback"
	}
	return &callbackStore{name: name, fn: fn}
}

// NewChannelReportStore exposes summaries via a channel; it returns the store,
// the read-only channel, and a close function that the caller should invoke
// during shutdown.
func NewChannelReportStore(name string, buffer int) (ReportStore, <-chan Summary, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Summary, buffer)
	s := &channelStore{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackStore struct {
	name string
	fn   ReportFunc
}

func (s *callbackStore) Append(ctx context.Context, sum Summary) error {
	if s.fn == nil {
		return fmt.Errorf("callback store %q: nil handler", s.name)
	}
	return s.fn(ctx, sum)
}

func (s *callbackStore) Name() string { return s.name }

type channelStore struct {
	name   string
	ch     chan Summary
	closed chan struct{}
	once   sync.Once
	// held by senders so ch is never closed mid-send
	sendMu sync.Mutex
}

func (s *channelStore) Append(ctx context.Context, sum Summary) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	select {
	case <-s.closed:
		return ErrChannelStoreClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- sum:
		return nil
	}
}

func (s *channelStore) Name() string { return s.name }

func (s *channelStore) close() {
	s.once.Do(func() {
		close(s.closed)
		s.sendMu.Lock()
		close(s.ch)
		s.sendMu.Unlock()
	})
}
