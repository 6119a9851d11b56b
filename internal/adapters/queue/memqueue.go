package queue

import (
	"sync"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// MemQueue is a bounded FIFO of journaled events. Arrival order is the
// order the dispatcher sees, so per-sender ordering survives the hop.
type MemQueue struct {
	mu   sync.Mutex
	data []ports.QueuedEvent
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{
		data: make([]ports.QueuedEvent, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(id ports.JournalEntryID, ev *domain.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, ports.QueuedEvent{ID: id, Event: ev})
	return true
}

func (q *MemQueue) DequeueBatch(max int) []ports.QueuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]ports.QueuedEvent, max)
	copy(out, q.data[:max])
	n := copy(q.data, q.data[max:])
	clear(q.data[n:])
	q.data = q.data[:n]
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.EventQueue = (*MemQueue)(nil)
