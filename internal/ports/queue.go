package ports

import "github.com/ghalamif/DAOGuard/internal/domain"

type QueuedEvent struct {
	ID    JournalEntryID
	Event *domain.Event
}

type EventQueue interface {
	Enqueue(id JournalEntryID, ev *domain.Event) bool
	DequeueBatch(max int) []QueuedEvent
	Len() int
}
