package ports

import "github.com/ghalamif/DAOGuard/internal/domain"

type JournalEntryID uint64

// Journal is an append-only durable log of delivered events. Entries up to
// the commit watermark have been dispatched; the rest are replayed on start.
type Journal interface {
	Append(ev *domain.Event) (JournalEntryID, error)
	Iterate(from JournalEntryID, fn func(id JournalEntryID, ev *domain.Event) error) error
	Commit(upto JournalEntryID) error
	// Discard removes the newest entry, which must be id and uncommitted.
	Discard(id JournalEntryID) error
	Stats() JournalStats
	Close() error
}

type JournalStats struct {
	OldestUncommitted JournalEntryID
	LatestAppended    JournalEntryID
	SizeBytes         int64
}
