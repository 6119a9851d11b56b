package ports

import (
	"context"
	"time"

	"github.com/ghalamif/DAOGuard/internal/domain"
)

// SenderSnapshot is the persisted form of one tracked sender.
type SenderSnapshot struct {
	Sender      domain.SenderID   `json:"sender"`
	LastSeq     uint32            `json:"last_seq"`
	LastOrigin  domain.OriginTime `json:"last_origin"`
	LastArrival time.Time         `json:"last_arrival"`
}

type Checkpoint struct {
	Senders []SenderSnapshot `json:"senders"`
	Summary domain.Summary   `json:"summary"`
	TakenAt time.Time        `json:"taken_at"`
}

// Checkpointer persists validator state so a restarted collector keeps
// rejecting replays of messages it accepted before the restart.
type Checkpointer interface {
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context) (*Checkpoint, error)
	Close() error
}
