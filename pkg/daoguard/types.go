package daoguard

import (
	"github.com/ghalamif/DAOGuard/internal/app/freshness"
	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// Event is one delivered payload with its sender and arrival time.
type Event = domain.Event

// SenderID identifies the sender of an advertisement.
type SenderID = domain.SenderID

// OriginTime is the sender-side timestamp carried by an advertisement.
type OriginTime = domain.OriginTime

// Advertisement is a decoded DAO message.
type Advertisement = domain.Advertisement

// Verdict is the validator's decision for one advertisement.
type Verdict = domain.Verdict

// Reason names the rule that produced a verdict.
type Reason = domain.Reason

// Summary is the aggregate report of a run.
type Summary = domain.Summary

// SenderState is the validator's memory of one sender.
type SenderState = freshness.SenderState

// Collector streams raw events from any transport into the pipeline.
type Collector = ports.Collector

// EventQueue is the bounded, in-memory queue between collector and dispatcher.
type EventQueue = ports.EventQueue

// QueuedEvent is an item buffered inside the queue.
type QueuedEvent = ports.QueuedEvent

// Journal abstracts the durable event log used for crash recovery.
type Journal = ports.Journal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// JournalEntryID uniquely identifies a journal entry.
type JournalEntryID = ports.JournalEntryID

// Codec encodes and decodes advertisements.
type Codec = ports.Codec

// ReportStore receives summary rows.
type ReportStore = ports.ReportStore

// Checkpointer persists validator state across restarts.
type Checkpointer = ports.Checkpointer

// Checkpoint is one persisted snapshot.
type Checkpoint = ports.Checkpoint

// Observability emits metrics and logs about verdicts and the pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field
