// Package eventsink batch-appends decoded write-lock events to the durable
// store and keeps account_metadata current.
package eventsink

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-lock-signal/internal/knownprograms"
	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/storage"
)

// Sink batch-inserts WriteLockEvent records produced by the Slot Decoder
// and upserts account_metadata for every distinct account touched.
type Sink struct {
	events   storage.WriteLockEventStore
	metadata storage.AccountMetadataStore
	logger   *log.Logger
	now      func() time.Time
}

// New creates a Sink writing through eventStore and metadataStore.
// metadataStore may be nil, in which case metadata upserts are skipped —
// callers that only care about the time-series path (e.g. a ClickHouse-only
// deployment with no Postgres leg) can omit it.
func New(eventStore storage.WriteLockEventStore, metadataStore storage.AccountMetadataStore, logger *log.Logger) *Sink {
	return &Sink{
		events:   eventStore,
		metadata: metadataStore,
		logger:   logger,
		now:      time.Now,
	}
}

// InsertSlotEvents appends a slot's worth of events as one idempotent-by-
// natural-key batch, then upserts account_metadata for every distinct
// account in the batch. A store failure here drops the slot's
// events; there is no on-disk buffering or retry queue (see spec.md §9/
// DESIGN.md "Open Question: event loss on store failure" — this is a
// deliberate, flagged gap, not an oversight).
func (s *Sink) InsertSlotEvents(ctx context.Context, events []*locksignal.WriteLockEvent) error {
	if len(events) == 0 {
		return nil
	}

	if err := s.events.InsertBulk(ctx, events); err != nil {
		return fmt.Errorf("insert slot events: %w", err)
	}

	if s.metadata != nil {
		s.upsertMetadata(ctx, events)
	}

	return nil
}

// upsertMetadata updates account_metadata for every distinct account in
// events, using the known-program label when the program_id resolves to
// one. Failures here are logged and swallowed — metadata enrichment is
// best-effort and must never block the event-insert path that already
// succeeded.
func (s *Sink) upsertMetadata(ctx context.Context, events []*locksignal.WriteLockEvent) {
	// Collapse to one record per distinct account, preferring the first
	// non-empty program_id seen for that account within the slot.
	order := make([]string, 0, len(events))
	records := make(map[string]storage.AccountMetadataRecord, len(events))
	now := s.now()

	for _, e := range events {
		rec, ok := records[e.AccountPubkey]
		if !ok {
			rec = storage.AccountMetadataRecord{Pubkey: e.AccountPubkey, LastSeen: now}
			order = append(order, e.AccountPubkey)
		}
		if rec.ProgramID == "" && e.ProgramID != nil {
			rec.ProgramID = *e.ProgramID
			if label, ok := knownprograms.ProgramLabel(*e.ProgramID); ok {
				rec.Label = label
			}
		}
		if rec.Label == "" {
			if label, ok := knownprograms.AccountLabel(e.AccountPubkey); ok {
				rec.Label = label
			}
		}
		records[e.AccountPubkey] = rec
	}

	for _, account := range order {
		if err := s.metadata.Upsert(ctx, records[account]); err != nil {
			if s.logger != nil {
				s.logger.Printf("upsert account_metadata for %s: %v", account, err)
			}
		}
	}
}
