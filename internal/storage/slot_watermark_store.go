package storage

import "context"

// SlotWatermarkStore persists the Block Poller's last_processed_slot so a
// restarted indexer resumes catch-up instead of re-deriving it from
// startingSlotLag behind the current tip.
type SlotWatermarkStore interface {
	// GetLastProcessedSlot returns the last persisted watermark.
	// Returns ErrNotFound if none has been saved yet.
	GetLastProcessedSlot(ctx context.Context) (uint64, error)

	// SetLastProcessedSlot saves the watermark.
	SetLastProcessedSlot(ctx context.Context, slot uint64) error
}
