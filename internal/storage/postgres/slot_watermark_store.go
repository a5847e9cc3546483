package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"solana-lock-signal/internal/storage"
)

// SlotWatermarkStore is a PostgreSQL implementation of
// storage.SlotWatermarkStore backed by a single-row table.
type SlotWatermarkStore struct {
	pool *Pool
}

// NewSlotWatermarkStore creates a new PostgreSQL slot watermark store.
func NewSlotWatermarkStore(pool *Pool) *SlotWatermarkStore {
	return &SlotWatermarkStore{pool: pool}
}

// GetLastProcessedSlot returns the last persisted watermark.
func (s *SlotWatermarkStore) GetLastProcessedSlot(ctx context.Context) (uint64, error) {
	row := s.pool.QueryRow(ctx, `SELECT slot FROM slot_watermark WHERE id = 1`)

	var slot uint64
	if err := row.Scan(&slot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}
	return slot, nil
}

// SetLastProcessedSlot saves the watermark.
func (s *SlotWatermarkStore) SetLastProcessedSlot(ctx context.Context, slot uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO slot_watermark (id, slot, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    updated_at = NOW()
	`, slot)
	return err
}
