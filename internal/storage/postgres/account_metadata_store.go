package postgres

import (
	"context"
	"fmt"

	"solana-lock-signal/internal/storage"
)

// AccountMetadataStore implements storage.AccountMetadataStore using
// PostgreSQL.
type AccountMetadataStore struct {
	pool *Pool
}

// NewAccountMetadataStore creates a new AccountMetadataStore.
func NewAccountMetadataStore(pool *Pool) *AccountMetadataStore {
	return &AccountMetadataStore{pool: pool}
}

var _ storage.AccountMetadataStore = (*AccountMetadataStore)(nil)

// Upsert inserts or updates the row for rec.Pubkey, coalescing program_id
// and label so a blank observation never overwrites a known value —
// mirrors the original indexer's upsert_account_metadata (original_source
// indexer/src/database.rs), a feature dropped from spec.md's distillation
// and restored here per SPEC_FULL.md §5.2.
func (s *AccountMetadataStore) Upsert(ctx context.Context, rec storage.AccountMetadataRecord) error {
	query := `
		INSERT INTO account_metadata (pubkey, program_id, label, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pubkey) DO UPDATE SET
			program_id = COALESCE(NULLIF(EXCLUDED.program_id, ''), account_metadata.program_id),
			label = COALESCE(NULLIF(EXCLUDED.label, ''), account_metadata.label),
			last_seen = EXCLUDED.last_seen
	`
	if _, err := s.pool.Exec(ctx, query, rec.Pubkey, rec.ProgramID, rec.Label, rec.LastSeen); err != nil {
		return fmt.Errorf("upsert account_metadata: %w", err)
	}
	return nil
}

// Get retrieves the row for pubkey. Returns storage.ErrNotFound if absent.
func (s *AccountMetadataStore) Get(ctx context.Context, pubkey string) (*storage.AccountMetadataRecord, error) {
	query := `SELECT pubkey, program_id, label, last_seen FROM account_metadata WHERE pubkey = $1`
	rec := &storage.AccountMetadataRecord{}
	row := s.pool.QueryRow(ctx, query, pubkey)
	if err := row.Scan(&rec.Pubkey, &rec.ProgramID, &rec.Label, &rec.LastSeen); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account_metadata: %w", err)
	}
	return rec, nil
}
