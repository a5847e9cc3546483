package storage

import (
	"context"
	"time"

	"solana-lock-signal/internal/locksignal"
)

// WriteLockEventStore provides access to the write_lock_events time-series
// table: the durable, append-only record of per-(slot, account, tx) lock
// contention and fee observations.
type WriteLockEventStore interface {
	// InsertBulk appends events for one slot. Idempotent by natural key
	// (slot, account_pubkey, transaction_signature): duplicates within the
	// batch or against existing rows are skipped rather than failing the
	// whole batch, per spec.md §4.5 ("insert_events as an idempotent-by-
	// natural-key append").
	InsertBulk(ctx context.Context, events []*locksignal.WriteLockEvent) error

	// DashboardStats computes the §4.5.1 aggregation over
	// [now-window, now].
	DashboardStats(ctx context.Context, window time.Duration) (*locksignal.DashboardStats, error)

	// HotAccounts computes the §4.5.2 aggregation, grouped by 5-minute
	// bucket and account, ordered by avg_contention desc NULLS last then
	// lock_attempts desc, truncated to limit.
	HotAccounts(ctx context.Context, limit int, window time.Duration) ([]*locksignal.AccountStats, error)

	// AccountStats computes §4.5.3 totals for one account over window.
	// Returns ErrNotFound if the account has no rows in the window.
	AccountStats(ctx context.Context, pubkey string, window time.Duration) (*locksignal.AccountStats, error)

	// RecommendedPriorityFee computes §4.5.4: the 75th percentile of
	// priority_fee_lamports over the last hour, for successful
	// transactions touching any of accounts, with non-null fee.
	RecommendedPriorityFee(ctx context.Context, accounts []string) (uint64, error)

	// LiveFeeEstimate computes §4.5.5: a SQL-side fallback live estimate
	// using the last 30s of events for pubkey, grouped by slot, taking the
	// last 10 slots, then applying the §4.4.1 formulas.
	LiveFeeEstimate(ctx context.Context, pubkey string) (*locksignal.LiveFeeEstimate, bool, error)
}

// AccountMetadataRecord is one row of the account_metadata table.
type AccountMetadataRecord struct {
	Pubkey    string
	ProgramID string
	Label     string
	LastSeen  time.Time
}

// AccountMetadataStore provides access to the account_metadata table: an
// upsert-keyed-by-pubkey mirror of the most recently observed program_id
// and known-program label for every account the indexer has touched. This
// operation is present in the original implementation
// (upsert_account_metadata) but was dropped from the distilled spec's
// description of operations — it is restored here (§5.2 of the expanded
// spec) since no Non-goal excludes it.
type AccountMetadataStore interface {
	// Upsert inserts or updates the row for pubkey, coalescing program_id
	// and label so a later observation with an empty program_id/label
	// does not blank out a previously known one.
	Upsert(ctx context.Context, rec AccountMetadataRecord) error

	// Get retrieves the row for pubkey. Returns ErrNotFound if absent.
	Get(ctx context.Context, pubkey string) (*AccountMetadataRecord, error)
}
