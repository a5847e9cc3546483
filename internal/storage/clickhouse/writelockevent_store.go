package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/storage"
)

// WriteLockEventStore implements storage.WriteLockEventStore using
// ClickHouse, the primary time-series sink for write_lock_events at scale
// (§4 of the design: a hypertable-equivalent carrying the §3 fields).
type WriteLockEventStore struct {
	conn *Conn
}

// NewWriteLockEventStore creates a new WriteLockEventStore.
func NewWriteLockEventStore(conn *Conn) *WriteLockEventStore {
	return &WriteLockEventStore{conn: conn}
}

var _ storage.WriteLockEventStore = (*WriteLockEventStore)(nil)

// InsertBulk appends events via a prepared batch. The underlying table
// uses ReplacingMergeTree keyed on the natural key (slot, account_pubkey,
// transaction_signature), so re-inserting an already-seen event is
// eventually deduplicated by merges rather than rejected synchronously —
// ClickHouse does not enforce uniqueness at insert time (see
// isDuplicateKeyError in clickhouse.go).
func (s *WriteLockEventStore) InsertBulk(ctx context.Context, events []*locksignal.WriteLockEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO write_lock_events (
			time, slot, account_pubkey, program_id, transaction_signature,
			success, lock_contention_score, priority_fee_lamports,
			compute_units_consumed, compute_unit_price_micro_lamports
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		var fee, cuPrice uint64
		if e.PriorityFeeLamports != nil {
			fee = *e.PriorityFeeLamports
		}
		if e.ComputeUnitPriceMicroLamports != nil {
			cuPrice = *e.ComputeUnitPriceMicroLamports
		}
		var cu uint32
		if e.ComputeUnitsConsumed != nil {
			cu = *e.ComputeUnitsConsumed
		}
		var programID string
		if e.ProgramID != nil {
			programID = *e.ProgramID
		}

		if err := batch.Append(
			e.Time, e.Slot, e.AccountPubkey, programID, e.TransactionSignature,
			e.Success, e.LockContentionScore, fee, cu, cuPrice,
		); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// DashboardStats implements the §4.5.1 aggregation.
func (s *WriteLockEventStore) DashboardStats(ctx context.Context, window time.Duration) (*locksignal.DashboardStats, error) {
	query := `
		SELECT
			uniqExact(account_pubkey),
			count(),
			uniqExactIf(account_pubkey, lock_contention_score >= 5),
			100.0 * countIf(success) / greatest(count(), 1)
		FROM write_lock_events
		WHERE time >= ?
	`
	stats := &locksignal.DashboardStats{}
	row := s.conn.QueryRow(ctx, query, time.Now().Add(-window))
	if err := row.Scan(&stats.UniqueAccounts, &stats.TotalEvents, &stats.HighContentionAccounts, &stats.AvgSuccessRatePercent); err != nil {
		return nil, fmt.Errorf("dashboard_stats: %w", err)
	}
	return stats, nil
}

// HotAccounts implements the §4.5.2 aggregation: group by (5-minute
// bucket, account); order by avg_contention desc then lock_attempts desc.
func (s *WriteLockEventStore) HotAccounts(ctx context.Context, limit int, window time.Duration) ([]*locksignal.AccountStats, error) {
	query := `
		SELECT
			account_pubkey,
			count() AS lock_attempts,
			countIf(success) AS successful_locks,
			avg(priority_fee_lamports) AS avg_fee,
			max(priority_fee_lamports) AS max_fee,
			avg(lock_contention_score) AS avg_contention,
			max(lock_contention_score) AS max_contention
		FROM write_lock_events
		WHERE time >= ?
		GROUP BY toStartOfFiveMinutes(time), account_pubkey
		ORDER BY avg_contention DESC, lock_attempts DESC
		LIMIT ?
	`
	rows, err := s.conn.Query(ctx, query, time.Now().Add(-window), limit)
	if err != nil {
		return nil, fmt.Errorf("hot_accounts: %w", err)
	}
	defer rows.Close()

	var out []*locksignal.AccountStats
	for rows.Next() {
		a := &locksignal.AccountStats{}
		if err := rows.Scan(&a.AccountPubkey, &a.LockAttempts, &a.SuccessfulLocks, &a.AvgPriorityFee, &a.MaxPriorityFee, &a.AvgContention, &a.MaxContention); err != nil {
			return nil, fmt.Errorf("scan hot account row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hot account rows: %w", err)
	}
	return out, nil
}

// AccountStats implements the §4.5.3 aggregation.
func (s *WriteLockEventStore) AccountStats(ctx context.Context, pubkey string, window time.Duration) (*locksignal.AccountStats, error) {
	query := `
		SELECT
			count(),
			countIf(success),
			avg(priority_fee_lamports),
			max(priority_fee_lamports),
			avg(lock_contention_score),
			max(lock_contention_score)
		FROM write_lock_events
		WHERE account_pubkey = ? AND time >= ?
	`
	a := &locksignal.AccountStats{AccountPubkey: pubkey}
	row := s.conn.QueryRow(ctx, query, pubkey, time.Now().Add(-window))
	if err := row.Scan(&a.LockAttempts, &a.SuccessfulLocks, &a.AvgPriorityFee, &a.MaxPriorityFee, &a.AvgContention, &a.MaxContention); err != nil {
		return nil, fmt.Errorf("account_stats: %w", err)
	}
	if a.LockAttempts == 0 {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

// RecommendedPriorityFee implements the §4.5.4 aggregation.
func (s *WriteLockEventStore) RecommendedPriorityFee(ctx context.Context, accounts []string) (uint64, error) {
	query := `
		SELECT quantile(0.75)(priority_fee_lamports)
		FROM write_lock_events
		WHERE has(?, account_pubkey)
			AND success = 1
			AND priority_fee_lamports > 0
			AND time >= ?
	`
	var fee float64
	row := s.conn.QueryRow(ctx, query, accounts, time.Now().Add(-time.Hour))
	if err := row.Scan(&fee); err != nil {
		return 0, fmt.Errorf("recommended_priority_fee: %w", err)
	}
	return uint64(fee), nil
}

// LiveFeeEstimate implements the §4.5.5 SQL-side fallback live estimate.
func (s *WriteLockEventStore) LiveFeeEstimate(ctx context.Context, pubkey string) (*locksignal.LiveFeeEstimate, bool, error) {
	query := `
		SELECT slot, count(), avg(lock_contention_score),
			avg(priority_fee_lamports), max(priority_fee_lamports)
		FROM write_lock_events
		WHERE account_pubkey = ? AND time >= ?
		GROUP BY slot
		ORDER BY slot DESC
		LIMIT 10
	`
	rows, err := s.conn.Query(ctx, query, pubkey, time.Now().Add(-30*time.Second))
	if err != nil {
		return nil, false, fmt.Errorf("live_fee_estimate: %w", err)
	}
	defer rows.Close()

	var slots []locksignal.SlotSummary
	for rows.Next() {
		var s locksignal.SlotSummary
		if err := rows.Scan(&s.Slot, &s.TxCount, &s.ContentionScore, &s.AvgPriorityFee, &s.MaxPriorityFee); err != nil {
			return nil, false, fmt.Errorf("scan live fee slot row: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate live fee slot rows: %w", err)
	}
	if len(slots) == 0 {
		return nil, false, nil
	}

	// Slots arrived newest-first; reverse to ascending order before
	// applying the window formulas.
	for i, j := 0, len(slots)-1; i < j; i, j = i+1, j-1 {
		slots[i], slots[j] = slots[j], slots[i]
	}

	return applyLiveFeeFormulas(pubkey, slots), true, nil
}
