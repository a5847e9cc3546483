package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/storage"
)

// WriteLockEventStore implements storage.WriteLockEventStore using
// PostgreSQL. It is a durable mirror of recent events suitable for
// dashboard joins; the ClickHouse implementation is the primary
// time-series sink for high-volume deployments (§4 of the design).
type WriteLockEventStore struct {
	pool *Pool
}

// NewWriteLockEventStore creates a new WriteLockEventStore.
func NewWriteLockEventStore(pool *Pool) *WriteLockEventStore {
	return &WriteLockEventStore{pool: pool}
}

var _ storage.WriteLockEventStore = (*WriteLockEventStore)(nil)

// InsertBulk appends events inside one transaction, relying on the table's
// natural-key unique constraint plus ON CONFLICT DO NOTHING for the
// idempotent-by-natural-key semantics spec.md §4.5 requires.
func (s *WriteLockEventStore) InsertBulk(ctx context.Context, events []*locksignal.WriteLockEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO write_lock_events (
			time, slot, account_pubkey, program_id, transaction_signature,
			success, lock_contention_score, priority_fee_lamports,
			compute_units_consumed, compute_unit_price_micro_lamports
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (slot, account_pubkey, transaction_signature) DO NOTHING
	`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			e.Time, e.Slot, e.AccountPubkey, e.ProgramID, e.TransactionSignature,
			e.Success, e.LockContentionScore, e.PriorityFeeLamports,
			e.ComputeUnitsConsumed, e.ComputeUnitPriceMicroLamports,
		)
		if err != nil {
			return fmt.Errorf("insert write_lock_event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DashboardStats implements the §4.5.1 aggregation.
func (s *WriteLockEventStore) DashboardStats(ctx context.Context, window time.Duration) (*locksignal.DashboardStats, error) {
	query := `
		SELECT
			COUNT(DISTINCT account_pubkey),
			COUNT(*),
			COUNT(DISTINCT account_pubkey) FILTER (WHERE lock_contention_score >= 5),
			COALESCE(100.0 * AVG(CASE WHEN success THEN 1 ELSE 0 END), 0)
		FROM write_lock_events
		WHERE time >= $1
	`
	stats := &locksignal.DashboardStats{}
	row := s.pool.QueryRow(ctx, query, time.Now().Add(-window))
	if err := row.Scan(&stats.UniqueAccounts, &stats.TotalEvents, &stats.HighContentionAccounts, &stats.AvgSuccessRatePercent); err != nil {
		return nil, fmt.Errorf("dashboard_stats: %w", err)
	}
	return stats, nil
}

// HotAccounts implements the §4.5.2 aggregation: group by (5-minute
// bucket, account); order by avg_contention desc NULLS last, then
// lock_attempts desc; LIMIT.
func (s *WriteLockEventStore) HotAccounts(ctx context.Context, limit int, window time.Duration) ([]*locksignal.AccountStats, error) {
	query := `
		SELECT
			account_pubkey,
			COUNT(*) AS lock_attempts,
			COUNT(*) FILTER (WHERE success) AS successful_locks,
			COALESCE(AVG(priority_fee_lamports), 0) AS avg_fee,
			COALESCE(MAX(priority_fee_lamports), 0) AS max_fee,
			AVG(lock_contention_score) AS avg_contention,
			MAX(lock_contention_score) AS max_contention
		FROM write_lock_events
		WHERE time >= $1
		GROUP BY date_trunc('minute', time - (extract(minute from time)::int % 5) * interval '1 minute'), account_pubkey
		ORDER BY avg_contention DESC NULLS LAST, lock_attempts DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, time.Now().Add(-window), limit)
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
			COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COALESCE(AVG(priority_fee_lamports), 0),
			COALESCE(MAX(priority_fee_lamports), 0),
			AVG(lock_contention_score),
			MAX(lock_contention_score)
		FROM write_lock_events
		WHERE account_pubkey = $1 AND time >= $2
	`
	a := &locksignal.AccountStats{AccountPubkey: pubkey}
	row := s.pool.QueryRow(ctx, query, pubkey, time.Now().Add(-window))
	if err := row.Scan(&a.LockAttempts, &a.SuccessfulLocks, &a.AvgPriorityFee, &a.MaxPriorityFee, &a.AvgContention, &a.MaxContention); err != nil {
		return nil, fmt.Errorf("account_stats: %w", err)
	}
	if a.LockAttempts == 0 {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

// RecommendedPriorityFee implements the §4.5.4 aggregation: 75th
// percentile of priority_fee_lamports over the last hour, successful
// transactions with a non-null fee, restricted to accounts.
func (s *WriteLockEventStore) RecommendedPriorityFee(ctx context.Context, accounts []string) (uint64, error) {
	query := `
		SELECT COALESCE(PERCENTILE_CONT(0.75) WITHIN GROUP (ORDER BY priority_fee_lamports), 0)
		FROM write_lock_events
		WHERE account_pubkey = ANY($1)
			AND success = true
			AND priority_fee_lamports IS NOT NULL
			AND time >= $2
	`
	var fee float64
	row := s.pool.QueryRow(ctx, query, accounts, time.Now().Add(-time.Hour))
	if err := row.Scan(&fee); err != nil {
		return 0, fmt.Errorf("recommended_priority_fee: %w", err)
	}
	return uint64(fee), nil
}

// LiveFeeEstimate implements the §4.5.5 SQL-side fallback live estimate:
// the last 30s of events for pubkey, grouped by slot, taking the last 10
// slots, with the §4.4.1 formulas applied in Go over the per-slot series.
func (s *WriteLockEventStore) LiveFeeEstimate(ctx context.Context, pubkey string) (*locksignal.LiveFeeEstimate, bool, error) {
	query := `
		SELECT slot, COUNT(*), AVG(lock_contention_score),
			COALESCE(AVG(priority_fee_lamports), 0), COALESCE(MAX(priority_fee_lamports), 0)
		FROM write_lock_events
		WHERE account_pubkey = $1 AND time >= $2
		GROUP BY slot
		ORDER BY slot DESC
		LIMIT 10
	`
	rows, err := s.pool.Query(ctx, query, pubkey, time.Now().Add(-30*time.Second))
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

	// Slots arrived newest-first; reverse to ascending order before applying
	// the window formulas so avg/p90 match the Live Tracker's semantics.
	for i, j := 0, len(slots)-1; i < j; i, j = i+1, j-1 {
		slots[i], slots[j] = slots[j], slots[i]
	}

	return applyLiveFeeFormulas(pubkey, slots), true, nil
}
