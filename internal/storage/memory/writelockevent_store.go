package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/storage"
)

// eventKey is the natural key write_lock_events is deduplicated on.
type eventKey struct {
	Slot                 uint64
	AccountPubkey        string
	TransactionSignature string
}

// WriteLockEventStore is an in-memory implementation of
// storage.WriteLockEventStore, used by tests and by --use-memory mode.
type WriteLockEventStore struct {
	mu   sync.RWMutex
	data []*locksignal.WriteLockEvent
	keys map[eventKey]bool
	now  func() time.Time
}

// NewWriteLockEventStore creates an empty in-memory store.
func NewWriteLockEventStore() *WriteLockEventStore {
	return &WriteLockEventStore{
		keys: make(map[eventKey]bool),
		now:  time.Now,
	}
}

// InsertBulk appends events, silently skipping any that collide with an
// existing (slot, account, signature) triple — the idempotent-by-natural-
// key semantics spec.md §4.5 requires.
func (s *WriteLockEventStore) InsertBulk(_ context.Context, events []*locksignal.WriteLockEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		key := eventKey{Slot: e.Slot, AccountPubkey: e.AccountPubkey, TransactionSignature: e.TransactionSignature}
		if s.keys[key] {
			continue
		}
		s.keys[key] = true
		copy := *e
		s.data = append(s.data, &copy)
	}
	return nil
}

func (s *WriteLockEventStore) snapshotSince(window time.Duration) []*locksignal.WriteLockEvent {
	cutoff := s.now().Add(-window)
	var out []*locksignal.WriteLockEvent
	for _, e := range s.data {
		if !e.Time.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// DashboardStats implements storage.WriteLockEventStore.
func (s *WriteLockEventStore) DashboardStats(_ context.Context, window time.Duration) (*locksignal.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.snapshotSince(window)
	stats := &locksignal.DashboardStats{}
	if len(events) == 0 {
		return stats, nil
	}

	accounts := make(map[string]bool)
	highContention := make(map[string]bool)
	var successCount uint64
	for _, e := range events {
		accounts[e.AccountPubkey] = true
		if e.LockContentionScore >= 5 {
			highContention[e.AccountPubkey] = true
		}
		if e.Success {
			successCount++
		}
	}

	stats.UniqueAccounts = uint64(len(accounts))
	stats.TotalEvents = uint64(len(events))
	stats.HighContentionAccounts = uint64(len(highContention))
	stats.AvgSuccessRatePercent = 100 * float64(successCount) / float64(len(events))
	return stats, nil
}

// HotAccounts implements storage.WriteLockEventStore. Events in the window
// are grouped by account only, not split into 5-minute buckets, so each
// account yields at most one row.
func (s *WriteLockEventStore) HotAccounts(_ context.Context, limit int, window time.Duration) ([]*locksignal.AccountStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.snapshotSince(window)
	byAccount := aggregateByAccount(events)

	out := make([]*locksignal.AccountStats, 0, len(byAccount))
	for _, stats := range byAccount {
		out = append(out, stats)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgContention != out[j].AvgContention {
			return out[i].AvgContention > out[j].AvgContention
		}
		return out[i].LockAttempts > out[j].LockAttempts
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AccountStats implements storage.WriteLockEventStore.
func (s *WriteLockEventStore) AccountStats(_ context.Context, pubkey string, window time.Duration) (*locksignal.AccountStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.snapshotSince(window)
	var filtered []*locksignal.WriteLockEvent
	for _, e := range events {
		if e.AccountPubkey == pubkey {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil, storage.ErrNotFound
	}

	byAccount := aggregateByAccount(filtered)
	return byAccount[pubkey], nil
}

// RecommendedPriorityFee implements storage.WriteLockEventStore.
func (s *WriteLockEventStore) RecommendedPriorityFee(_ context.Context, accounts []string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		wanted[a] = true
	}

	cutoff := s.now().Add(-1 * time.Hour)
	var fees []uint64
	for _, e := range s.data {
		if !e.Success || e.PriorityFeeLamports == nil || e.Time.Before(cutoff) {
			continue
		}
		if !wanted[e.AccountPubkey] {
			continue
		}
		fees = append(fees, *e.PriorityFeeLamports)
	}

	return percentile(fees, 0.75), nil
}

// LiveFeeEstimate implements storage.WriteLockEventStore: a SQL-fallback
// live estimate computed from the last 30s of events, grouped by slot,
// taking the last 10 slots.
func (s *WriteLockEventStore) LiveFeeEstimate(_ context.Context, pubkey string) (*locksignal.LiveFeeEstimate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-30 * time.Second)
	bySlot := make(map[uint64]*locksignal.SlotSummary)
	for _, e := range s.data {
		if e.AccountPubkey != pubkey || e.Time.Before(cutoff) {
			continue
		}
		summary, ok := bySlot[e.Slot]
		if !ok {
			summary = &locksignal.SlotSummary{Slot: e.Slot, ContentionScore: e.LockContentionScore}
			bySlot[e.Slot] = summary
		}
		summary.TxCount++
		if e.PriorityFeeLamports != nil {
			fee := *e.PriorityFeeLamports
			summary.AvgPriorityFee = (summary.AvgPriorityFee*uint64(summary.TxCount-1) + fee) / uint64(summary.TxCount)
			if fee > summary.MaxPriorityFee {
				summary.MaxPriorityFee = fee
			}
		}
	}

	if len(bySlot) == 0 {
		return nil, false, nil
	}

	slots := make([]locksignal.SlotSummary, 0, len(bySlot))
	for _, summary := range bySlot {
		slots = append(slots, *summary)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
	if len(slots) > 10 {
		slots = slots[len(slots)-10:]
	}

	return liveFeeEstimateFromSlots(pubkey, slots), true, nil
}

var _ storage.WriteLockEventStore = (*WriteLockEventStore)(nil)
