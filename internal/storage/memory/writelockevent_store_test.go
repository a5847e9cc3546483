package memory

import (
	"context"
	"testing"
	"time"

	"solana-lock-signal/internal/locksignal"
)

func u64(v uint64) *uint64 { return &v }

func TestWriteLockEventStore_InsertBulkDeduplicates(t *testing.T) {
	store := NewWriteLockEventStore()
	ctx := context.Background()

	e := &locksignal.WriteLockEvent{
		Time: time.Now(), Slot: 100, AccountPubkey: "X",
		TransactionSignature: "sigA", Success: true, LockContentionScore: 1,
		PriorityFeeLamports: u64(1000),
	}

	if err := store.InsertBulk(ctx, []*locksignal.WriteLockEvent{e, e}); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	stats, err := store.DashboardStats(ctx, time.Hour)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalEvents != 1 {
		t.Fatalf("TotalEvents = %d, want 1 (duplicate should be skipped)", stats.TotalEvents)
	}
}

func TestWriteLockEventStore_HotAccountsOrdering(t *testing.T) {
	store := NewWriteLockEventStore()
	ctx := context.Background()
	now := time.Now()

	events := []*locksignal.WriteLockEvent{
		{Time: now, Slot: 1, AccountPubkey: "low", TransactionSignature: "s1", Success: true, LockContentionScore: 1},
		{Time: now, Slot: 1, AccountPubkey: "high", TransactionSignature: "s2", Success: true, LockContentionScore: 9},
		{Time: now, Slot: 1, AccountPubkey: "high", TransactionSignature: "s3", Success: true, LockContentionScore: 9},
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	hot, err := store.HotAccounts(ctx, 10, time.Hour)
	if err != nil {
		t.Fatalf("HotAccounts: %v", err)
	}
	if len(hot) != 2 || hot[0].AccountPubkey != "high" {
		t.Fatalf("unexpected order: %+v", hot)
	}
}

func TestWriteLockEventStore_AccountStatsNotFound(t *testing.T) {
	store := NewWriteLockEventStore()
	if _, err := store.AccountStats(context.Background(), "ghost", time.Hour); err == nil {
		t.Fatalf("expected error for unknown account")
	}
}

func TestWriteLockEventStore_RecommendedPriorityFeeP75(t *testing.T) {
	store := NewWriteLockEventStore()
	ctx := context.Background()
	now := time.Now()

	var events []*locksignal.WriteLockEvent
	for i := 1; i <= 100; i++ {
		events = append(events, &locksignal.WriteLockEvent{
			Time: now, Slot: uint64(i), AccountPubkey: "X",
			TransactionSignature: string(rune(i)), Success: true, LockContentionScore: 1,
			PriorityFeeLamports: u64(uint64(i) * 100),
		})
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	fee, err := store.RecommendedPriorityFee(ctx, []string{"X"})
	if err != nil {
		t.Fatalf("RecommendedPriorityFee: %v", err)
	}
	if fee != 7525 {
		t.Fatalf("RecommendedPriorityFee = %d, want 7525", fee)
	}
}

func TestWriteLockEventStore_SuccessRateBoundedAtZeroAttempts(t *testing.T) {
	store := NewWriteLockEventStore()
	stats, err := store.DashboardStats(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.AvgSuccessRatePercent != 0 {
		t.Fatalf("AvgSuccessRatePercent = %v, want 0 for no events", stats.AvgSuccessRatePercent)
	}
}
