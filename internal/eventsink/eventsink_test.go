package eventsink

import (
	"context"
	"testing"
	"time"

	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/storage/memory"
)

func strPtr(s string) *string { return &s }
func u64Ptr(v uint64) *uint64 { return &v }

func TestInsertSlotEventsDeliversToStoreAndMetadata(t *testing.T) {
	events := memory.NewWriteLockEventStore()
	meta := memory.NewAccountMetadataStore()
	sink := New(events, meta, nil)

	raydium := "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	batch := []*locksignal.WriteLockEvent{
		{
			Time:                 time.Now(),
			Slot:                 100,
			AccountPubkey:        "AccountA",
			ProgramID:            &raydium,
			TransactionSignature: "sig1",
			Success:              true,
			LockContentionScore:  2,
			PriorityFeeLamports:  u64Ptr(5000),
		},
	}

	if err := sink.InsertSlotEvents(context.Background(), batch); err != nil {
		t.Fatalf("InsertSlotEvents: %v", err)
	}

	stats, err := events.AccountStats(context.Background(), "AccountA", time.Hour)
	if err != nil {
		t.Fatalf("AccountStats: %v", err)
	}
	if stats.LockAttempts != 1 {
		t.Fatalf("expected 1 lock attempt, got %d", stats.LockAttempts)
	}

	rec, err := meta.Get(context.Background(), "AccountA")
	if err != nil {
		t.Fatalf("Get metadata: %v", err)
	}
	if rec.Label != "Raydium AMM" {
		t.Fatalf("expected known-program label, got %q", rec.Label)
	}
}

func TestInsertSlotEventsEmptyBatchIsNoop(t *testing.T) {
	events := memory.NewWriteLockEventStore()
	sink := New(events, nil, nil)
	if err := sink.InsertSlotEvents(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
}

func TestInsertSlotEventsWithoutMetadataStoreSkipsUpsert(t *testing.T) {
	events := memory.NewWriteLockEventStore()
	sink := New(events, nil, nil)

	batch := []*locksignal.WriteLockEvent{
		{
			Time:                 time.Now(),
			Slot:                 1,
			AccountPubkey:        "AccountB",
			TransactionSignature: "sig2",
			Success:              true,
			LockContentionScore:  1,
		},
	}
	if err := sink.InsertSlotEvents(context.Background(), batch); err != nil {
		t.Fatalf("InsertSlotEvents: %v", err)
	}
}

func TestInsertSlotEventsDedupesMetadataUpsertsPerAccount(t *testing.T) {
	events := memory.NewWriteLockEventStore()
	meta := memory.NewAccountMetadataStore()
	sink := New(events, meta, nil)

	batch := []*locksignal.WriteLockEvent{
		{Time: time.Now(), Slot: 1, AccountPubkey: "AccountC", TransactionSignature: "sig3", Success: true, LockContentionScore: 2},
		{Time: time.Now(), Slot: 1, AccountPubkey: "AccountC", TransactionSignature: "sig4", Success: true, LockContentionScore: 2, ProgramID: strPtr("SomeProgram")},
	}
	if err := sink.InsertSlotEvents(context.Background(), batch); err != nil {
		t.Fatalf("InsertSlotEvents: %v", err)
	}

	rec, err := meta.Get(context.Background(), "AccountC")
	if err != nil {
		t.Fatalf("Get metadata: %v", err)
	}
	if rec.ProgramID != "SomeProgram" {
		t.Fatalf("expected coalesced ProgramID from second event, got %q", rec.ProgramID)
	}
}
