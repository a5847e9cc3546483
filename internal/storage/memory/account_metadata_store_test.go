package memory

import (
	"context"
	"testing"
	"time"

	"solana-lock-signal/internal/storage"
)

func TestAccountMetadataStore_UpsertCoalesces(t *testing.T) {
	store := NewAccountMetadataStore()
	ctx := context.Background()
	t1 := time.Now()

	if err := store.Upsert(ctx, storage.AccountMetadataRecord{Pubkey: "X", ProgramID: "P1", Label: "Raydium AMM", LastSeen: t1}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	t2 := t1.Add(time.Second)
	if err := store.Upsert(ctx, storage.AccountMetadataRecord{Pubkey: "X", LastSeen: t2}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Get(ctx, "X")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProgramID != "P1" || got.Label != "Raydium AMM" {
		t.Fatalf("expected coalesced fields to survive, got %+v", got)
	}
	if !got.LastSeen.Equal(t2) {
		t.Fatalf("LastSeen not updated: got %v, want %v", got.LastSeen, t2)
	}
}

func TestAccountMetadataStore_GetNotFound(t *testing.T) {
	store := NewAccountMetadataStore()
	if _, err := store.Get(context.Background(), "ghost"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
