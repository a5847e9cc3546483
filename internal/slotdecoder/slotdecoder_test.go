package slotdecoder

import (
	"context"
	"errors"
	"testing"

	"github.com/mr-tron/base58"

	"solana-lock-signal/internal/solana"
	"solana-lock-signal/internal/solana/stub"
)

// fixedAccountKey returns a base58-encoded 32-byte key so fixtures pass
// solana.ValidPubkeyShape the same way a real account key would — a short
// placeholder like "X" would be silently dropped by Decode's shape check.
func fixedAccountKey(fill byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	return base58.Encode(key)
}

func messageWithWritableSigner(accountKeys []string) *solana.TransactionMessage {
	return &solana.TransactionMessage{
		AccountKeys: accountKeys,
		Header: solana.MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 1,
		},
	}
}

func TestDecodeSingleSlotNoContention(t *testing.T) {
	account := fixedAccountKey(0x01)
	rpc := stub.NewRPCClient()
	rpc.AddBlock(&solana.Block{
		Slot: 100,
		Transactions: []solana.Transaction{
			{
				Slot:      100,
				Signature: "sigA",
				Message:   messageWithWritableSigner([]string{account, "11111111111111111111111111111111"}),
				Meta:      &solana.TransactionMeta{Fee: 1000},
			},
		},
	})

	d := New(rpc)
	result, err := d.Decode(context.Background(), 100)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	ev := result.Events[0]
	if ev.AccountPubkey != account || ev.LockContentionScore != 1.0 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !ev.Success {
		t.Fatalf("expected success=true")
	}
	// A single-tx account must still appear in Contention with its full
	// count (1.0), not be absent (which a map lookup would silently read
	// back as 0.0) — this is what feeds SlotSummary.ContentionScore.
	if score, ok := result.Contention[account]; !ok || score != 1.0 {
		t.Fatalf("expected Contention[account] = 1.0, got %v, ok=%v", score, ok)
	}
}

func TestDecodeThreeWayContentionAssignsFinalCountToAllEvents(t *testing.T) {
	account := fixedAccountKey(0x02)
	rpc := stub.NewRPCClient()
	msg := func(sig string) *solana.TransactionMessage {
		return messageWithWritableSigner([]string{account})
	}
	rpc.AddBlock(&solana.Block{
		Slot: 101,
		Transactions: []solana.Transaction{
			{Slot: 101, Signature: "sigA", Message: msg("sigA"), Meta: &solana.TransactionMeta{Fee: 1000}},
			{Slot: 101, Signature: "sigB", Message: msg("sigB"), Meta: &solana.TransactionMeta{Fee: 2000}},
			{Slot: 101, Signature: "sigC", Message: msg("sigC"), Meta: &solana.TransactionMeta{Fee: 3000}},
		},
	})

	d := New(rpc)
	result, err := d.Decode(context.Background(), 101)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(result.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(result.Events))
	}
	for _, ev := range result.Events {
		if ev.LockContentionScore != 3.0 {
			t.Fatalf("expected every event in the slot to carry the final count 3.0, got %v", ev.LockContentionScore)
		}
	}
	if len(result.Aggregates) != 1 {
		t.Fatalf("expected 1 account aggregate, got %d", len(result.Aggregates))
	}
	agg := result.Aggregates[0]
	if agg.TxCount != 3 || agg.MaxFee != 3000 || agg.SumFee != 6000 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
}

func TestDecodeEmptyBlockReturnsNoEvents(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBlock(&solana.Block{Slot: 999})

	d := New(rpc)
	result, err := d.Decode(context.Background(), 999)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("expected no events for an empty block, got %d", len(result.Events))
	}
}

func TestDecodeSlotSkippedClassifiesAsErrBlockNotFound(t *testing.T) {
	rpc := &skippedSlotRPC{}
	d := New(rpc)
	_, err := d.Decode(context.Background(), 42)
	if !errors.Is(err, ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
}

func TestDecodeResolvesFirstNonInfrastructureProgramID(t *testing.T) {
	rpc := stub.NewRPCClient()
	msg := &solana.TransactionMessage{
		AccountKeys: []string{fixedAccountKey(0x03), "11111111111111111111111111111111", "ComputeBudget111111111111111111111111111111", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"},
		Header: solana.MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 3,
		},
	}
	msg.Instructions = []solana.CompiledInstruction{
		{ProgramIDIndex: 1},
		{ProgramIDIndex: 2},
		{ProgramIDIndex: 3},
	}
	rpc.AddBlock(&solana.Block{
		Slot: 200,
		Transactions: []solana.Transaction{
			{Slot: 200, Signature: "sigD", Message: msg, Meta: &solana.TransactionMeta{Fee: 500}},
		},
	})

	d := New(rpc)
	result, err := d.Decode(context.Background(), 200)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(result.Events) != 1 || result.Events[0].ProgramID == nil {
		t.Fatalf("expected resolved program_id, got %+v", result.Events)
	}
	if *result.Events[0].ProgramID != "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8" {
		t.Fatalf("expected first non-infrastructure program, got %s", *result.Events[0].ProgramID)
	}
}

// skippedSlotRPC is a minimal RPCClient stub that always reports the slot
// as skipped via a JSON-RPC error code, independent of stub.RPCClient's
// plain not-found semantics.
type skippedSlotRPC struct{}

func (s *skippedSlotRPC) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return nil, nil
}

func (s *skippedSlotRPC) GetBlock(ctx context.Context, slot int64) (*solana.Block, error) {
	return nil, &solana.RPCError{Code: -32007, Message: "Slot 42 was skipped, or missing due to ledger jump to recent snapshot"}
}

func (s *skippedSlotRPC) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return nil, nil
}
