// Package slotdecoder fetches one block and decodes it into write-lock
// events plus per-account aggregates for the Live Tracker.
package slotdecoder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"solana-lock-signal/internal/knownprograms"
	"solana-lock-signal/internal/lockdetector"
	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/solana"
)

// ErrBlockNotFound classifies a "slot was skipped" / "block not found"
// response from the upstream RPC — a normal, expected outcome, never
// logged as a warning, carrying zero events (spec.md §7).
var ErrBlockNotFound = errors.New("slotdecoder: block not found")

// setComputeUnitPriceDiscriminator is the ComputeBudget program's
// instruction tag for SetComputeUnitPrice.
const setComputeUnitPriceDiscriminator = 3

// Decoder fetches and decodes a single slot's block.
type Decoder struct {
	rpc solana.RPCClient
	now func() time.Time
}

// New creates a Decoder reading blocks through rpc.
func New(rpc solana.RPCClient) *Decoder {
	return &Decoder{rpc: rpc, now: time.Now}
}

// AccountAggregate is the (account, tx_count, sum_fee, max_fee) tuple the
// Slot Decoder derives per account for the Live Tracker's record_slot call.
type AccountAggregate struct {
	Account string
	TxCount uint32
	SumFee  uint64
	MaxFee  uint64
}

// Result is the output of decoding one slot.
type Result struct {
	Events     []*locksignal.WriteLockEvent
	Aggregates []AccountAggregate
	// Contention maps every account touched in the slot to its full
	// contention count (lockdetector.Counts, not ContendedAccounts — a
	// single-tx account must still carry 1.0, the same count its events
	// record, not a missing-key zero).
	Contention map[string]float64
}

// Decode fetches the block at slot and decodes it per spec.md §4.2. A
// missing block returns (&Result{}, nil) — not an error — matching the
// "missing block ⇒ return empty lists" edge case; ErrBlockNotFound is
// reserved for the RPC transport explicitly classifying the slot as
// skipped (solana.IsSlotSkipped below; the Block Poller checks for it).
func (d *Decoder) Decode(ctx context.Context, slot uint64) (*Result, error) {
	block, err := d.rpc.GetBlock(ctx, int64(slot))
	if err != nil {
		if solana.IsSlotSkipped(err) {
			return &Result{}, ErrBlockNotFound
		}
		return nil, fmt.Errorf("get block %d: %w", slot, err)
	}
	if block == nil {
		return &Result{}, nil
	}

	// Pass 1: track every transaction's writable-account set so the
	// contention score assigned in pass 2 reflects the whole slot
	// (spec.md invariant 2 — the literal single-pass running count the
	// original source used is the bug this MUST fix).
	detector := lockdetector.New()
	type decoded struct {
		signature string
		writable  []string
		programID *string
		fee       uint64
		cuPrice   *uint64
		cu        *uint32
		success   bool
	}
	decodedTxs := make([]decoded, 0, len(block.Transactions))

	for _, tx := range block.Transactions {
		if tx.Message == nil || tx.Signature == "" {
			continue
		}

		var writable []string
		for i, key := range tx.Message.AccountKeys {
			if !tx.Message.IsMaybeWritable(i) {
				continue
			}
			// Defensive shape check before the key is ever tracked or
			// persisted: a malformed (non-32-byte) key means the RPC
			// payload is corrupt, not that the account is a PDA (PDAs are
			// legitimately off-curve, which ValidPubkeyShape reports but
			// never rejects on).
			if ok, _ := solana.ValidPubkeyShape(key); !ok {
				continue
			}
			writable = append(writable, key)
		}
		if len(writable) == 0 {
			continue
		}

		detector.Track(tx.Signature, writable)

		var fee uint64
		var cu *uint32
		success := true
		if tx.Meta != nil {
			fee = tx.Meta.Fee
			cu = tx.Meta.ComputeUnitsConsumed
			success = tx.Meta.Err == nil
		}

		decodedTxs = append(decodedTxs, decoded{
			signature: tx.Signature,
			writable:  writable,
			programID: resolveProgramID(tx.Message),
			fee:       fee,
			cuPrice:   resolveComputeUnitPrice(tx.Message),
			cu:        cu,
			success:   success,
		})
	}

	now := d.now()
	result := &Result{Contention: detector.Counts()}

	accAgg := make(map[string]*AccountAggregate)
	for _, dt := range decodedTxs {
		for _, account := range dt.writable {
			score := detector.Count(account)

			event := &locksignal.WriteLockEvent{
				Time:                 now,
				Slot:                 slot,
				AccountPubkey:        account,
				ProgramID:            dt.programID,
				TransactionSignature: dt.signature,
				Success:              dt.success,
				LockContentionScore:  score,
			}
			if dt.fee > 0 {
				fee := dt.fee
				event.PriorityFeeLamports = &fee
			}
			event.ComputeUnitsConsumed = dt.cu
			event.ComputeUnitPriceMicroLamports = dt.cuPrice

			result.Events = append(result.Events, event)

			agg, ok := accAgg[account]
			if !ok {
				agg = &AccountAggregate{Account: account}
				accAgg[account] = agg
			}
			agg.TxCount++
			agg.SumFee += dt.fee
			if dt.fee > agg.MaxFee {
				agg.MaxFee = dt.fee
			}
		}
	}

	for _, agg := range accAgg {
		result.Aggregates = append(result.Aggregates, *agg)
	}

	return result, nil
}

// resolveProgramID returns the first program id referenced by an
// instruction that is neither the system program nor the compute-budget
// program, per spec.md §4.2 step 2.
func resolveProgramID(msg *solana.TransactionMessage) *string {
	for _, ix := range msg.Instructions {
		if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(msg.AccountKeys) {
			continue
		}
		id := msg.AccountKeys[ix.ProgramIDIndex]
		if knownprograms.IsInfrastructureProgram(id) {
			continue
		}
		return &id
	}
	return nil
}

// resolveComputeUnitPrice scans decoded instructions for a ComputeBudget
// SetComputeUnitPrice instruction and returns its micro-lamports price,
// per SPEC_FULL.md §5.3 (the "SHOULD parse ComputeBudget::
// SetComputeUnitPrice" note in spec.md §9, promoted to an implemented
// extra column rather than replacing priority_fee_lamports).
func resolveComputeUnitPrice(msg *solana.TransactionMessage) *uint64 {
	for _, ix := range msg.Instructions {
		if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(msg.AccountKeys) {
			continue
		}
		if msg.AccountKeys[ix.ProgramIDIndex] != knownprograms.ComputeBudgetProgram {
			continue
		}
		data, err := base58.Decode(ix.Data)
		if err != nil {
			continue
		}
		if len(data) < 9 || data[0] != setComputeUnitPriceDiscriminator {
			continue
		}
		price := binary.LittleEndian.Uint64(data[1:9])
		return &price
	}
	return nil
}
