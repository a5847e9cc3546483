// Package locksignal defines the shared record types that flow between the
// Lock Detector, the Live Tracker, the Event Sink and the API's query
// handlers: WriteLockEvent (the durable record), SlotSummary and
// AccountLiveState (the in-memory live-tracker state) and LiveFeeEstimate
// (the derived, on-demand estimate).
package locksignal

import "time"

// WriteLockEvent is the single durable record emitted by the Slot Decoder
// and appended by the Event Sink. One event exists per (slot, account,
// transaction_signature) triple.
type WriteLockEvent struct {
	Time                  time.Time
	Slot                  uint64
	AccountPubkey         string
	ProgramID             *string
	TransactionSignature  string
	Success               bool
	LockContentionScore   float64
	PriorityFeeLamports   *uint64
	ComputeUnitsConsumed  *uint32
	// ComputeUnitPriceMicroLamports is the price bid extracted from a
	// ComputeBudget::SetComputeUnitPrice instruction, where present. It is
	// additive to PriorityFeeLamports (which remains tx.meta.fee, the
	// base+priority total reported by the chain) — see §9 of the design
	// notes: the source conflates base fee and priority fee under that
	// name, and this field records the real bid when it can be recovered.
	ComputeUnitPriceMicroLamports *uint64
}

// SlotSummary is one slot's contribution to an account's live state.
type SlotSummary struct {
	Slot            uint64
	ContentionScore float64
	TxCount         uint32
	AvgPriorityFee  uint64
	MaxPriorityFee  uint64
}

// AccountLiveState is the in-memory, per-account ring of recent slot
// summaries maintained by the Live Tracker.
type AccountLiveState struct {
	RecentSlots []SlotSummary
	LastSeen    time.Time
}

// LiveFeeEstimate is the derived, on-demand fee estimate computed from an
// AccountLiveState's window of recent slots.
type LiveFeeEstimate struct {
	Account         string
	QueueDepth      uint32
	P90Fee          uint64
	RecommendedFee  uint64
	AvgContention   float64
	SlotsObserved   int
}

// AccountStats is the durable-store aggregate returned by account_stats and
// by the hot_accounts query, per §4.5 of the design.
type AccountStats struct {
	AccountPubkey    string
	LockAttempts     uint64
	SuccessfulLocks  uint64
	AvgPriorityFee   float64
	MaxPriorityFee   uint64
	AvgContention    float64
	MaxContention    float64
}

// DashboardStats is the result of the dashboard_stats aggregation.
type DashboardStats struct {
	UniqueAccounts          uint64
	TotalEvents             uint64
	HighContentionAccounts  uint64
	AvgSuccessRatePercent   float64
}
