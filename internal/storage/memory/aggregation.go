package memory

import (
	"math"
	"sort"

	"solana-lock-signal/internal/locksignal"
)

// aggregateByAccount computes the §4.5 per-account rollup
// (lock_attempts, successful_locks, avg/max priority fee, avg/max
// contention) for a set of events already filtered to a window.
func aggregateByAccount(events []*locksignal.WriteLockEvent) map[string]*locksignal.AccountStats {
	type acc struct {
		attempts   uint64
		successful uint64
		feeSum     float64
		feeCount   uint64
		maxFee     uint64
		contSum    float64
		maxCont    float64
	}
	tmp := make(map[string]*acc)

	for _, e := range events {
		a, ok := tmp[e.AccountPubkey]
		if !ok {
			a = &acc{}
			tmp[e.AccountPubkey] = a
		}
		a.attempts++
		if e.Success {
			a.successful++
		}
		if e.PriorityFeeLamports != nil {
			fee := *e.PriorityFeeLamports
			a.feeSum += float64(fee)
			a.feeCount++
			if fee > a.maxFee {
				a.maxFee = fee
			}
		}
		a.contSum += e.LockContentionScore
		if e.LockContentionScore > a.maxCont {
			a.maxCont = e.LockContentionScore
		}
	}

	out := make(map[string]*locksignal.AccountStats, len(tmp))
	for pubkey, a := range tmp {
		avgFee := 0.0
		if a.feeCount > 0 {
			avgFee = a.feeSum / float64(a.feeCount)
		}
		out[pubkey] = &locksignal.AccountStats{
			AccountPubkey:   pubkey,
			LockAttempts:    a.attempts,
			SuccessfulLocks: a.successful,
			AvgPriorityFee:  avgFee,
			MaxPriorityFee:  a.maxFee,
			AvgContention:   a.contSum / float64(a.attempts),
			MaxContention:   a.maxCont,
		}
	}
	return out
}

// percentile returns the p-th percentile (0 < p <= 1) of a sample,
// using linear interpolation between the two nearest ranks of the
// ascending-sorted values (rounded to the nearest integer).
// Returns 0 for an empty sample.
func percentile(values []uint64, p float64) uint64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]uint64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return uint64(math.Round(float64(sorted[lo])*(1-frac) + float64(sorted[hi])*frac))
}

// liveFeeEstimateFromSlots applies the §4.4.1 formulas to a slot series
// sourced from the durable store rather than the in-process Live Tracker.
func liveFeeEstimateFromSlots(account string, slots []locksignal.SlotSummary) *locksignal.LiveFeeEstimate {
	k := len(slots)
	var queueDepth uint32
	var contentionSum float64
	fees := make([]uint64, 0, k)
	for _, s := range slots {
		queueDepth += s.TxCount
		contentionSum += s.ContentionScore
		fees = append(fees, s.MaxPriorityFee)
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })

	p90Idx := int(math.Ceil(float64(k) * 0.9))
	idx := p90Idx - 1
	if idx < 0 {
		idx = 0
	}
	var p90Fee uint64
	if len(fees) > 0 {
		p90Fee = fees[idx]
	}

	return &locksignal.LiveFeeEstimate{
		Account:        account,
		QueueDepth:     queueDepth,
		P90Fee:         p90Fee,
		RecommendedFee: uint64(math.Floor(float64(p90Fee) * 1.2)),
		AvgContention:  contentionSum / float64(k),
		SlotsObserved:  k,
	}
}
