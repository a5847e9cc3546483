package postgres

import (
	"math"
	"sort"

	"solana-lock-signal/internal/locksignal"
)

// applyLiveFeeFormulas applies the §4.4.1 fee-estimate formulas to a
// slot series already sourced in ascending-slot order.
func applyLiveFeeFormulas(account string, slots []locksignal.SlotSummary) *locksignal.LiveFeeEstimate {
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
