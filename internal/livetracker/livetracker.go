// Package livetracker implements the process-wide, concurrently shared Live
// Tracker: a map from account to a bounded ring of recent per-slot
// summaries, from which on-demand percentile-based fee estimates are
// derived. It is the single shared mutable resource inside the indexer
// process (§5 of the design); everything else is either per-slot scoped
// (Lock Detector) or owned by one goroutine (Block Poller's
// last_processed_slot).
package livetracker

import (
	"math"
	"sort"
	"sync"
	"time"

	"solana-lock-signal/internal/locksignal"
)

// DefaultWindow is the default per-account ring-buffer capacity W.
const DefaultWindow = 10

// StaleAfter is the age past which an account's state is pruned by
// CleanupStale.
const StaleAfter = 60 * time.Second

// Tracker is a concurrently-shared map of account -> AccountLiveState.
// A single sync.RWMutex guards both the outer map and the inner states,
// per spec.md §9 ("single big lock" — the sharded-lock alternative is a
// documented future improvement, not a requirement here).
type Tracker struct {
	mu     sync.RWMutex
	states map[string]*locksignal.AccountLiveState
	window int
	now    func() time.Time
}

// New returns a Tracker with per-account window capacity w. w <= 0 uses
// DefaultWindow.
func New(w int) *Tracker {
	if w <= 0 {
		w = DefaultWindow
	}
	return &Tracker{
		states: make(map[string]*locksignal.AccountLiveState),
		window: w,
		now:    time.Now,
	}
}

// RecordSlot appends a SlotSummary for account, evicting the oldest entry
// if the window would overflow, and refreshes last_seen.
func (t *Tracker) RecordSlot(account string, summary locksignal.SlotSummary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[account]
	if !ok {
		state = &locksignal.AccountLiveState{}
		t.states[account] = state
	}

	state.RecentSlots = append(state.RecentSlots, summary)
	if len(state.RecentSlots) > t.window {
		state.RecentSlots = state.RecentSlots[len(state.RecentSlots)-t.window:]
	}
	state.LastSeen = t.now()
}

// GetLiveEstimate computes the §4.4.1 fee estimate for account from its
// current window of recent slots. The second return value is false if the
// account has no recorded state.
func (t *Tracker) GetLiveEstimate(account string) (locksignal.LiveFeeEstimate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.states[account]
	if !ok || len(state.RecentSlots) == 0 {
		return locksignal.LiveFeeEstimate{}, false
	}

	return estimate(account, state.RecentSlots), true
}

// GetHotAccounts computes the estimate for every tracked account, sorts by
// descending average contention, and truncates to limit.
func (t *Tracker) GetHotAccounts(limit int) []locksignal.LiveFeeEstimate {
	t.mu.RLock()
	estimates := make([]locksignal.LiveFeeEstimate, 0, len(t.states))
	for account, state := range t.states {
		if len(state.RecentSlots) == 0 {
			continue
		}
		estimates = append(estimates, estimate(account, state.RecentSlots))
	}
	t.mu.RUnlock()

	sort.Slice(estimates, func(i, j int) bool {
		return estimates[i].AvgContention > estimates[j].AvgContention
	})

	if limit > 0 && len(estimates) > limit {
		estimates = estimates[:limit]
	}
	return estimates
}

// CleanupStale drops every account whose last_seen is older than
// StaleAfter. Called periodically by the Stale Reaper.
func (t *Tracker) CleanupStale() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-StaleAfter)
	removed := 0
	for account, state := range t.states {
		if state.LastSeen.Before(cutoff) {
			delete(t.states, account)
			removed++
		}
	}
	return removed
}

// Len reports the number of accounts currently tracked. Used by tests and
// by the indexer's status/metrics surface.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}

// estimate applies the §4.4.1 formulas to a window of recent slots.
// recentSlots must be non-empty.
func estimate(account string, recentSlots []locksignal.SlotSummary) locksignal.LiveFeeEstimate {
	k := len(recentSlots)

	var queueDepth uint32
	var contentionSum float64
	fees := make([]uint64, 0, k)
	for _, s := range recentSlots {
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

	recommendedFee := uint64(math.Floor(float64(p90Fee) * 1.2))

	return locksignal.LiveFeeEstimate{
		Account:        account,
		QueueDepth:     queueDepth,
		P90Fee:         p90Fee,
		RecommendedFee: recommendedFee,
		AvgContention:  contentionSum / float64(k),
		SlotsObserved:  k,
	}
}
