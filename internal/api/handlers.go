package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/observability"
	"solana-lock-signal/internal/storage"
)

const (
	defaultStatsWindowMinutes       = 5
	defaultHotAccountsLimit         = 20
	defaultHotAccountsWindowMinutes = 5
	defaultAccountStatsWindowHours  = 24
)

// statsResponse is the §6 shape for GET /api/stats.
type statsResponse struct {
	UniqueAccounts         uint64  `json:"unique_accounts"`
	TotalEvents            uint64  `json:"total_events"`
	HighContentionAccounts uint64  `json:"high_contention_accounts"`
	AvgSuccessRate         float64 `json:"avg_success_rate"`
}

// accountStatsResponse is the §6 shape shared by hot-accounts entries and
// the per-account stats endpoint.
type accountStatsResponse struct {
	AccountPubkey   string  `json:"account_pubkey"`
	LockAttempts    uint64  `json:"lock_attempts"`
	SuccessfulLocks uint64  `json:"successful_locks"`
	SuccessRate     float64 `json:"success_rate"`
	AvgContention   float64 `json:"avg_contention"`
	MaxContention   float64 `json:"max_contention"`
	AvgPriorityFee  float64 `json:"avg_priority_fee"`
	MaxPriorityFee  uint64  `json:"max_priority_fee"`
}

// feeEstimateResponse is the §6 shape for fee-now and priority-fees/estimate.
type feeEstimateResponse struct {
	Account        string  `json:"account,omitempty"`
	QueueDepth     uint32  `json:"queue_depth,omitempty"`
	RecommendedFee uint64  `json:"recommended_fee_lamports"`
	RecommendedSOL float64 `json:"recommended_fee_sol"`
	AvgContention  float64 `json:"avg_contention,omitempty"`
	SlotsObserved  int     `json:"slots_observed,omitempty"`
}

type priorityFeeEstimateRequest struct {
	Accounts []string `json:"accounts"`
}

func toAccountStatsResponse(s *locksignal.AccountStats) accountStatsResponse {
	return accountStatsResponse{
		AccountPubkey:   s.AccountPubkey,
		LockAttempts:    s.LockAttempts,
		SuccessfulLocks: s.SuccessfulLocks,
		SuccessRate:     successRate(s.SuccessfulLocks, s.LockAttempts),
		AvgContention:   s.AvgContention,
		MaxContention:   s.MaxContention,
		AvgPriorityFee:  s.AvgPriorityFee,
		MaxPriorityFee:  s.MaxPriorityFee,
	}
}

// successRate implements spec.md §4.6: 100*successful/attempts, or 0 when
// there were no attempts.
func successRate(successful, attempts uint64) float64 {
	if attempts == 0 {
		return 0
	}
	return 100 * float64(successful) / float64(attempts)
}

// feeLamportsToSOL implements spec.md §4.6's recommended_fee_sol derivation.
func feeLamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / 1_000_000_000
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	route := "/api/stats"
	start := time.Now()

	windowMin := queryInt(r, "window", defaultStatsWindowMinutes)
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	stats, err := s.events.DashboardStats(ctx, time.Duration(windowMin)*time.Minute)
	if err != nil {
		s.writeError(w, route, start, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	resp := statsResponse{
		UniqueAccounts:         stats.UniqueAccounts,
		TotalEvents:            stats.TotalEvents,
		HighContentionAccounts: stats.HighContentionAccounts,
		AvgSuccessRate:         stats.AvgSuccessRatePercent,
	}
	s.writeJSON(w, route, start, http.StatusOK, resp)
}

func (s *Server) handleHotAccounts(w http.ResponseWriter, r *http.Request) {
	route := "/api/hot-accounts"
	start := time.Now()

	limit := queryInt(r, "limit", defaultHotAccountsLimit)
	windowMin := queryInt(r, "window", defaultHotAccountsWindowMinutes)

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	rows, err := s.events.HotAccounts(ctx, limit, time.Duration(windowMin)*time.Minute)
	if err != nil {
		s.writeError(w, route, start, http.StatusInternalServerError, "failed to compute hot accounts")
		return
	}

	resp := make([]accountStatsResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toAccountStatsResponse(row))
	}
	s.writeJSON(w, route, start, http.StatusOK, resp)
}

func (s *Server) handleAccountStats(w http.ResponseWriter, r *http.Request) {
	route := "/api/accounts/{pubkey}/stats"
	start := time.Now()

	pubkey := r.PathValue("pubkey")
	windowHours := queryInt(r, "window", defaultAccountStatsWindowHours)

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	stats, err := s.events.AccountStats(ctx, pubkey, time.Duration(windowHours)*time.Hour)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, route, start, http.StatusNotFound, "no rows for account in window")
			return
		}
		s.writeError(w, route, start, http.StatusInternalServerError, "failed to compute account stats")
		return
	}
	s.writeJSON(w, route, start, http.StatusOK, toAccountStatsResponse(stats))
}

func (s *Server) handleAccountFeeNow(w http.ResponseWriter, r *http.Request) {
	route := "/api/accounts/{pubkey}/fee-now"
	start := time.Now()

	pubkey := r.PathValue("pubkey")

	// The Live Tracker is the primary source (§4.4.1); a process that
	// never saw this account in memory falls back to the store's SQL
	// side implementation of the same formulas (§4.5 operation 5).
	if s.liveTracker != nil {
		if est, ok := s.liveTracker.GetLiveEstimate(pubkey); ok {
			s.writeJSON(w, route, start, http.StatusOK, liveEstimateResponse(est))
			return
		}
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	est, ok, err := s.events.LiveFeeEstimate(ctx, pubkey)
	if err != nil {
		s.writeError(w, route, start, http.StatusInternalServerError, "failed to compute live fee estimate")
		return
	}
	if !ok {
		s.writeError(w, route, start, http.StatusNotFound, "no recent events for account")
		return
	}
	s.writeJSON(w, route, start, http.StatusOK, liveEstimateResponse(*est))
}

func liveEstimateResponse(est locksignal.LiveFeeEstimate) feeEstimateResponse {
	return feeEstimateResponse{
		Account:        est.Account,
		QueueDepth:     est.QueueDepth,
		RecommendedFee: est.RecommendedFee,
		RecommendedSOL: feeLamportsToSOL(est.RecommendedFee),
		AvgContention:  est.AvgContention,
		SlotsObserved:  est.SlotsObserved,
	}
}

func (s *Server) handlePriorityFeesEstimate(w http.ResponseWriter, r *http.Request) {
	route := "/api/priority-fees/estimate"
	start := time.Now()

	var req priorityFeeEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, route, start, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Accounts) == 0 {
		s.writeError(w, route, start, http.StatusBadRequest, "accounts must not be empty")
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	fee, err := s.events.RecommendedPriorityFee(ctx, req.Accounts)
	if err != nil {
		s.writeError(w, route, start, http.StatusInternalServerError, "failed to compute recommended fee")
		return
	}

	resp := feeEstimateResponse{
		RecommendedFee: fee,
		RecommendedSOL: feeLamportsToSOL(fee),
	}
	s.writeJSON(w, route, start, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func (s *Server) writeJSON(w http.ResponseWriter, route string, start time.Time, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("error encoding response for %s: %v", route, err)
	}
	observability.RecordAPIRequest(route, strconv.Itoa(status), time.Since(start).Seconds())
}

func (s *Server) writeError(w http.ResponseWriter, route string, start time.Time, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
	observability.RecordAPIRequest(route, strconv.Itoa(status), time.Since(start).Seconds())
}
