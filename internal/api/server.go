// Package api implements the read-side HTTP surface: the query handlers
// over the durable store (§4.5/§6) and the /ws push channel that streams
// hot-account snapshots to connected clients (§4.6).
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"solana-lock-signal/internal/livetracker"
	"solana-lock-signal/internal/observability"
	"solana-lock-signal/internal/storage"
)

// Version is the static string returned by GET /.
const Version = "solana-lock-signal-api/1"

// defaultQueryTimeout bounds every handler's call into the store, per
// spec.md §5 ("implementers SHOULD add one (recommended 10 s)").
const defaultQueryTimeout = 10 * time.Second

// Server holds the dependencies the query handlers and push channel read
// from and wires them to an http.ServeMux.
type Server struct {
	events       storage.WriteLockEventStore
	liveTracker  *livetracker.Tracker
	logger       *log.Logger
	queryTimeout time.Duration
	pushCadence  time.Duration
}

// Options configures a new Server.
type Options struct {
	Events       storage.WriteLockEventStore
	LiveTracker  *livetracker.Tracker
	Logger       *log.Logger
	QueryTimeout time.Duration
	// PushCadence overrides the /ws broadcast interval; zero uses
	// pushCadence (5s, per spec.md §4.6). Tests shrink this.
	PushCadence time.Duration
}

// New creates a Server and returns it unstarted; call Handler to obtain
// the wired http.Handler.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.QueryTimeout
	if timeout == 0 {
		timeout = defaultQueryTimeout
	}
	cadence := opts.PushCadence
	if cadence == 0 {
		cadence = pushCadence
	}
	return &Server{
		events:       opts.Events,
		liveTracker:  opts.LiveTracker,
		logger:       logger,
		queryTimeout: timeout,
		pushCadence:  cadence,
	}
}

// Handler builds the routed http.Handler: the query handlers, the push
// channel, health and metrics endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/hot-accounts", s.handleHotAccounts)
	mux.HandleFunc("GET /api/accounts/{pubkey}/stats", s.handleAccountStats)
	mux.HandleFunc("GET /api/accounts/{pubkey}/fee-now", s.handleAccountFeeNow)
	mux.HandleFunc("POST /api/priority-fees/estimate", s.handlePriorityFeesEstimate)

	mux.HandleFunc("GET /ws", s.handleWS)

	return mux
}

// withTimeout derives a bounded context for one handler invocation.
func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.queryTimeout)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(Version))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
