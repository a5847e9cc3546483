package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"solana-lock-signal/internal/observability"
)

// pushCadence is how often the push channel recomputes hot_accounts(20, 5)
// and broadcasts it to every connected subscriber (spec.md §4.6).
const pushCadence = 5 * time.Second

// pushHotAccountsLimit and pushHotAccountsWindow are the fixed arguments
// to hot_accounts for the push channel, per spec.md §4.6 ("hot_accounts(20, 5)").
const (
	pushHotAccountsLimit  = 20
	pushHotAccountsWindow = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is the envelope for every frame sent or received on /ws.
type wsMessage struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// hotAccountSnapshot is the condensed per-account shape the push channel
// sends, per spec.md §4.6: "pubkey, contention, attempts, avg fee".
type hotAccountSnapshot struct {
	AccountPubkey string  `json:"account_pubkey"`
	Contention    float64 `json:"contention"`
	Attempts      uint64  `json:"attempts"`
	AvgFee        float64 `json:"avg_fee"`
}

// handleWS upgrades the connection and runs the paired sender/receiver
// tasks for its lifetime (spec.md §5: "push-channel tasks are paired; when
// either terminates the other is aborted cooperatively").
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	observability.DefaultMetrics.WSConnections.Inc()
	defer observability.DefaultMetrics.WSConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Force-close on cancellation so a blocked ReadJSON in the receive
	// loop unblocks immediately rather than waiting for the peer.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := conn.WriteJSON(wsMessage{Type: "connected", Message: "subscribed to write-lock signal updates"}); err != nil {
		return
	}

	done := make(chan struct{}, 2)
	go func() {
		s.wsReceiveLoop(conn)
		cancel()
		done <- struct{}{}
	}()
	go func() {
		s.wsSendLoop(ctx, conn)
		cancel()
		done <- struct{}{}
	}()

	<-ctx.Done()
	<-done
	<-done
}

// wsReceiveLoop drains client frames. Subscribe/unsubscribe messages are
// accepted and logged but never change what the send loop pushes — the
// feed is not yet filterable per channel (spec.md §9).
func (s *Server) wsReceiveLoop(conn *websocket.Conn) {
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe", "unsubscribe":
			s.logger.Printf("ws client %s channel=%q (not yet filtered)", msg.Type, msg.Channel)
		default:
			s.logger.Printf("ws client sent unrecognized message type %q", msg.Type)
		}
	}
}

// wsSendLoop pushes a hot-accounts snapshot on a fixed cadence until ctx
// is cancelled or a write fails.
func (s *Server) wsSendLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pushCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := s.hotAccountsSnapshot(ctx)
			if err != nil {
				s.logger.Printf("ws push: %v", err)
				continue
			}
			if err := conn.WriteJSON(wsMessage{Type: "hot-accounts-update", Data: snapshot}); err != nil {
				return
			}
			observability.DefaultMetrics.WSPushesSent.Inc()
		}
	}
}

func (s *Server) hotAccountsSnapshot(ctx context.Context) ([]hotAccountSnapshot, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.events.HotAccounts(queryCtx, pushHotAccountsLimit, pushHotAccountsWindow)
	if err != nil {
		return nil, err
	}

	snapshot := make([]hotAccountSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshot = append(snapshot, hotAccountSnapshot{
			AccountPubkey: row.AccountPubkey,
			Contention:    row.AvgContention,
			Attempts:      row.LockAttempts,
			AvgFee:        row.AvgPriorityFee,
		})
	}
	return snapshot, nil
}
