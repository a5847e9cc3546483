package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/storage/memory"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWSSendsConnectedMessageThenPeriodicUpdate(t *testing.T) {
	store := memory.NewWriteLockEventStore()
	fee := uint64(3000)
	if err := store.InsertBulk(reqCtx(), []*locksignal.WriteLockEvent{{
		Time: time.Now(), Slot: 1, AccountPubkey: "X",
		TransactionSignature: "sig1", Success: true, LockContentionScore: 3, PriorityFeeLamports: &fee,
	}}); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	s := New(Options{Events: store, PushCadence: 20 * time.Millisecond})
	httpSrv := httptest.NewServer(s.Handler())
	defer httpSrv.Close()

	conn := dialWS(t, httpSrv)
	defer conn.Close()

	var connected wsMessage
	if err := conn.ReadJSON(&connected); err != nil {
		t.Fatalf("read connected message: %v", err)
	}
	if connected.Type != "connected" {
		t.Fatalf("expected type=connected, got %+v", connected)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update wsMessage
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read push update: %v", err)
	}
	if update.Type != "hot-accounts-update" {
		t.Fatalf("expected type=hot-accounts-update, got %+v", update)
	}
}

func TestWSAcceptsSubscribeMessageWithoutClosing(t *testing.T) {
	store := memory.NewWriteLockEventStore()
	s := New(Options{Events: store, PushCadence: 20 * time.Millisecond})
	httpSrv := httptest.NewServer(s.Handler())
	defer httpSrv.Close()

	conn := dialWS(t, httpSrv)
	defer conn.Close()

	var connected wsMessage
	if err := conn.ReadJSON(&connected); err != nil {
		t.Fatalf("read connected message: %v", err)
	}

	if err := conn.WriteJSON(wsMessage{Type: "subscribe", Channel: "hot-accounts"}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update wsMessage
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("connection closed after subscribe message: %v", err)
	}
}
