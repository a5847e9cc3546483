package solana

import (
	"context"
	"fmt"
	"time"
)

// SubscribeSlots subscribes to the upstream slotSubscribe feed: a hint
// that a new slot has likely been produced, let alone finalized, useful
// only to shorten the Block Poller's sleep reactively (SPEC_FULL.md §5.4).
// The Block Poller's correctness never depends on a value arriving here.
func (c *WSClientImpl) SubscribeSlots(ctx context.Context) (<-chan uint64, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "slotSubscribe",
	}

	confirmCh := make(chan int64, 1)
	c.pendingSlotSubsMu.Lock()
	c.pendingSlotSubs[reqID] = confirmCh
	c.pendingSlotSubsMu.Unlock()

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		c.pendingSlotSubsMu.Lock()
		delete(c.pendingSlotSubs, reqID)
		c.pendingSlotSubsMu.Unlock()
		return nil, fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		c.pendingSlotSubsMu.Lock()
		delete(c.pendingSlotSubs, reqID)
		c.pendingSlotSubsMu.Unlock()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	var subID int64
	select {
	case subID = <-confirmCh:
	case <-time.After(30 * time.Second):
		c.pendingSlotSubsMu.Lock()
		delete(c.pendingSlotSubs, reqID)
		c.pendingSlotSubsMu.Unlock()
		return nil, fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-ctx.Done():
		c.pendingSlotSubsMu.Lock()
		delete(c.pendingSlotSubs, reqID)
		c.pendingSlotSubsMu.Unlock()
		return nil, ctx.Err()
	}

	// Buffered and lossy by design: a missed hint just means the poller
	// falls back to its blind 100ms cadence for that slot.
	ch := make(chan uint64, 16)
	c.slotSubsMu.Lock()
	c.slotSubs[subID] = ch
	c.slotSubsMu.Unlock()

	return ch, nil
}

func (c *WSClientImpl) handleSlotNotification(notif *wsSlotNotification) {
	if notif.Params == nil {
		return
	}

	c.slotSubsMu.RLock()
	ch, ok := c.slotSubs[notif.Params.Subscription]
	c.slotSubsMu.RUnlock()
	if !ok {
		return
	}

	select {
	case ch <- notif.Params.Result.Slot:
	default:
		// Drop rather than block: this is a hint, not a durable feed.
	}
}

type wsSlotNotification struct {
	JSONRPC string                    `json:"jsonrpc"`
	Method  string                    `json:"method"`
	Params  *wsSlotNotificationParams `json:"params"`
}

type wsSlotNotificationParams struct {
	Subscription int64        `json:"subscription"`
	Result       wsSlotResult `json:"result"`
}

type wsSlotResult struct {
	Parent uint64 `json:"parent"`
	Root   uint64 `json:"root"`
	Slot   uint64 `json:"slot"`
}
