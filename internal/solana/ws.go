package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SlotSubscriber is the optional upstream fast-path: a hint channel of
// "a new slot is likely ready", consulted only to shorten the Block
// Poller's sleep (SPEC_FULL.md §5.4). WSClientImpl implements this in
// addition to WSClient; it is not part of the WSClient interface because
// it is optional and not every upstream/test double needs it.
type SlotSubscriber interface {
	SubscribeSlots(ctx context.Context) (<-chan uint64, error)
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
