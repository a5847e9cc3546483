// Package blockpoller drives the indexer's catch-up loop: it owns
// last_processed_slot and advances it strictly forward, one slot at a
// time, feeding each slot to the Slot Decoder.
package blockpoller

import (
	"context"
	"errors"
	"log"
	"time"

	"solana-lock-signal/internal/eventsink"
	"solana-lock-signal/internal/livetracker"
	"solana-lock-signal/internal/locksignal"
	"solana-lock-signal/internal/observability"
	"solana-lock-signal/internal/slotdecoder"
	"solana-lock-signal/internal/solana"
	"solana-lock-signal/internal/storage"
)

// DefaultPollInterval is the cadence between catch-up iterations; it must
// stay shorter than the chain's slot time.
const DefaultPollInterval = 100 * time.Millisecond

// startingSlotLag is how far behind the current confirmed slot the
// poller starts on first run, to avoid racing commitment (spec.md §4.1
// step 2).
const startingSlotLag = 5

// GetSlotter is the minimal upstream surface the poller needs to learn the
// current confirmed tip.
type GetSlotter interface {
	GetSlot(ctx context.Context) (int64, error)
}

// Poller owns last_processed_slot and drives the per-slot decode/sink
// pipeline.
type Poller struct {
	rpc          GetSlotter
	decoder      *slotdecoder.Decoder
	sink         *eventsink.Sink
	liveTracker  *livetracker.Tracker
	pollInterval time.Duration
	logger       *log.Logger

	lastProcessedSlot uint64
	sleep             func(d time.Duration)

	// slotHints is the optional upstream fast-path (SPEC_FULL.md §5.4): a
	// nil channel simply never fires, so the poller falls back to its
	// blind pollInterval cadence when no hint source is wired.
	slotHints <-chan uint64

	// watermarks persists last_processed_slot across restarts. Optional:
	// a nil store means the poller always starts startingSlotLag behind
	// the tip, as before.
	watermarks storage.SlotWatermarkStore
}

// Options configures a new Poller.
type Options struct {
	RPC          GetSlotter
	Decoder      *slotdecoder.Decoder
	Sink         *eventsink.Sink
	LiveTracker  *livetracker.Tracker
	PollInterval time.Duration
	Logger       *log.Logger
	// SlotHints, if set, lets the poller wake up reactively instead of
	// waiting out the full PollInterval. Purely additive: tick() always
	// re-derives the tip from RPC.GetSlot regardless of why it woke.
	SlotHints <-chan uint64
	// Watermarks, if set, persists last_processed_slot so a restarted
	// indexer resumes instead of jumping startingSlotLag behind the tip.
	Watermarks storage.SlotWatermarkStore
}

// New creates a Poller. last_processed_slot starts at 0, meaning "unset";
// the first iteration computes it from the current tip per spec.md §4.1
// step 2.
func New(opts Options) *Poller {
	interval := opts.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		rpc:          opts.RPC,
		decoder:      opts.Decoder,
		sink:         opts.Sink,
		liveTracker:  opts.LiveTracker,
		pollInterval: interval,
		logger:       logger,
		sleep:        time.Sleep,
		slotHints:    opts.SlotHints,
		watermarks:   opts.Watermarks,
	}
}

// LastProcessedSlot returns the poller's current watermark.
func (p *Poller) LastProcessedSlot() uint64 {
	return p.lastProcessedSlot
}

// Run blocks, iterating the catch-up loop until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Println("block poller started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Println("block poller stopping")
			return ctx.Err()
		default:
		}

		if err := p.tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Printf("poll iteration error: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-after(p.sleep, p.pollInterval):
		case <-p.slotHints:
			// Upstream hinted a new slot is likely ready; tick() still
			// re-derives the tip independently, so an early or stale hint
			// is harmless.
		}
	}
}

// tick runs one catch-up iteration: fetch the tip, then decode every slot
// from last_processed_slot+1 through the tip in order.
func (p *Poller) tick(ctx context.Context) error {
	current, err := p.rpc.GetSlot(ctx)
	if err != nil {
		return err
	}
	tip := uint64(current)

	if p.lastProcessedSlot == 0 {
		if saved, err := p.loadWatermark(ctx); err == nil {
			p.lastProcessedSlot = saved
			p.logger.Printf("resuming from persisted slot %d", saved)
			return nil
		}
		if tip > startingSlotLag {
			p.lastProcessedSlot = tip - startingSlotLag
		}
		p.logger.Printf("starting from slot %d", p.lastProcessedSlot)
		return nil
	}

	for s := p.lastProcessedSlot + 1; s <= tip; s++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.processSlot(ctx, s)
		// Advance regardless of outcome: a stalled slot must never block
		// the watermark (spec.md §4.1 step 3, "advance and record a skip").
		p.lastProcessedSlot = s
		p.saveWatermark(ctx, s)
	}
	return nil
}

// loadWatermark returns the persisted last_processed_slot, if a store is
// wired and has one.
func (p *Poller) loadWatermark(ctx context.Context) (uint64, error) {
	if p.watermarks == nil {
		return 0, errNoWatermarkStore
	}
	return p.watermarks.GetLastProcessedSlot(ctx)
}

// saveWatermark persists the watermark, logging rather than failing the
// tick on a storage error: a missed persist only costs a replayed slot or
// two on restart.
func (p *Poller) saveWatermark(ctx context.Context, slot uint64) {
	if p.watermarks == nil {
		return
	}
	if err := p.watermarks.SetLastProcessedSlot(ctx, slot); err != nil {
		p.logger.Printf("error persisting watermark at slot %d: %v", slot, err)
	}
}

var errNoWatermarkStore = errors.New("no watermark store configured")

// processSlot decodes one slot and routes its output to the sink and the
// live tracker. Errors are counted in a metric, logged (except the
// expected "slot skipped" classification) and swallowed — the watermark
// still advances.
func (p *Poller) processSlot(ctx context.Context, slot uint64) {
	result, err := p.decoder.Decode(ctx, slot)
	if err != nil {
		if isSlotSkipped(err) {
			observability.RecordSlotSkipped()
		} else {
			observability.RecordSlotDecodeError()
			p.logger.Printf("error decoding slot %d: %v", slot, err)
		}
		return
	}
	if result == nil || len(result.Events) == 0 {
		return
	}

	if err := p.sink.InsertSlotEvents(ctx, result.Events); err != nil {
		p.logger.Printf("error inserting events for slot %d: %v", slot, err)
		return
	}

	if p.liveTracker != nil {
		for _, agg := range result.Aggregates {
			var avgFee uint64
			if agg.TxCount > 0 {
				avgFee = agg.SumFee / uint64(agg.TxCount)
			}
			p.liveTracker.RecordSlot(agg.Account, locksignal.SlotSummary{
				Slot:            slot,
				ContentionScore: result.Contention[agg.Account],
				TxCount:         agg.TxCount,
				AvgPriorityFee:  avgFee,
				MaxPriorityFee:  agg.MaxFee,
			})
		}
	}
}

func isSlotSkipped(err error) bool {
	return errors.Is(err, slotdecoder.ErrBlockNotFound) || solana.IsSlotSkipped(err)
}

// after returns a channel that fires once sleep-worth of time has
// elapsed, using the injectable sleep func so tests can avoid real waits.
func after(sleep func(time.Duration), d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	go func() {
		sleep(d)
		ch <- time.Now()
	}()
	return ch
}
