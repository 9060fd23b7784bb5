package worker

import (
	"context"
	"time"
)

// CORE NOTE: The node is the only block producer. It starts a loop on a timer
// matching the block interval of the genesis. Every tick a block is produced
// from whatever is in the mempool, even when that is nothing, since inflation
// and the scheduled payouts advance with every block.

// produceOperations handles block production.
func (w *Worker) produceOperations() {
	w.evHandler("worker: produceOperations: G started")
	defer w.evHandler("worker: produceOperations: G completed")

	interval := w.state.BlockInterval()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Start this on an interval mark: ex. MM.00, MM.03, MM.06.
	resetTicker(ticker, interval)

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runProduceOperation()
			}
		case <-w.produce:
			if !w.isShutdown() {
				w.runProduceOperation()
			}
		case <-w.shut:
			w.evHandler("worker: produceOperations: received shut signal")
			return
		}

		// Reset the ticker for the next cycle.
		resetTicker(ticker, interval)
	}
}

// runProduceOperation produces and stores the next block.
func (w *Worker) runProduceOperation() {
	w.evHandler("worker: runProduceOperation: started")
	defer w.evHandler("worker: runProduceOperation: completed")

	// Give up on the block if it takes longer than one interval.
	ctx, cancel := context.WithTimeout(context.Background(), w.state.BlockInterval())
	defer cancel()

	t := time.Now()
	block, err := w.state.ProduceBlock(ctx, t)
	duration := time.Since(t)

	if err != nil {
		w.evHandler("worker: runProduceOperation: PRODUCE: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runProduceOperation: PRODUCE: blk[%d]: trans[%d]: duration[%v]", block.Header.Number, len(block.Trans), duration)
}

// =============================================================================

// resetTicker makes sure the next tick happens on the described cadence.
func resetTicker(ticker *time.Ticker, interval time.Duration) {
	nextTick := time.Now().Add(interval).Truncate(interval)
	diff := time.Until(nextTick)
	if diff <= 0 {
		diff = interval
	}
	ticker.Reset(diff)
}
