package worker

import (
	"context"
	"log/slog"
	"time"

	"clubgov/retry"
)

// VoteEvent announces a freshly stored vote so the per-option aggregate
// counters can be kept warm without re-counting the vote table.
type VoteEvent struct {
	BallotID    int64
	OptionIndex uint8
}

// Aggregator is the slice of the ballot store the worker writes to.
type Aggregator interface {
	IncrementAggregate(ctx context.Context, ballotID int64, optionIndex uint8) error
}

type AggregateWorker struct {
	ch  <-chan VoteEvent
	agg Aggregator
	log *slog.Logger
}

func NewAggregateWorker(ch <-chan VoteEvent, agg Aggregator) *AggregateWorker {
	return &AggregateWorker{ch: ch, agg: agg, log: slog.Default()}
}

func (w *AggregateWorker) SetLogger(l *slog.Logger) {
	if l != nil {
		w.log = l
	}
}

// Run consumes events until the context is canceled. Transient store
// failures are retried with backoff; an event that still fails is logged
// and dropped, since the aggregate table is derived state that the next
// full tabulation corrects.
func (w *AggregateWorker) Run(ctx context.Context) {
	w.log.Info("aggregate worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("aggregate worker stopped")
			return
		case ev := <-w.ch:
			err := retry.DoWithRetry(ctx, 3, 200*time.Millisecond, func() error {
				return w.agg.IncrementAggregate(ctx, ev.BallotID, ev.OptionIndex)
			})
			if err != nil {
				w.log.Error("aggregate update dropped",
					"ballot_id", ev.BallotID,
					"option_index", ev.OptionIndex,
					"err", err,
				)
			}
		}
	}
}
