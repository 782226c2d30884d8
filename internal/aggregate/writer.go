package aggregate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/pkg/batcher"
)

// checkpointWriter persists checkpoints on a cadence: every N accumulated
// checkpoints, or on the flush interval, whichever comes first. Only the
// newest checkpoint of a batch is written; each checkpoint carries the
// absolute sum, so dropping intermediates never loses correctness, only
// recency.
type checkpointWriter struct {
	store   Store
	batcher *batcher.Batcher[Checkpoint]
	logger  *zap.Logger

	stopOnce sync.Once
}

func newCheckpointWriter(store Store, every int, interval time.Duration, logger *zap.Logger) *checkpointWriter {
	w := &checkpointWriter{
		store:  store,
		logger: logger,
	}
	w.batcher = batcher.New(
		logger.Named("checkpointWriter"),
		w.flush,
		every,
		interval,
		0,
	)
	return w
}

func (w *checkpointWriter) Start(ctx context.Context) {
	w.batcher.Start(ctx)
}

func (w *checkpointWriter) Stop() {
	w.stopOnce.Do(w.batcher.Stop)
}

func (w *checkpointWriter) Add(ctx context.Context, cp Checkpoint) error {
	return w.batcher.Add(ctx, cp)
}

func (w *checkpointWriter) flush(_ context.Context, cps []Checkpoint) error {
	if len(cps) == 0 {
		return nil
	}
	latest := cps[len(cps)-1]
	if err := w.store.Save(latest); err != nil {
		return err
	}
	w.logger.Debug("checkpoint persisted",
		zap.Uint64("next_height", latest.NextHeight),
		zap.String("cumulative_sum", latest.CumulativeSum.Dec()))
	return nil
}
