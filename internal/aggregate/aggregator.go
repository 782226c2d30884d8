package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
	"github.com/goodnatureofminers/chainaudit7000-backend/pkg/workerpool"
)

// Config bounds an aggregation run over the closed height range [Start, End].
type Config struct {
	// Start is the first height to audit; must be >= 1 since every measure may
	// read the parent header.
	Start uint64
	// End is the last height to audit, inclusive.
	End uint64
	// Concurrency bounds simultaneous header fetches.
	Concurrency int
	// WindowMultiplier sizes each processing window as
	// Concurrency * WindowMultiplier heights.
	WindowMultiplier int
	// CheckpointEvery persists progress every N completed windows.
	CheckpointEvery int
	// CheckpointInterval is a time floor for persisting progress.
	CheckpointInterval time.Duration
	// LogEvery is the progress log cadence in heights.
	LogEvery uint64
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 32
	}
	if c.WindowMultiplier <= 0 {
		c.WindowMultiplier = 8
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 1
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = 30 * time.Second
	}
	if c.LogEvery == 0 {
		c.LogEvery = 100_000
	}
}

// Aggregator folds a block auditor over a height range with resumable
// checkpoints.
type Aggregator struct {
	cfg     Config
	source  HeaderSource
	auditor BlockAuditor
	store   Store
	metrics Metrics
	logger  *zap.Logger
}

// New validates the configuration and builds an Aggregator.
func New(cfg Config, source HeaderSource, auditor BlockAuditor, store Store, metrics Metrics, logger *zap.Logger) (*Aggregator, error) {
	if source == nil || auditor == nil || store == nil {
		return nil, errors.New("source, auditor and store are required")
	}
	if cfg.Start == 0 {
		return nil, errors.New("start height must be >= 1")
	}
	if cfg.End < cfg.Start {
		return nil, fmt.Errorf("end height %d below start height %d", cfg.End, cfg.Start)
	}
	cfg.applyDefaults()
	return &Aggregator{
		cfg:     cfg,
		source:  source,
		auditor: auditor,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Run executes the scan and returns the cumulative sum over [Start, End].
// A prior checkpoint resumes the run; a checkpoint persisted for a larger end
// height than requested is discarded and the scan starts fresh. Any error
// leaves the last persisted checkpoint valid for resumption.
func (a *Aggregator) Run(ctx context.Context) (*uint256.Int, error) {
	next := a.cfg.Start
	sum := uint256.NewInt(0)

	cp, found, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	switch {
	case !found:
	case cp.EndHeight > a.cfg.End:
		a.logger.Warn("checkpoint covers a larger range than requested, starting fresh",
			zap.Uint64("checkpoint_end", cp.EndHeight),
			zap.Uint64("requested_end", a.cfg.End))
	default:
		next = cp.NextHeight
		if cp.CumulativeSum != nil {
			sum = cp.CumulativeSum.Clone()
		}
		if next > a.cfg.End {
			a.logger.Info("range already complete",
				zap.Uint64("end", a.cfg.End),
				zap.String("cumulative_sum", sum.Dec()))
			return sum, nil
		}
		a.logger.Info("resuming from checkpoint",
			zap.Uint64("next_height", next),
			zap.String("cumulative_sum", sum.Dec()))
	}

	writer := newCheckpointWriter(a.store, a.cfg.CheckpointEvery, a.cfg.CheckpointInterval, a.logger)
	writer.Start(ctx)
	defer writer.Stop()

	window := uint64(a.cfg.Concurrency * a.cfg.WindowMultiplier)
	var processed, lastLogged uint64

	for next <= a.cfg.End {
		hi := next + window - 1
		if hi > a.cfg.End {
			hi = a.cfg.End
		}

		started := time.Now()
		contribution, err := a.processWindow(ctx, next, hi)
		if a.metrics != nil {
			a.metrics.ObserveWindow(err, int(hi-next+1), started)
		}
		if err != nil {
			return nil, fmt.Errorf("window [%d, %d]: %w", next, hi, err)
		}

		sum.Add(sum, contribution)
		processed += hi - next + 1
		next = hi + 1

		if err := writer.Add(ctx, Checkpoint{
			NextHeight:    next,
			CumulativeSum: sum.Clone(),
			EndHeight:     a.cfg.End,
			UpdatedAt:     time.Now().UTC(),
		}); err != nil {
			return nil, err
		}

		if processed-lastLogged >= a.cfg.LogEvery {
			lastLogged = processed
			a.logger.Info("scan progress",
				zap.Uint64("next_height", next),
				zap.Uint64("end_height", a.cfg.End),
				zap.Uint64("processed", processed),
				zap.String("cumulative_sum", sum.Dec()))
		}
	}

	writer.Stop()
	final := Checkpoint{
		NextHeight:    a.cfg.End + 1,
		CumulativeSum: sum.Clone(),
		EndHeight:     a.cfg.End,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := a.store.Save(final); err != nil {
		return nil, err
	}

	a.logger.Info("scan complete",
		zap.Uint64("start", a.cfg.Start),
		zap.Uint64("end", a.cfg.End),
		zap.String("cumulative_sum", sum.Dec()))
	return sum, nil
}

// processWindow fetches headers for [lo-1, hi] and folds the auditor over
// [lo, hi]. Header fetching fans out across the configured concurrency; the
// fold itself is cheap and runs serially.
func (a *Aggregator) processWindow(ctx context.Context, lo, hi uint64) (*uint256.Int, error) {
	heights := make([]uint64, 0, hi-lo+2)
	for h := lo - 1; h <= hi; h++ {
		heights = append(heights, h)
	}

	headers := make(map[uint64]model.Header, len(heights))
	var mu sync.Mutex

	chunks := splitChunks(heights, a.cfg.Concurrency)
	err := workerpool.Process(ctx, a.cfg.Concurrency, chunks, func(ctx context.Context, chunk []uint64) error {
		fetched, err := a.source.HeadersByNumbers(ctx, chunk)
		if err != nil {
			return err
		}
		mu.Lock()
		for h, hdr := range fetched {
			headers[h] = hdr
		}
		mu.Unlock()
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	contribution := uint256.NewInt(0)
	for h := lo; h <= hi; h++ {
		header, ok := headers[h]
		if !ok {
			return nil, fmt.Errorf("header %d missing after window fetch", h)
		}
		parent, ok := headers[h-1]
		if !ok {
			return nil, fmt.Errorf("parent header %d missing after window fetch", h-1)
		}
		c, err := a.auditor.Audit(h, header, parent)
		if err != nil {
			return nil, err
		}
		contribution.Add(contribution, uint256.NewInt(c))
	}
	return contribution, nil
}

// splitChunks partitions heights into at most n contiguous chunks.
func splitChunks(heights []uint64, n int) [][]uint64 {
	if n <= 0 {
		n = 1
	}
	size := (len(heights) + n - 1) / n
	if size == 0 {
		return nil
	}
	chunks := make([][]uint64, 0, n)
	for start := 0; start < len(heights); start += size {
		end := start + size
		if end > len(heights) {
			end = len(heights)
		}
		chunks = append(chunks, heights[start:end])
	}
	return chunks
}
