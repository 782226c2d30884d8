package reward

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/capacity"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
	"github.com/goodnatureofminers/chainaudit7000-backend/pkg/workerpool"
)

type (
	// RateLookup resolves the accumulated rate at a height.
	RateLookup interface {
		RateAt(ctx context.Context, height uint64) (uint64, error)
	}

	// CellIterator is a lazy sequence of live cells.
	CellIterator interface {
		Next(ctx context.Context) (model.LiveCell, bool, error)
	}
)

// UnclaimedStats summarizes one unclaimed-interest scan.
type UnclaimedStats struct {
	CellsSeen    uint64
	CellsCounted uint64
	CellsSkipped uint64
}

// UnclaimedAuditor computes the unclaimed interest of live stake cells.
type UnclaimedAuditor struct {
	rates    RateLookup
	workers  int
	logEvery uint64
	logger   *zap.Logger
}

// NewUnclaimedAuditor builds the auditor. workers bounds concurrent rate
// lookups per batch; logEvery is the progress cadence in cells.
func NewUnclaimedAuditor(rates RateLookup, workers int, logEvery uint64, logger *zap.Logger) *UnclaimedAuditor {
	if workers <= 0 {
		workers = 1
	}
	if logEvery == 0 {
		logEvery = 10_000
	}
	return &UnclaimedAuditor{
		rates:    rates,
		workers:  workers,
		logEvery: logEvery,
		logger:   logger,
	}
}

// CellReward returns one cell's unclaimed interest. arTip is the accumulated
// rate at the index tip; it settles deposit cells, while prepare cells settle
// at their own confirmation height. Unclassifiable cells return zero.
func (a *UnclaimedAuditor) CellReward(ctx context.Context, cell model.LiveCell, arTip uint64) (uint64, error) {
	free, err := capacity.FreeCapacity(cell.Output, cell.OutputData)
	if err != nil {
		return 0, err
	}
	if free <= 0 {
		return 0, nil
	}

	kind, depositHeight, err := ClassifyCellData(cell.OutputData)
	if err != nil {
		if errors.Is(err, ErrInvalidCellShape) {
			a.logger.Warn("skipping unclassifiable cell",
				zap.String("tx_hash", cell.OutPoint.TxHash.String()),
				zap.Uint64("index", uint64(cell.OutPoint.Index)),
				zap.Error(err))
			return 0, nil
		}
		return 0, err
	}

	switch kind {
	case KindDeposit:
		arDeposit, err := a.rates.RateAt(ctx, uint64(cell.BlockNumber))
		if err != nil {
			return 0, err
		}
		return DepositReward(uint64(free), arDeposit, arTip)

	case KindPrepare:
		if depositHeight >= uint64(cell.BlockNumber) {
			a.logger.Warn("skipping prepare cell with deposit height at or above confirmation",
				zap.String("tx_hash", cell.OutPoint.TxHash.String()),
				zap.Uint64("deposit_height", depositHeight),
				zap.Uint64("confirmed_height", uint64(cell.BlockNumber)))
			return 0, nil
		}
		arPrepare, err := a.rates.RateAt(ctx, uint64(cell.BlockNumber))
		if err != nil {
			return 0, err
		}
		arDeposit, err := a.rates.RateAt(ctx, depositHeight)
		if err != nil {
			return 0, err
		}
		return DepositReward(uint64(free), arDeposit, arPrepare)
	}

	return 0, nil
}

// Scan drains the iterator, computing rewards in bounded-concurrency batches,
// and returns the total with scan statistics. Summation is order-independent;
// only strictly positive rewards are counted.
func (a *UnclaimedAuditor) Scan(ctx context.Context, cells CellIterator, arTip uint64) (*uint256.Int, UnclaimedStats, error) {
	total := uint256.NewInt(0)
	stats := UnclaimedStats{}

	var mu sync.Mutex
	batchSize := a.workers * 8

	for {
		batch := make([]model.LiveCell, 0, batchSize)
		for len(batch) < batchSize {
			cell, ok, err := cells.Next(ctx)
			if err != nil {
				return nil, stats, err
			}
			if !ok {
				break
			}
			batch = append(batch, cell)
		}
		if len(batch) == 0 {
			break
		}

		err := workerpool.Process(ctx, a.workers, batch, func(ctx context.Context, cell model.LiveCell) error {
			r, err := a.CellReward(ctx, cell, arTip)
			if err != nil {
				return err
			}

			mu.Lock()
			stats.CellsSeen++
			if r > 0 {
				stats.CellsCounted++
				total.Add(total, uint256.NewInt(r))
			} else {
				stats.CellsSkipped++
			}
			mu.Unlock()
			return nil
		}, nil)
		if err != nil {
			return nil, stats, err
		}

		if stats.CellsSeen%a.logEvery < uint64(len(batch)) {
			a.logger.Info("unclaimed scan progress",
				zap.Uint64("cells_seen", stats.CellsSeen),
				zap.Uint64("cells_counted", stats.CellsCounted),
				zap.String("total_shannons", total.Dec()))
		}
	}

	return total, stats, nil
}
