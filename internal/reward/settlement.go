package reward

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
	"github.com/goodnatureofminers/chainaudit7000-backend/pkg/workerpool"
)

type (
	// TxLookup resolves confirmed transactions by hash.
	TxLookup interface {
		ByHash(ctx context.Context, hash hexutil.Bytes) (model.TxWithStatus, error)
	}

	// TxIterator is a lazy sequence of transaction records.
	TxIterator interface {
		Next(ctx context.Context) (model.TxRecord, bool, error)
	}
)

// SettlementStats summarizes one settlement scan.
type SettlementStats struct {
	TxsSeen    uint64
	TxsCounted uint64
	TxsSkipped uint64
}

// settlementSampleLimit bounds how many skipped transactions are logged.
const settlementSampleLimit = 20

// SettlementAuditor sums the second-phase rewards of withdrawal settlement
// transactions: one input consuming a prepare cell, one output, and no stake
// cell among the outputs.
type SettlementAuditor struct {
	txs      TxLookup
	daoType  model.Script
	workers  int
	logEvery uint64
	logger   *zap.Logger

	sampled atomic.Uint64
}

// NewSettlementAuditor builds the auditor for the given stake contract type
// script.
func NewSettlementAuditor(txs TxLookup, daoType model.Script, workers int, logEvery uint64, logger *zap.Logger) *SettlementAuditor {
	if workers <= 0 {
		workers = 1
	}
	if logEvery == 0 {
		logEvery = 10_000
	}
	return &SettlementAuditor{
		txs:      txs,
		daoType:  daoType,
		workers:  workers,
		logEvery: logEvery,
		logger:   logger,
	}
}

// TxReward returns one transaction's settlement reward, or zero when the
// transaction does not have the settlement shape.
func (a *SettlementAuditor) TxReward(ctx context.Context, hash hexutil.Bytes) (uint64, error) {
	wrapped, err := a.txs.ByHash(ctx, hash)
	if err != nil {
		return 0, err
	}
	tx := wrapped.Transaction
	if tx == nil || wrapped.TxStatus.Status != "committed" {
		a.sample(hash, "not committed")
		return 0, nil
	}

	if len(tx.Inputs) != 1 || len(tx.Outputs) != 1 {
		a.sample(hash, fmt.Sprintf("%d inputs, %d outputs", len(tx.Inputs), len(tx.Outputs)))
		return 0, nil
	}

	// outputs still holding a stake cell are not settlements
	for _, out := range tx.Outputs {
		if out.Type != nil && out.Type.Equal(a.daoType) {
			a.sample(hash, "output still stake-typed")
			return 0, nil
		}
	}

	prev := tx.Inputs[0].PreviousOutput
	consumed, err := a.consumedOutput(ctx, prev)
	if err != nil {
		return 0, err
	}
	if consumed == nil {
		a.sample(hash, "consumed output is not a prepare cell")
		return 0, nil
	}

	return SettlementReward(uint64(tx.Outputs[0].Capacity), uint64(consumed.Capacity)), nil
}

// consumedOutput fetches the previous output and returns it only when it is a
// stake-typed prepare cell.
func (a *SettlementAuditor) consumedOutput(ctx context.Context, prev model.OutPoint) (*model.CellOutput, error) {
	wrapped, err := a.txs.ByHash(ctx, prev.TxHash)
	if err != nil {
		return nil, err
	}
	tx := wrapped.Transaction
	if tx == nil {
		return nil, nil
	}

	idx := int(prev.Index)
	if idx >= len(tx.Outputs) || idx >= len(tx.OutputsData) {
		return nil, nil
	}
	out := tx.Outputs[idx]
	if out.Type == nil || !out.Type.Equal(a.daoType) {
		return nil, nil
	}
	if !IsPrepareData(tx.OutputsData[idx]) {
		return nil, nil
	}
	return &out, nil
}

// Scan drains the iterator, deduplicates transaction hashes (a transaction
// appears once per matched input), and sums settlement rewards in
// bounded-concurrency batches.
func (a *SettlementAuditor) Scan(ctx context.Context, records TxIterator) (*uint256.Int, SettlementStats, error) {
	total := uint256.NewInt(0)
	stats := SettlementStats{}
	seen := make(map[string]struct{})

	var mu sync.Mutex
	batchSize := a.workers * 8

	for {
		batch := make([]hexutil.Bytes, 0, batchSize)
		exhausted := false
		for len(batch) < batchSize {
			rec, ok, err := records.Next(ctx)
			if err != nil {
				return nil, stats, err
			}
			if !ok {
				exhausted = true
				break
			}
			if rec.IOType != "input" {
				continue
			}
			key := rec.TxHash.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			batch = append(batch, rec.TxHash)
		}

		if len(batch) > 0 {
			err := workerpool.Process(ctx, a.workers, batch, func(ctx context.Context, hash hexutil.Bytes) error {
				r, err := a.TxReward(ctx, hash)
				if err != nil {
					return err
				}

				mu.Lock()
				stats.TxsSeen++
				if r > 0 {
					stats.TxsCounted++
					total.Add(total, uint256.NewInt(r))
				} else {
					stats.TxsSkipped++
				}
				mu.Unlock()
				return nil
			}, nil)
			if err != nil {
				return nil, stats, err
			}

			if stats.TxsSeen%a.logEvery < uint64(len(batch)) {
				a.logger.Info("settlement scan progress",
					zap.Uint64("txs_seen", stats.TxsSeen),
					zap.Uint64("txs_counted", stats.TxsCounted),
					zap.String("total_shannons", total.Dec()))
			}
		}

		if exhausted {
			break
		}
	}

	return total, stats, nil
}

func (a *SettlementAuditor) sample(hash hexutil.Bytes, reason string) {
	if a.sampled.Add(1) > settlementSampleLimit {
		return
	}
	a.logger.Warn("skipping non-settlement transaction",
		zap.String("tx_hash", hash.String()),
		zap.String("reason", reason))
}
