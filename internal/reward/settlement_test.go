package reward

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

type fakeTxs map[string]model.TxWithStatus

func (f fakeTxs) ByHash(_ context.Context, hash hexutil.Bytes) (model.TxWithStatus, error) {
	tx, ok := f[hash.String()]
	if !ok {
		return model.TxWithStatus{}, fmt.Errorf("unknown tx %s", hash)
	}
	return tx, nil
}

type sliceTxs struct {
	recs []model.TxRecord
	pos  int
}

func (s *sliceTxs) Next(_ context.Context) (model.TxRecord, bool, error) {
	if s.pos >= len(s.recs) {
		return model.TxRecord{}, false, nil
	}
	r := s.recs[s.pos]
	s.pos++
	return r, true, nil
}

func hashOf(b byte) hexutil.Bytes {
	h := make(hexutil.Bytes, 32)
	h[0] = b
	return h
}

func prepareData(depositHeight uint64) hexutil.Bytes {
	d := make([]byte, 8)
	binary.LittleEndian.PutUint64(d, depositHeight)
	return d
}

// settlementFixture wires a prepare tx (hash 0x01...) and a settlement tx
// (hash 0x02...) consuming its first output.
func settlementFixture(inCap, outCap uint64) fakeTxs {
	daoType := model.DAOTypeScript(model.DefaultDAOCodeHash)
	prepare := model.TxWithStatus{
		Transaction: &model.Transaction{
			Hash: hashOf(1),
			Outputs: []model.CellOutput{
				{Capacity: hexutil.Uint64(inCap), Type: &daoType},
			},
			OutputsData: []hexutil.Bytes{prepareData(100)},
		},
		TxStatus: model.TxStatus{Status: "committed"},
	}
	settlement := model.TxWithStatus{
		Transaction: &model.Transaction{
			Hash: hashOf(2),
			Inputs: []model.CellInput{
				{PreviousOutput: model.OutPoint{TxHash: hashOf(1), Index: 0}},
			},
			Outputs:     []model.CellOutput{{Capacity: hexutil.Uint64(outCap)}},
			OutputsData: []hexutil.Bytes{{}},
		},
		TxStatus: model.TxStatus{Status: "committed"},
	}
	return fakeTxs{
		hashOf(1).String(): prepare,
		hashOf(2).String(): settlement,
	}
}

func TestSettlementAuditor_TxReward(t *testing.T) {
	t.Parallel()

	txs := settlementFixture(10_200_000_000, 10_300_000_000)
	a := NewSettlementAuditor(txs, model.DAOTypeScript(model.DefaultDAOCodeHash), 2, 0, zap.NewNop())

	got, err := a.TxReward(context.Background(), hashOf(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), got)
}

func TestSettlementAuditor_TxReward_Skips(t *testing.T) {
	t.Parallel()

	daoType := model.DAOTypeScript(model.DefaultDAOCodeHash)

	tests := []struct {
		name   string
		mutate func(f fakeTxs)
	}{
		{
			name: "multiple outputs",
			mutate: func(f fakeTxs) {
				tx := f[hashOf(2).String()]
				tx.Transaction.Outputs = append(tx.Transaction.Outputs, model.CellOutput{})
				f[hashOf(2).String()] = tx
			},
		},
		{
			name: "output still stake-typed",
			mutate: func(f fakeTxs) {
				tx := f[hashOf(2).String()]
				tx.Transaction.Outputs[0].Type = &daoType
				f[hashOf(2).String()] = tx
			},
		},
		{
			name: "consumed output is a deposit, not a prepare",
			mutate: func(f fakeTxs) {
				tx := f[hashOf(1).String()]
				tx.Transaction.OutputsData[0] = make(hexutil.Bytes, 8)
				f[hashOf(1).String()] = tx
			},
		},
		{
			name: "consumed output not stake-typed",
			mutate: func(f fakeTxs) {
				tx := f[hashOf(1).String()]
				tx.Transaction.Outputs[0].Type = nil
				f[hashOf(1).String()] = tx
			},
		},
		{
			name: "not committed",
			mutate: func(f fakeTxs) {
				tx := f[hashOf(2).String()]
				tx.TxStatus.Status = "pending"
				f[hashOf(2).String()] = tx
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			txs := settlementFixture(10_200_000_000, 10_300_000_000)
			tt.mutate(txs)
			a := NewSettlementAuditor(txs, daoType, 2, 0, zap.NewNop())

			got, err := a.TxReward(context.Background(), hashOf(2))
			require.NoError(t, err)
			assert.Zero(t, got)
		})
	}
}

func TestSettlementAuditor_TxReward_NegativeGainNotCounted(t *testing.T) {
	t.Parallel()

	txs := settlementFixture(10_300_000_000, 10_200_000_000)
	a := NewSettlementAuditor(txs, model.DAOTypeScript(model.DefaultDAOCodeHash), 2, 0, zap.NewNop())

	got, err := a.TxReward(context.Background(), hashOf(2))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestSettlementAuditor_Scan_DeduplicatesAndFiltersIOType(t *testing.T) {
	t.Parallel()

	txs := settlementFixture(10_200_000_000, 10_300_000_000)
	a := NewSettlementAuditor(txs, model.DAOTypeScript(model.DefaultDAOCodeHash), 2, 0, zap.NewNop())

	records := &sliceTxs{recs: []model.TxRecord{
		{TxHash: hashOf(2), IOType: "input", IOIndex: 0},
		{TxHash: hashOf(2), IOType: "input", IOIndex: 0}, // duplicate record
		{TxHash: hashOf(1), IOType: "output", IOIndex: 0},
	}}

	total, stats, err := a.Scan(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), total.Uint64())
	assert.Equal(t, uint64(1), stats.TxsSeen)
	assert.Equal(t, uint64(1), stats.TxsCounted)
	assert.Zero(t, stats.TxsSkipped)
}
