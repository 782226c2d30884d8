package reward

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/codec"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

type countingHeaderSource struct {
	fetches int64
}

func (s *countingHeaderSource) HeaderByNumber(_ context.Context, height uint64) (model.Header, error) {
	atomic.AddInt64(&s.fetches, 1)
	return model.Header{
		Number:     hexutil.Uint64(height),
		Accounting: codec.EncodeAccountingField(codec.AccountingField{AccumulatedRate: height * 100}),
	}, nil
}

func TestCachedRates(t *testing.T) {
	t.Parallel()

	source := &countingHeaderSource{}
	rates := NewCachedRates(source)

	for i := 0; i < 3; i++ {
		ar, err := rates.RateAt(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, uint64(4200), ar)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&source.fetches))

	require.NoError(t, rates.Warm(context.Background(), []uint64{42, 43, 44}, 2))
	assert.Equal(t, int64(3), atomic.LoadInt64(&source.fetches))
}

type countingTxSource struct {
	fetches int64
}

func (s *countingTxSource) Transaction(_ context.Context, hash hexutil.Bytes) (model.TxWithStatus, error) {
	atomic.AddInt64(&s.fetches, 1)
	return model.TxWithStatus{
		Transaction: &model.Transaction{Hash: hash},
		TxStatus:    model.TxStatus{Status: "committed"},
	}, nil
}

func TestCachedTxs(t *testing.T) {
	t.Parallel()

	source := &countingTxSource{}
	txs := NewCachedTxs(source)

	hash := make(hexutil.Bytes, 32)
	hash[0] = 0xab

	for i := 0; i < 2; i++ {
		tx, err := txs.ByHash(context.Background(), hash)
		require.NoError(t, err)
		require.NotNil(t, tx.Transaction)
		assert.Equal(t, hash, tx.Transaction.Hash)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&source.fetches))
}
