package reward

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/codec"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/memo"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

type (
	// HeaderSource resolves headers by height.
	HeaderSource interface {
		HeaderByNumber(ctx context.Context, height uint64) (model.Header, error)
	}

	// TxSource resolves confirmed transactions by hash.
	TxSource interface {
		Transaction(ctx context.Context, hash hexutil.Bytes) (model.TxWithStatus, error)
	}
)

// CachedRates memoizes the accumulated rate per block height, keyed by the
// height's hex form. At most one header fetch per height is in flight.
type CachedRates struct {
	resolver *memo.Resolver[string, uint64]
}

// NewCachedRates builds the rate lookup over a header source.
func NewCachedRates(source HeaderSource) *CachedRates {
	return &CachedRates{
		resolver: memo.NewResolver(func(ctx context.Context, key string) (uint64, error) {
			height, err := hexutil.DecodeUint64(key)
			if err != nil {
				return 0, fmt.Errorf("rate lookup key %q: %w", key, err)
			}
			header, err := source.HeaderByNumber(ctx, height)
			if err != nil {
				return 0, fmt.Errorf("header at %d: %w", height, err)
			}
			field, err := codec.DecodeAccountingField(header.Accounting)
			if err != nil {
				return 0, fmt.Errorf("header at %d: %w", height, err)
			}
			return field.AccumulatedRate, nil
		}),
	}
}

// RateAt returns the accumulated rate of the header at height.
func (c *CachedRates) RateAt(ctx context.Context, height uint64) (uint64, error) {
	return c.resolver.Get(ctx, hexutil.EncodeUint64(height))
}

// Warm prefetches rates for heights through a bounded worker pool.
func (c *CachedRates) Warm(ctx context.Context, heights []uint64, workers int) error {
	keys := make([]string, len(heights))
	for i, h := range heights {
		keys[i] = hexutil.EncodeUint64(h)
	}
	return c.resolver.Warm(ctx, keys, workers)
}

// CachedTxs memoizes confirmed transactions by hash. At most one fetch per
// hash is in flight.
type CachedTxs struct {
	resolver *memo.Resolver[string, model.TxWithStatus]
}

// NewCachedTxs builds the transaction lookup over a node source.
func NewCachedTxs(source TxSource) *CachedTxs {
	return &CachedTxs{
		resolver: memo.NewResolver(func(ctx context.Context, key string) (model.TxWithStatus, error) {
			hash, err := hexutil.Decode(key)
			if err != nil {
				return model.TxWithStatus{}, fmt.Errorf("tx lookup key %q: %w", key, err)
			}
			tx, err := source.Transaction(ctx, hash)
			if err != nil {
				return model.TxWithStatus{}, fmt.Errorf("transaction %s: %w", key, err)
			}
			return tx, nil
		}),
	}
}

// ByHash returns the transaction with the given hash.
func (c *CachedTxs) ByHash(ctx context.Context, hash hexutil.Bytes) (model.TxWithStatus, error) {
	return c.resolver.Get(ctx, hash.String())
}

// Warm prefetches transactions for hashes through a bounded worker pool.
func (c *CachedTxs) Warm(ctx context.Context, hashes []hexutil.Bytes, workers int) error {
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = h.String()
	}
	return c.resolver.Warm(ctx, keys, workers)
}
