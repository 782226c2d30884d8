// Package node implements the JSON-RPC query port to the chain node: single
// calls, id-matched batch calls and cursor-paged queries, each with a per-call
// timeout and bounded retry.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

type (
	// caller is the transport surface consumed from *rpc.Client.
	caller interface {
		CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
		BatchCallContext(ctx context.Context, b []rpc.BatchElem) error
	}

	// Metrics records per-operation call outcomes.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
		ObserveRetry(operation string)
	}
)

// Config bounds the client's calls.
type Config struct {
	// CallTimeout applies to every attempt individually.
	CallTimeout time.Duration
	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts uint64
	// RetryBaseDelay seeds the exponential backoff between attempts.
	RetryBaseDelay time.Duration
	// BatchChunkSize caps the number of requests per batch call.
	BatchChunkSize int
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		CallTimeout:    30 * time.Second,
		RetryAttempts:  5,
		RetryBaseDelay: 500 * time.Millisecond,
		BatchChunkSize: 100,
	}
}

// Client is the chain query port. Transport failures and protocol error
// objects are retried uniformly; the last error surfaces once the retry
// budget is exhausted.
type Client struct {
	rpc     caller
	cfg     Config
	metrics Metrics
	logger  *zap.Logger
}

// Dial connects to the node and wraps the connection in a Client.
func Dial(ctx context.Context, url string, cfg Config, metrics Metrics, logger *zap.Logger) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial node %s: %w", url, err)
	}
	return NewClient(c, cfg, metrics, logger), nil
}

// NewClient wraps an existing transport.
func NewClient(rpcCaller caller, cfg Config, metrics Metrics, logger *zap.Logger) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultConfig().RetryBaseDelay
	}
	if cfg.BatchChunkSize <= 0 {
		cfg.BatchChunkSize = DefaultConfig().BatchChunkSize
	}
	return &Client{
		rpc:     rpcCaller,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// TipHeader returns the chain tip header.
func (c *Client) TipHeader(ctx context.Context) (model.Header, error) {
	var h model.Header
	err := c.call(ctx, "get_tip_header", &h, "get_tip_header")
	return h, err
}

// HeaderByHash returns the header with the given block hash.
func (c *Client) HeaderByHash(ctx context.Context, hash hexutil.Bytes) (model.Header, error) {
	var h model.Header
	err := c.call(ctx, "get_header", &h, "get_header", hash)
	return h, err
}

// HeaderByNumber returns the header at the given height.
func (c *Client) HeaderByNumber(ctx context.Context, height uint64) (model.Header, error) {
	var h model.Header
	err := c.call(ctx, "get_header_by_number", &h, "get_header_by_number", hexutil.Uint64(height))
	return h, err
}

// IndexerTip returns the highest block the node's cell index has processed.
func (c *Client) IndexerTip(ctx context.Context) (model.IndexerTip, error) {
	var tip model.IndexerTip
	err := c.call(ctx, "get_indexer_tip", &tip, "get_indexer_tip")
	return tip, err
}

// Transaction returns a transaction with its confirmation status.
func (c *Client) Transaction(ctx context.Context, hash hexutil.Bytes) (model.TxWithStatus, error) {
	var tx model.TxWithStatus
	err := c.call(ctx, "get_transaction", &tx, "get_transaction", hash)
	return tx, err
}

// Cells returns one page of live cells matching the search key. An empty
// cursor starts a fresh walk.
func (c *Client) Cells(ctx context.Context, key model.SearchKey, order model.Order, limit uint64, cursor string) (model.CellPage, error) {
	var page model.CellPage
	err := c.call(ctx, "get_cells", &page, "get_cells", key, order, hexutil.Uint64(limit), cursorArg(cursor))
	return page, err
}

// Transactions returns one page of confirmed transaction records matching the
// search key.
func (c *Client) Transactions(ctx context.Context, key model.SearchKey, order model.Order, limit uint64, cursor string) (model.TxPage, error) {
	var page model.TxPage
	err := c.call(ctx, "get_transactions", &page, "get_transactions", key, order, hexutil.Uint64(limit), cursorArg(cursor))
	return page, err
}

// HeadersByNumbers fetches many headers through id-matched batch calls,
// chunked to the configured batch size. A failed element fails its chunk and
// the chunk is retried as a whole.
func (c *Client) HeadersByNumbers(ctx context.Context, heights []uint64) (map[uint64]model.Header, error) {
	headers := make(map[uint64]model.Header, len(heights))

	for start := 0; start < len(heights); start += c.cfg.BatchChunkSize {
		end := start + c.cfg.BatchChunkSize
		if end > len(heights) {
			end = len(heights)
		}
		chunk := heights[start:end]

		results := make([]model.Header, len(chunk))
		started := time.Now()
		err := c.withRetry(ctx, "get_header_by_number_batch", func(callCtx context.Context) error {
			batch := make([]rpc.BatchElem, len(chunk))
			for i, h := range chunk {
				batch[i] = rpc.BatchElem{
					Method: "get_header_by_number",
					Args:   []interface{}{hexutil.Uint64(h)},
					Result: &results[i],
				}
			}
			if err := c.rpc.BatchCallContext(callCtx, batch); err != nil {
				return err
			}
			for i, elem := range batch {
				if elem.Error != nil {
					return fmt.Errorf("header %d: %w", chunk[i], elem.Error)
				}
			}
			return nil
		})
		if c.metrics != nil {
			c.metrics.Observe("get_header_by_number_batch", err, started)
		}
		if err != nil {
			return nil, err
		}

		for i, h := range chunk {
			if len(results[i].Accounting) == 0 {
				return nil, fmt.Errorf("header %d missing from node response", h)
			}
			headers[h] = results[i]
		}
	}

	return headers, nil
}

func (c *Client) call(ctx context.Context, operation string, result interface{}, method string, args ...interface{}) error {
	started := time.Now()
	err := c.withRetry(ctx, operation, func(callCtx context.Context) error {
		return c.rpc.CallContext(callCtx, result, method, args...)
	})
	if c.metrics != nil {
		c.metrics.Observe(operation, err, started)
	}
	return err
}

// withRetry runs fn with a per-attempt timeout and exponential backoff.
// Protocol errors are retried the same as transport errors; only context
// cancellation stops retrying early.
func (c *Client) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBaseDelay

	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if c.metrics != nil {
			c.metrics.ObserveRetry(operation)
		}
		if c.logger != nil {
			c.logger.Warn("rpc call failed, retrying",
				zap.String("operation", operation),
				zap.Duration("backoff", delay),
				zap.Error(err))
		}
	}

	err := backoff.RetryNotify(
		attempt,
		backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.RetryAttempts), ctx),
		notify,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// cursorArg converts an empty cursor into a JSON null.
func cursorArg(cursor string) interface{} {
	if cursor == "" {
		return nil
	}
	return cursor
}
