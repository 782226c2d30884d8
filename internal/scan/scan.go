// Package scan walks cursor-paged node queries as lazy pull-based sequences.
// A scanner is finite and not restartable: rescanning requires a fresh walk.
package scan

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

type (
	// CellSource serves paged live-cell queries.
	CellSource interface {
		Cells(ctx context.Context, key model.SearchKey, order model.Order, limit uint64, cursor string) (model.CellPage, error)
	}

	// TxSource serves paged confirmed-transaction queries.
	TxSource interface {
		Transactions(ctx context.Context, key model.SearchKey, order model.Order, limit uint64, cursor string) (model.TxPage, error)
	}

	// Metrics records fetched pages.
	Metrics interface {
		ObservePage(err error, items int, started time.Time)
	}
)

// cursorDone reports a continuation token that ends the walk.
func cursorDone(cursor string) bool {
	return cursor == "" || cursor == "0x"
}

// CellScanner iterates live cells matching a search key in the order the node
// returns them.
type CellScanner struct {
	source  CellSource
	key     model.SearchKey
	order   model.Order
	limit   uint64
	metrics Metrics

	cursor    string
	buf       []model.LiveCell
	pos       int
	exhausted bool
}

// NewCellScanner builds a scanner over one fresh cursor walk.
func NewCellScanner(source CellSource, key model.SearchKey, order model.Order, limit uint64, metrics Metrics) *CellScanner {
	return &CellScanner{
		source:  source,
		key:     key,
		order:   order,
		limit:   limit,
		metrics: metrics,
	}
}

// Next returns the next cell. ok is false once the sequence ends.
func (s *CellScanner) Next(ctx context.Context) (cell model.LiveCell, ok bool, err error) {
	for {
		if s.pos < len(s.buf) {
			cell = s.buf[s.pos]
			s.pos++
			return cell, true, nil
		}
		if s.exhausted {
			return model.LiveCell{}, false, nil
		}

		started := time.Now()
		page, err := s.source.Cells(ctx, s.key, s.order, s.limit, s.cursor)
		if s.metrics != nil {
			s.metrics.ObservePage(err, len(page.Objects), started)
		}
		if err != nil {
			return model.LiveCell{}, false, err
		}

		s.buf = page.Objects
		s.pos = 0
		s.cursor = page.LastCursor
		if len(page.Objects) == 0 || cursorDone(page.LastCursor) {
			s.exhausted = true
		}
	}
}

// TxScanner iterates confirmed transaction records matching a search key.
type TxScanner struct {
	source  TxSource
	key     model.SearchKey
	order   model.Order
	limit   uint64
	metrics Metrics

	cursor    string
	buf       []model.TxRecord
	pos       int
	exhausted bool
}

// NewTxScanner builds a scanner over one fresh cursor walk.
func NewTxScanner(source TxSource, key model.SearchKey, order model.Order, limit uint64, metrics Metrics) *TxScanner {
	return &TxScanner{
		source:  source,
		key:     key,
		order:   order,
		limit:   limit,
		metrics: metrics,
	}
}

// Next returns the next transaction record. ok is false once the sequence ends.
func (s *TxScanner) Next(ctx context.Context) (rec model.TxRecord, ok bool, err error) {
	for {
		if s.pos < len(s.buf) {
			rec = s.buf[s.pos]
			s.pos++
			return rec, true, nil
		}
		if s.exhausted {
			return model.TxRecord{}, false, nil
		}

		started := time.Now()
		page, err := s.source.Transactions(ctx, s.key, s.order, s.limit, s.cursor)
		if s.metrics != nil {
			s.metrics.ObservePage(err, len(page.Objects), started)
		}
		if err != nil {
			return model.TxRecord{}, false, err
		}

		s.buf = page.Objects
		s.pos = 0
		s.cursor = page.LastCursor
		if len(page.Objects) == 0 || cursorDone(page.LastCursor) {
			s.exhausted = true
		}
	}
}

// RangeKey narrows a search key to the closed height range [from, to]
// server-side. The node's filter bound is half-open.
func RangeKey(key model.SearchKey, from, to uint64) model.SearchKey {
	filtered := key
	filtered.Filter = &model.SearchFilter{
		BlockRange: &[2]hexutil.Uint64{hexutil.Uint64(from), hexutil.Uint64(to + 1)},
	}
	return filtered
}
