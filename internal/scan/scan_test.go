package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

type fakeCellSource struct {
	pages   []model.CellPage
	cursors []string
	err     error
}

func (f *fakeCellSource) Cells(_ context.Context, _ model.SearchKey, _ model.Order, _ uint64, cursor string) (model.CellPage, error) {
	if f.err != nil {
		return model.CellPage{}, f.err
	}
	f.cursors = append(f.cursors, cursor)
	if len(f.pages) == 0 {
		return model.CellPage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func cellAt(height uint64) model.LiveCell {
	return model.LiveCell{BlockNumber: hexutil.Uint64(height)}
}

func TestCellScanner_WalksAllPagesInOrder(t *testing.T) {
	t.Parallel()

	source := &fakeCellSource{pages: []model.CellPage{
		{LastCursor: "0x01", Objects: []model.LiveCell{cellAt(1), cellAt(2)}},
		{LastCursor: "0x02", Objects: []model.LiveCell{cellAt(3)}},
		{LastCursor: "0x02", Objects: nil},
	}}

	s := NewCellScanner(source, model.SearchKey{}, model.OrderAsc, 2, nil)

	var heights []uint64
	for {
		cell, ok, err := s.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		heights = append(heights, uint64(cell.BlockNumber))
	}

	assert.Equal(t, []uint64{1, 2, 3}, heights)
	// fresh walk starts with an empty cursor, then threads each page's token
	assert.Equal(t, []string{"", "0x01", "0x02"}, source.cursors)

	// the sequence stays ended
	_, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCellScanner_EmptyCursorEndsWalk(t *testing.T) {
	t.Parallel()

	source := &fakeCellSource{pages: []model.CellPage{
		{LastCursor: "0x", Objects: []model.LiveCell{cellAt(9)}},
	}}

	s := NewCellScanner(source, model.SearchKey{}, model.OrderAsc, 10, nil)

	cell, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hexutil.Uint64(9), cell.BlockNumber)

	_, ok, err = s.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, source.cursors, 1, "no further page after terminal cursor")
}

func TestCellScanner_PropagatesSourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("node down")
	s := NewCellScanner(&fakeCellSource{err: boom}, model.SearchKey{}, model.OrderAsc, 10, nil)

	_, _, err := s.Next(context.Background())
	require.ErrorIs(t, err, boom)
}

type fakeTxSource struct {
	pages []model.TxPage
}

func (f *fakeTxSource) Transactions(_ context.Context, _ model.SearchKey, _ model.Order, _ uint64, _ string) (model.TxPage, error) {
	if len(f.pages) == 0 {
		return model.TxPage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func TestTxScanner_WalksRecords(t *testing.T) {
	t.Parallel()

	source := &fakeTxSource{pages: []model.TxPage{
		{LastCursor: "0xaa", Objects: []model.TxRecord{
			{IOType: "input", IOIndex: 0},
			{IOType: "output", IOIndex: 1},
		}},
	}}

	s := NewTxScanner(source, model.SearchKey{}, model.OrderAsc, 2, nil)

	var kinds []string
	for {
		rec, ok, err := s.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		kinds = append(kinds, rec.IOType)
	}
	assert.Equal(t, []string{"input", "output"}, kinds)
}

func TestRangeKey(t *testing.T) {
	t.Parallel()

	key := RangeKey(model.SearchKey{ScriptType: model.ScriptTypeType}, 100, 200)
	require.NotNil(t, key.Filter)
	require.NotNil(t, key.Filter.BlockRange)
	assert.Equal(t, hexutil.Uint64(100), key.Filter.BlockRange[0])
	assert.Equal(t, hexutil.Uint64(201), key.Filter.BlockRange[1])
}
