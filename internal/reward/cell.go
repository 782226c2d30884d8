package reward

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidCellShape marks a scanned item that cannot be classified. Such an
// item contributes zero reward and is skipped, never fatal.
var ErrInvalidCellShape = errors.New("invalid cell shape")

// CellKind classifies a stake cell by its marker data.
type CellKind int

const (
	// KindDeposit is a funds cell with the all-zero marker.
	KindDeposit CellKind = iota + 1
	// KindPrepare is a cell mid-way through withdrawal; its data encodes the
	// original deposit height.
	KindPrepare
)

const markerDataSize = 8

// ClassifyCellData inspects a stake cell's 8-byte marker. For a prepare cell
// the returned height is the block of the original deposit.
func ClassifyCellData(data []byte) (CellKind, uint64, error) {
	if len(data) != markerDataSize {
		return 0, 0, fmt.Errorf("%w: marker data is %d bytes, want %d",
			ErrInvalidCellShape, len(data), markerDataSize)
	}
	depositHeight := binary.LittleEndian.Uint64(data)
	if depositHeight == 0 {
		return KindDeposit, 0, nil
	}
	return KindPrepare, depositHeight, nil
}

// IsPrepareData reports whether data marks a prepare-withdraw cell.
func IsPrepareData(data []byte) bool {
	kind, _, err := ClassifyCellData(data)
	return err == nil && kind == KindPrepare
}
