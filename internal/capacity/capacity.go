// Package capacity implements the chain's storage-rent arithmetic: how many
// bytes of a cell's declared capacity its own footprint occupies.
package capacity

import (
	"fmt"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
	"github.com/goodnatureofminers/chainaudit7000-backend/pkg/safe"
)

// ShannonsPerByte is the capacity charge per occupied byte: one full display
// unit (10^8 shannons) per byte.
const ShannonsPerByte = 100_000_000

const (
	capacityFieldBytes = 8
	codeHashBytes      = 32
	hashTypeBytes      = 1
)

// ScriptOccupiedBytes returns the storage footprint of a script.
func ScriptOccupiedBytes(s model.Script) (uint32, error) {
	args, err := safe.Uint32(len(s.Args))
	if err != nil {
		return 0, fmt.Errorf("script args length: %w", err)
	}
	return codeHashBytes + hashTypeBytes + args, nil
}

// OccupiedBytes returns a cell's full storage footprint: capacity field, lock
// script, optional type script and output data.
func OccupiedBytes(out model.CellOutput, data []byte) (uint32, error) {
	lock, err := ScriptOccupiedBytes(out.Lock)
	if err != nil {
		return 0, fmt.Errorf("lock script: %w", err)
	}
	total := uint64(capacityFieldBytes) + uint64(lock)

	if out.Type != nil {
		typ, err := ScriptOccupiedBytes(*out.Type)
		if err != nil {
			return 0, fmt.Errorf("type script: %w", err)
		}
		total += uint64(typ)
	}

	dataLen, err := safe.Uint32(len(data))
	if err != nil {
		return 0, fmt.Errorf("output data length: %w", err)
	}
	total += uint64(dataLen)

	return safe.Uint32(total)
}

// OccupiedCapacity returns the occupied footprint priced in shannons.
func OccupiedCapacity(out model.CellOutput, data []byte) (uint64, error) {
	occupied, err := OccupiedBytes(out, data)
	if err != nil {
		return 0, err
	}
	return uint64(occupied) * ShannonsPerByte, nil
}

// FreeCapacity returns the interest-bearing part of a cell's capacity. It is
// negative only for malformed or under-funded cells; callers must treat a
// non-positive result as "no reward, skip".
func FreeCapacity(out model.CellOutput, data []byte) (int64, error) {
	occupied, err := OccupiedCapacity(out, data)
	if err != nil {
		return 0, err
	}
	declared, err := safe.Int64(uint64(out.Capacity))
	if err != nil {
		return 0, fmt.Errorf("declared capacity: %w", err)
	}
	occupiedSigned, err := safe.Int64(occupied)
	if err != nil {
		return 0, fmt.Errorf("occupied capacity: %w", err)
	}
	return declared - occupiedSigned, nil
}
