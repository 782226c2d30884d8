package codec

import "fmt"

// Epoch is the decoded per-header epoch field.
type Epoch struct {
	// Number of the epoch.
	Number uint64
	// Index of the block within the epoch, 0-based.
	Index uint64
	// Length of the epoch in blocks, always > 0.
	Length uint64
}

// Packed epoch layout, confirmed against live header samples: length occupies
// the high 24 bits, index the following 16, number the low 24. Note this is
// not the layout some published references describe.
const (
	epochLengthShift = 40
	epochIndexShift  = 24

	epochLengthMask = 0xFFFFFF
	epochIndexMask  = 0xFFFF
	epochNumberMask = 0xFFFFFF
)

// DecodeEpoch unpacks the 64-bit epoch field.
func DecodeEpoch(v uint64) (Epoch, error) {
	e := Epoch{
		Length: (v >> epochLengthShift) & epochLengthMask,
		Index:  (v >> epochIndexShift) & epochIndexMask,
		Number: v & epochNumberMask,
	}
	if e.Length == 0 {
		return Epoch{}, fmt.Errorf("%w: epoch length is zero in %#x", ErrMalformedField, v)
	}
	return e, nil
}

// EncodeEpoch packs an epoch back into its 64-bit wire form.
func EncodeEpoch(e Epoch) uint64 {
	return (e.Length&epochLengthMask)<<epochLengthShift |
		(e.Index&epochIndexMask)<<epochIndexShift |
		e.Number&epochNumberMask
}
