// Package codec decodes the packed binary accounting and epoch fields carried
// in block headers.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedField marks header data that fails a decoding invariant. It is
// never retryable: it means the chain's encoding does not match expectations.
var ErrMalformedField = errors.New("malformed header field")

// AccountingFieldSize is the packed byte length of the accounting field.
const AccountingFieldSize = 32

// AccountingField is the per-header stake accounting snapshot: four
// little-endian u64s packed into 32 bytes.
type AccountingField struct {
	// Circulating is the total issued capacity (C).
	Circulating uint64
	// AccumulatedRate prices deposits over time (AR).
	AccumulatedRate uint64
	// TreasuryStock is the burned treasury portion (S).
	TreasuryStock uint64
	// UnissuedSecondary is the secondary-issuance reserve (U).
	UnissuedSecondary uint64
}

// DecodeAccountingField unpacks the 32-byte accounting field.
func DecodeAccountingField(b []byte) (AccountingField, error) {
	if len(b) != AccountingFieldSize {
		return AccountingField{}, fmt.Errorf("%w: accounting field is %d bytes, want %d",
			ErrMalformedField, len(b), AccountingFieldSize)
	}
	return AccountingField{
		Circulating:       binary.LittleEndian.Uint64(b[0:8]),
		AccumulatedRate:   binary.LittleEndian.Uint64(b[8:16]),
		TreasuryStock:     binary.LittleEndian.Uint64(b[16:24]),
		UnissuedSecondary: binary.LittleEndian.Uint64(b[24:32]),
	}, nil
}

// EncodeAccountingField packs the accounting field back into its wire form.
func EncodeAccountingField(f AccountingField) []byte {
	b := make([]byte, AccountingFieldSize)
	binary.LittleEndian.PutUint64(b[0:8], f.Circulating)
	binary.LittleEndian.PutUint64(b[8:16], f.AccumulatedRate)
	binary.LittleEndian.PutUint64(b[16:24], f.TreasuryStock)
	binary.LittleEndian.PutUint64(b[24:32], f.UnissuedSecondary)
	return b
}
