package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEpoch_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		epoch Epoch
	}{
		{name: "genesis epoch", epoch: Epoch{Number: 0, Index: 0, Length: 1}},
		{name: "typical epoch", epoch: Epoch{Number: 5891, Index: 724, Length: 1800}},
		{name: "max fields", epoch: Epoch{Number: 1<<24 - 1, Index: 1<<16 - 1, Length: 1<<24 - 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decoded, err := DecodeEpoch(EncodeEpoch(tt.epoch))
			require.NoError(t, err)
			assert.Equal(t, tt.epoch, decoded)
		})
	}
}

func TestDecodeEpoch_Layout(t *testing.T) {
	t.Parallel()

	// length in the high 24 bits, index in the next 16, number in the low 24
	v := uint64(1800)<<40 | uint64(724)<<24 | uint64(5891)
	e, err := DecodeEpoch(v)
	require.NoError(t, err)
	assert.Equal(t, Epoch{Number: 5891, Index: 724, Length: 1800}, e)
}

func TestDecodeEpoch_ZeroLength(t *testing.T) {
	t.Parallel()

	_, err := DecodeEpoch(uint64(724)<<24 | uint64(5891))
	require.ErrorIs(t, err, ErrMalformedField)
}
