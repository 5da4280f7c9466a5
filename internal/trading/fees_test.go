package trading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount uint64
		bps    uint64
		want   uint64
	}{
		{"fifty bps", 10_000, 50, 50},
		{"rounds down", 199, 50, 0},
		{"zero amount", 0, 50, 0},
		{"zero bps", 1_000_000, 0, 0},
		{"known trade cost", 7_500_000_001, 50, 37_500_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, feeAmount(tt.amount, tt.bps))
		})
	}
}

func TestFeeAmount_WideProduct(t *testing.T) {
	// amount * bps overflows uint64; the big.Int path must not wrap.
	got := feeAmount(math.MaxUint64, 9_999)
	assert.Less(t, got, uint64(math.MaxUint64))
	assert.Greater(t, got, uint64(0))
}
