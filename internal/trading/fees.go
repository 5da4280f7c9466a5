package trading

import (
	"math/big"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/constants"
)

// feeAmount computes the protocol fee on a lamport amount, rounded down.
// Basis points are validated below the denominator at config time, so the
// result always fits back into uint64.
func feeAmount(amount, basisPoints uint64) uint64 {
	f := new(big.Int).Mul(
		new(big.Int).SetUint64(amount),
		new(big.Int).SetUint64(basisPoints),
	)
	f.Div(f, new(big.Int).SetUint64(constants.BasisPointDenominator))
	return f.Uint64()
}
