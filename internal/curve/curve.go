package curve

import (
	"fmt"
	"math"
	"math/big"
)

// Curve is the reserve state of one bonding curve. Reserve fields are stored
// at the same uint64 width as on-chain account data; all pricing math widens
// to big.Int so intermediate products cannot overflow, and every result is
// checked back into uint64 before it is reported or applied.
//
// VirtualSolReserves and VirtualTokenReserves are notional quantities used
// only for pricing. RealSolReserves and RealTokenReserves are the custodied
// quantities actually deliverable. InitialVirtualTokenReserves is a snapshot
// taken at creation and never changes; sell pricing scales against it rather
// than the live reserves.
type Curve struct {
	VirtualSolReserves          uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves        uint64 `json:"virtual_token_reserves"`
	RealSolReserves             uint64 `json:"real_sol_reserves"`
	RealTokenReserves           uint64 `json:"real_token_reserves"`
	InitialVirtualTokenReserves uint64 `json:"initial_virtual_token_reserves"`
	TokenTotalSupply            uint64 `json:"token_total_supply"`
	Complete                    bool   `json:"complete"`
}

// BuyResult reports a settled buy: the token amount actually delivered
// (which may be less than requested) and the lamports owed for it.
type BuyResult struct {
	TokenAmount uint64
	SolAmount   uint64
}

// SellResult reports a settled sell. Sells are never partially filled.
type SellResult struct {
	TokenAmount uint64
	SolAmount   uint64
}

// New returns a freshly created curve: real SOL reserves start at zero and
// the initial virtual token baseline is snapshotted from the virtual token
// reserves.
func New(virtualSol, virtualToken, realToken, tokenTotalSupply uint64) *Curve {
	return &Curve{
		VirtualSolReserves:          virtualSol,
		VirtualTokenReserves:        virtualToken,
		RealSolReserves:             0,
		RealTokenReserves:           realToken,
		InitialVirtualTokenReserves: virtualToken,
		TokenTotalSupply:            tokenTotalSupply,
		Complete:                    false,
	}
}

// QuoteBuy returns the exact lamport cost of buying tokens at the current
// state. The price follows the constant product vSol*vTok with the division
// rounded up (floor + 1), so the post-trade product never drops below the
// pre-trade product and rounding always favors the pool.
func (c *Curve) QuoteBuy(tokens uint64) (uint64, error) {
	if tokens == 0 {
		return 0, ErrZeroAmount
	}
	if tokens > c.VirtualTokenReserves {
		return 0, ErrReserveExceeded
	}

	product := new(big.Int).Mul(
		new(big.Int).SetUint64(c.VirtualSolReserves),
		new(big.Int).SetUint64(c.VirtualTokenReserves),
	)

	newVirtualToken := c.VirtualTokenReserves - tokens
	if newVirtualToken == 0 {
		// Buying the entire virtual reserve would price at infinity.
		return 0, fmt.Errorf("%w: virtual token reserves exhausted", ErrOverflow)
	}

	newVirtualSol := new(big.Int).Div(product, new(big.Int).SetUint64(newVirtualToken))
	newVirtualSol.Add(newVirtualSol, big.NewInt(1))

	cost := new(big.Int).Sub(newVirtualSol, new(big.Int).SetUint64(c.VirtualSolReserves))
	if cost.Sign() < 0 {
		return 0, ErrUnderflow
	}
	if !cost.IsUint64() {
		return 0, fmt.Errorf("%w: buy cost exceeds uint64", ErrOverflow)
	}
	return cost.Uint64(), nil
}

// ApplyBuy settles a buy against the curve. The requested amount is clamped
// to the real token reserves: a buy can never deliver more tokens than are
// custodied, no matter what the virtual reserves would price. All four
// reserve mutations are staged on a copy and committed together, so a failed
// buy leaves the curve untouched.
func (c *Curve) ApplyBuy(requested uint64) (*BuyResult, error) {
	settled := requested
	if settled > c.RealTokenReserves {
		settled = c.RealTokenReserves
	}

	cost, err := c.QuoteBuy(settled)
	if err != nil {
		return nil, err
	}

	next := *c

	next.VirtualTokenReserves, err = subChecked(next.VirtualTokenReserves, settled)
	if err != nil {
		return nil, err
	}
	next.RealTokenReserves, err = subChecked(next.RealTokenReserves, settled)
	if err != nil {
		return nil, err
	}
	next.VirtualSolReserves, err = addChecked(next.VirtualSolReserves, cost)
	if err != nil {
		return nil, err
	}
	next.RealSolReserves, err = addChecked(next.RealSolReserves, cost)
	if err != nil {
		return nil, err
	}

	*c = next
	return &BuyResult{TokenAmount: settled, SolAmount: cost}, nil
}

// QuoteSell returns the lamport payout for selling tokens at the current
// state. The payout scales the virtual SOL reserves by the seller's share of
// the immutable initial virtual token baseline, not by the live constant
// product, and is capped at the real SOL reserves so the pool can never owe
// more than it custodies.
func (c *Curve) QuoteSell(tokens uint64) (uint64, error) {
	if tokens == 0 {
		return 0, ErrZeroAmount
	}
	if tokens > c.VirtualTokenReserves {
		return 0, ErrReserveExceeded
	}

	baseline := new(big.Int).SetUint64(c.InitialVirtualTokenReserves)

	scaled := new(big.Int).Mul(new(big.Int).SetUint64(tokens), baseline)
	proportion := scaled.Div(scaled, new(big.Int).SetUint64(c.VirtualTokenReserves))

	payout := new(big.Int).Mul(new(big.Int).SetUint64(c.VirtualSolReserves), proportion)
	payout.Div(payout, baseline)

	if !payout.IsUint64() {
		return 0, fmt.Errorf("%w: sell payout exceeds uint64", ErrOverflow)
	}

	out := payout.Uint64()
	if out > c.RealSolReserves {
		out = c.RealSolReserves
	}
	return out, nil
}

// ApplySell settles a sell against the curve. Token reserves are incremented
// first and the payout is priced against the incremented virtual token
// reserve; the over-reserve check in QuoteSell is kept as defense in depth
// even though this ordering makes it unreachable for a same-call sell.
// Mutations are staged on a copy and committed together.
func (c *Curve) ApplySell(tokens uint64) (*SellResult, error) {
	next := *c

	var err error
	next.VirtualTokenReserves, err = addChecked(next.VirtualTokenReserves, tokens)
	if err != nil {
		return nil, err
	}
	next.RealTokenReserves, err = addChecked(next.RealTokenReserves, tokens)
	if err != nil {
		return nil, err
	}

	payout, err := next.QuoteSell(tokens)
	if err != nil {
		return nil, err
	}

	next.VirtualSolReserves, err = subChecked(next.VirtualSolReserves, payout)
	if err != nil {
		return nil, err
	}
	next.RealSolReserves, err = subChecked(next.RealSolReserves, payout)
	if err != nil {
		return nil, err
	}

	*c = next
	return &SellResult{TokenAmount: tokens, SolAmount: payout}, nil
}

// Clone returns a copy of the curve, used for read-only quoting.
func (c *Curve) Clone() *Curve {
	clone := *c
	return &clone
}

func addChecked(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return a + b, nil
}

func subChecked(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrUnderflow, a, b)
	}
	return a - b, nil
}
