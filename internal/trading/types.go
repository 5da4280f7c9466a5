package trading

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/constants"
)

// Config holds the protocol parameters the engine trades under.
type Config struct {
	// Fee taken on every trade, in basis points of the curve-side lamports.
	FeeBasisPoints uint64

	// FeeRecipient receives the protocol fee. Requests naming a different
	// recipient are rejected.
	FeeRecipient solana.PublicKey

	// WithdrawAuthority is the only party allowed to drain completed curves.
	WithdrawAuthority solana.PublicKey

	// Reserve parameters applied to every newly created curve.
	InitialVirtualSolReserves   uint64
	InitialVirtualTokenReserves uint64
	InitialRealTokenReserves    uint64
	InitialTokenSupply          uint64
}

// DefaultConfig returns the standard launch parameters.
func DefaultConfig() Config {
	return Config{
		FeeBasisPoints:              constants.DefaultFeeBasisPoints,
		InitialVirtualSolReserves:   constants.DefaultInitialVirtualSolReserves,
		InitialVirtualTokenReserves: constants.DefaultInitialVirtualTokenReserves,
		InitialRealTokenReserves:    constants.DefaultInitialRealTokenReserves,
		InitialTokenSupply:          constants.DefaultInitialTokenSupply,
	}
}

// BuyRequest asks the engine to buy tokens from a curve.
type BuyRequest struct {
	Mint solana.PublicKey
	User solana.PublicKey

	// TokenAmount is the requested amount of token base units. The engine
	// may settle less if the curve's vault holds less.
	TokenAmount uint64

	// MaxSolCost bounds the total lamports the user will pay, fee included.
	MaxSolCost uint64

	// FeeRecipient must match the configured recipient. Zero means use the
	// configured one.
	FeeRecipient solana.PublicKey
}

// SellRequest asks the engine to sell tokens back to a curve.
type SellRequest struct {
	Mint solana.PublicKey
	User solana.PublicKey

	// TokenAmount is the exact amount of token base units to sell.
	TokenAmount uint64

	// MinSolOutput bounds the net lamports the user accepts, after fee.
	MinSolOutput uint64

	// FeeRecipient must match the configured recipient. Zero means use the
	// configured one.
	FeeRecipient solana.PublicKey
}

// WithdrawRequest drains a completed curve's vault.
type WithdrawRequest struct {
	Mint      solana.PublicKey
	Authority solana.PublicKey
}

// BuyQuote prices a buy without executing it.
type BuyQuote struct {
	// TokenAmount is what would actually settle after vault clamping.
	TokenAmount uint64 `json:"token_amount"`
	SolCost     uint64 `json:"sol_cost"`
	Fee         uint64 `json:"fee"`
	// TotalCost is what the user pays: SolCost + Fee.
	TotalCost uint64 `json:"total_cost"`
}

// SellQuote prices a sell without executing it.
type SellQuote struct {
	TokenAmount uint64 `json:"token_amount"`
	SolOutput   uint64 `json:"sol_output"`
	Fee         uint64 `json:"fee"`
	// NetOutput is what the user receives: SolOutput - Fee.
	NetOutput uint64 `json:"net_output"`
}

// Settlement reports an executed trade. SolAmount is the curve-side lamports
// (the amount that moved in or out of the vault's SOL reserves); the user's
// cash flow is SolAmount plus the fee on buys and SolAmount minus the fee on
// sells.
type Settlement struct {
	TradeID     string           `json:"trade_id"`
	Mint        solana.PublicKey `json:"mint"`
	Side        string           `json:"side"`
	User        solana.PublicKey `json:"user"`
	TokenAmount uint64           `json:"token_amount"`
	SolAmount   uint64           `json:"sol_amount"`
	Fee         uint64           `json:"fee"`
	Complete    bool             `json:"complete"`
	Timestamp   time.Time        `json:"timestamp"`
}

// WithdrawResult reports what a withdraw drained from the vault.
type WithdrawResult struct {
	Mint        solana.PublicKey `json:"mint"`
	SolAmount   uint64           `json:"sol_amount"`
	TokenAmount uint64           `json:"token_amount"`
}
