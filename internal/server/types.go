package server

import "github.com/aman-zulfiqar/solana-curve-engine/internal/curve"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// CreateCurveRequest launches a new bonding curve for a mint
type CreateCurveRequest struct {
	Mint string `json:"mint"` // Token mint address (base58)
}

// CurveResponse is the stored reserve state for a mint
type CurveResponse struct {
	Mint string `json:"mint"`
	*curve.Curve
}

// TradeRequest is the body for buy and sell endpoints. MaxSolCost bounds a
// buy (fee included), MinSolOutput bounds a sell (fee deducted).
type TradeRequest struct {
	User         string `json:"user"`                    // Trader address (base58)
	TokenAmount  uint64 `json:"token_amount"`            // Token base units
	MaxSolCost   uint64 `json:"max_sol_cost,omitempty"`  // Buy slippage bound, lamports
	MinSolOutput uint64 `json:"min_sol_output"`          // Sell slippage bound, lamports
	FeeRecipient string `json:"fee_recipient,omitempty"` // Must match configured recipient if set
}

// WithdrawReq drains a completed curve's vault
type WithdrawReq struct {
	Authority string `json:"authority"` // Withdraw authority address (base58)
}

// FaucetRequest credits lamports to an address (dev mode only)
type FaucetRequest struct {
	User     string `json:"user"`
	Lamports uint64 `json:"lamports"`
}

// BalanceResponse reports an owner's ledger balances
type BalanceResponse struct {
	Owner        string  `json:"owner"`
	SolBalance   uint64  `json:"sol_balance"`
	Mint         string  `json:"mint,omitempty"`
	TokenBalance *uint64 `json:"token_balance,omitempty"` // Set when mint is queried
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about trade data
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}
