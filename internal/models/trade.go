package models

import "time"

// Trade sides as stored and published.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// TradeEvent is one settled trade against a bonding curve, as persisted to
// ClickHouse and published on the Redis trade feed.
type TradeEvent struct {
	TradeID     string    `json:"trade_id"`
	Timestamp   time.Time `json:"timestamp"`
	Mint        string    `json:"mint"`
	Side        string    `json:"side"` // "buy" or "sell"
	User        string    `json:"user"`
	TokenAmount uint64    `json:"token_amount"`
	SolAmount   uint64    `json:"sol_amount"`
	Fee         uint64    `json:"fee"`
	Complete    bool      `json:"complete"` // curve froze as a result of this trade
}
