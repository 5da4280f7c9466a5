package storage

import (
	"context"
	"io"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/models"
)

// CurveStore persists one reserve state per token mint.
type CurveStore interface {
	// GetCurve loads the curve for a mint, curve.ErrCurveNotFound if absent.
	GetCurve(ctx context.Context, mint solana.PublicKey) (*curve.Curve, error)

	// PutCurve stores the curve for a mint, overwriting any previous state.
	PutCurve(ctx context.Context, mint solana.PublicKey, c *curve.Curve) error

	// ListMints returns every mint with a stored curve.
	ListMints(ctx context.Context) ([]solana.PublicKey, error)

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	io.Closer
}

// Ledger is the asset-custody collaborator: it moves lamports and token base
// units between parties atomically and reports success or failure. The
// trading engine never touches balances except through it.
type Ledger interface {
	// MintToken credits freshly minted token base units to an owner.
	MintToken(ctx context.Context, mint, to solana.PublicKey, amount uint64) error

	// TransferToken moves token base units between two owners.
	TransferToken(ctx context.Context, mint, from, to solana.PublicKey, amount uint64) error

	// TransferSol moves lamports between two owners.
	TransferSol(ctx context.Context, from, to solana.PublicKey, lamports uint64) error

	// CreditSol credits lamports to an owner (funding/faucet path).
	CreditSol(ctx context.Context, to solana.PublicKey, lamports uint64) error

	// TokenBalance reports an owner's balance of a mint.
	TokenBalance(ctx context.Context, mint, owner solana.PublicKey) (uint64, error)

	// SolBalance reports an owner's lamport balance.
	SolBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
}

// TradeLog stores settled trades durably.
type TradeLog interface {
	// InsertTrade inserts a trade event into the log.
	InsertTrade(ctx context.Context, trade *models.TradeEvent) error

	// Ping checks if the log is reachable.
	Ping(ctx context.Context) error

	// Close closes the log connection.
	io.Closer
}

// TradeHandler is a function that processes trade events.
type TradeHandler func(*models.TradeEvent)

// TradeFeed publishes and subscribes to live trade events.
type TradeFeed interface {
	// PublishTrade publishes a trade event to the live channels.
	PublishTrade(ctx context.Context, trade *models.TradeEvent) error

	// SubscribeTrades subscribes to real-time trade events.
	SubscribeTrades(ctx context.Context) (<-chan *models.TradeEvent, error)
}

// TradeCache keeps a bounded list of the most recent trades for the API.
type TradeCache interface {
	// AddRecentTrade pushes a trade onto the recent list.
	AddRecentTrade(ctx context.Context, trade *models.TradeEvent) error

	// GetRecentTrades retrieves the most recent trades.
	GetRecentTrades(ctx context.Context, limit int64) ([]*models.TradeEvent, error)
}
