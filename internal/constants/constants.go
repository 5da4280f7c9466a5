package constants

// Default curve economics. Token amounts are in base units of a 6-decimal
// mint, SOL amounts in lamports.
const (
	DefaultDecimals = 6

	DefaultInitialVirtualSolReserves   = 30_000_000_000
	DefaultInitialVirtualTokenReserves = 1_073_000_000_000_000
	DefaultInitialRealTokenReserves    = 1_862_100_000_000_000
	DefaultInitialTokenSupply          = 1_000_000_000_000_000 // 1e9 tokens * 10^6

	DefaultFeeBasisPoints = 50
)

// Fees are expressed in basis points, parts per ten-thousand.
const BasisPointDenominator = 10_000

// Redis keys
const (
	RedisKeyRecentTrades = "trades:recent"
	RedisKeyCurvePrefix  = "curves:"
	RedisKeyCurveIndex   = "curves:index"
)

// Redis Pub/Sub channels
const (
	PubSubChannelTrades     = "trades:live"
	PubSubChannelMintPrefix = "trades:mint:"
	PubSubChannelSidePrefix = "trades:side:"
)

// Limits
const (
	MaxRecentTrades = 100
)
