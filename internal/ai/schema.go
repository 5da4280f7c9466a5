package ai

// tradesSchemaDescription is the prompt-side view of the trades table the
// trade log writes. Keep it in sync with the columns InsertTrade populates.
const tradesSchemaDescription = `
Database: curves
Table: trades

Columns:
  - trade_id     String    -- Unique trade identifier (base58)
  - timestamp    DateTime  -- Settlement time of the trade (UTC)
  - mint         String    -- Token mint address the bonding curve trades
  - side         String    -- "buy" or "sell"
  - user         String    -- Trader address
  - token_amount UInt64    -- Token base units traded (6 decimals)
  - sol_amount   UInt64    -- Lamports moved through the curve (1 SOL = 1e9 lamports)
  - fee          UInt64    -- Protocol fee in lamports
  - complete     UInt8     -- 1 if this trade froze the curve

Notes:
  - Volume in SOL is SUM(sol_amount) / 1e9; volume in tokens is SUM(token_amount) / 1e6.
  - Fees collected are SUM(fee) / 1e9 SOL.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
  - complete = 1 rows mark graduation trades that emptied a curve.
`
