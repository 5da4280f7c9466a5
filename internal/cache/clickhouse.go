package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/models"
)

// ClickHouseConfig holds connection settings for the trade log.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseTradeLog stores settled trades in the trades table for
// analytics queries.
type ClickHouseTradeLog struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseTradeLog(ctx context.Context, cfg ClickHouseConfig, logger *logrus.Logger) (*ClickHouseTradeLog, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseTradeLog{conn: conn, logger: logger}, nil
}

func (c *ClickHouseTradeLog) InsertTrade(ctx context.Context, trade *models.TradeEvent) error {
	query := `
		INSERT INTO trades (
			trade_id, timestamp, mint, side, user,
			token_amount, sol_amount, fee, complete
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		trade.TradeID,
		trade.Timestamp,
		trade.Mint,
		trade.Side,
		trade.User,
		trade.TokenAmount,
		trade.SolAmount,
		trade.Fee,
		trade.Complete,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (c *ClickHouseTradeLog) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseTradeLog) Close() error {
	return c.conn.Close()
}
