package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/models"
)

// RedisCurveStore persists one curve per mint as a JSON value plus an index
// set of known mints.
type RedisCurveStore struct {
	client redis.Cmdable
	closer func() error
	logger *logrus.Logger
}

// NewRedisCurveStore wraps an existing Redis client.
func NewRedisCurveStore(client *redis.Client, logger *logrus.Logger) *RedisCurveStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCurveStore{client: client, closer: client.Close, logger: logger}
}

func curveKey(mint solana.PublicKey) string {
	return constants.RedisKeyCurvePrefix + mint.String()
}

func (s *RedisCurveStore) GetCurve(ctx context.Context, mint solana.PublicKey) (*curve.Curve, error) {
	val, err := s.client.Get(ctx, curveKey(mint)).Result()
	if err == redis.Nil {
		return nil, curve.ErrCurveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get curve: %w", err)
	}

	var c curve.Curve
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return nil, fmt.Errorf("unmarshal curve: %w", err)
	}
	return &c, nil
}

func (s *RedisCurveStore) PutCurve(ctx context.Context, mint solana.PublicKey, c *curve.Curve) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal curve: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, curveKey(mint), b, 0)
	pipe.SAdd(ctx, constants.RedisKeyCurveIndex, mint.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put curve: %w", err)
	}
	return nil
}

func (s *RedisCurveStore) ListMints(ctx context.Context) ([]solana.PublicKey, error) {
	keys, err := s.client.SMembers(ctx, constants.RedisKeyCurveIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list curve index: %w", err)
	}

	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		mint, err := solana.PublicKeyFromBase58(k)
		if err != nil {
			s.logger.WithField("key", k).Warn("skipping malformed mint in curve index")
			continue
		}
		out = append(out, mint)
	}
	return out, nil
}

func (s *RedisCurveStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisCurveStore) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// RedisTradeCache keeps a bounded list of recent trades for the API.
type RedisTradeCache struct {
	client redis.Cmdable
}

func NewRedisTradeCache(client redis.Cmdable) *RedisTradeCache {
	return &RedisTradeCache{client: client}
}

func (c *RedisTradeCache) AddRecentTrade(ctx context.Context, trade *models.TradeEvent) error {
	b, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentTrades, b)
	pipe.LTrim(ctx, constants.RedisKeyRecentTrades, 0, constants.MaxRecentTrades-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent trade: %w", err)
	}
	return nil
}

func (c *RedisTradeCache) GetRecentTrades(ctx context.Context, limit int64) ([]*models.TradeEvent, error) {
	if limit < 1 {
		limit = constants.MaxRecentTrades
	}

	vals, err := c.client.LRange(ctx, constants.RedisKeyRecentTrades, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent trades: %w", err)
	}

	out := make([]*models.TradeEvent, 0, len(vals))
	for _, v := range vals {
		var ev models.TradeEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}
