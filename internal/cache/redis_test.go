package cache

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())
	return client
}

func TestRedisCurveStore_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRedisCurveStore(client, nil)
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()

	_, err := store.GetCurve(ctx, mint)
	assert.ErrorIs(t, err, curve.ErrCurveNotFound)

	c := curve.New(30_000_000_000, 1_000_000_000_000, 800_000_000_000, 1_000_000_000_000)
	require.NoError(t, store.PutCurve(ctx, mint, c))

	got, err := store.GetCurve(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// Mutated state overwrites in place
	_, err = c.ApplyBuy(200_000_000_000)
	require.NoError(t, err)
	require.NoError(t, store.PutCurve(ctx, mint, c))

	got, err = store.GetCurve(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(600_000_000_000), got.RealTokenReserves)

	mints, err := store.ListMints(ctx)
	require.NoError(t, err)
	require.Len(t, mints, 1)
	assert.Equal(t, mint, mints[0])
}

func TestRedisTradeCache_Bounded(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewRedisTradeCache(client)
	ctx := context.Background()

	for i := 0; i < 110; i++ {
		err := cache.AddRecentTrade(ctx, &models.TradeEvent{
			TradeID:   solana.NewWallet().PublicKey().String(),
			Timestamp: time.Now().UTC(),
			Mint:      "mint",
			Side:      models.TradeSideBuy,
		})
		require.NoError(t, err)
	}

	// The list is trimmed to the cap, newest first
	trades, err := cache.GetRecentTrades(ctx, 200)
	require.NoError(t, err)
	assert.Len(t, trades, 100)
}

func TestPubSubFeed_PublishSubscribe(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	feed := NewPubSubFeed(client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trades, err := feed.SubscribeTrades(ctx)
	require.NoError(t, err)

	sent := &models.TradeEvent{
		TradeID:     "abc",
		Timestamp:   time.Now().UTC().Truncate(time.Second),
		Mint:        solana.NewWallet().PublicKey().String(),
		Side:        models.TradeSideSell,
		TokenAmount: 42,
		SolAmount:   7,
	}
	require.NoError(t, feed.PublishTrade(ctx, sent))

	select {
	case got := <-trades:
		require.NotNil(t, got)
		assert.Equal(t, sent.TradeID, got.TradeID)
		assert.Equal(t, sent.Mint, got.Mint)
		assert.Equal(t, sent.TokenAmount, got.TokenAmount)
	case <-ctx.Done():
		t.Fatal("timed out waiting for trade event")
	}
}
