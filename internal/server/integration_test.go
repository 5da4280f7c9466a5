package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/trading"
)

const (
	integrationAddr = ":8091"
	integrationKey  = "test-api-key-integration"
	integrationBase = "http://localhost:8091"
)

// Full-stack test against a live Redis: curve state, trade cache and flags
// all go through Redis, trades go through the real engine over HTTP.
func setupIntegrationTest(t *testing.T) func() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   2, // Use different DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	_ = redisClient.FlushDB(ctx).Err()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	led := ledger.NewMemory()
	store := cache.NewRedisCurveStore(redisClient, logger)
	tradeCache := cache.NewRedisTradeCache(redisClient)
	flagStore, err := flags.NewStore(redisClient)
	require.NoError(t, err)

	engCfg := trading.Config{
		FeeBasisPoints:              50,
		FeeRecipient:                solana.NewWallet().PublicKey(),
		WithdrawAuthority:           solana.NewWallet().PublicKey(),
		InitialVirtualSolReserves:   30_000_000_000,
		InitialVirtualTokenReserves: 1_000_000_000_000,
		InitialRealTokenReserves:    800_000_000_000,
		InitialTokenSupply:          1_000_000_000_000,
	}
	engine, err := trading.NewEngine(engCfg, store, led, logger)
	require.NoError(t, err)
	engine.WithTradeCache(tradeCache).WithSwitches(flagStore)

	handlers := &Handlers{
		Engine:  engine,
		Ledger:  led,
		Cache:   tradeCache,
		Flags:   flagStore,
		DevMode: true,
		Logger:  logger,
	}

	srv, err := NewServer(ServerDeps{
		Handlers: handlers,
		Config: ServerConfig{
			Addr:    integrationAddr,
			DevMode: true,
			APIKey:  integrationKey,
		},
	})
	require.NoError(t, err)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}
}

func makeRequest(t *testing.T, method, url string, body any, expectedStatus int) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", integrationKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode, "expected status %d, got %d", expectedStatus, resp.StatusCode)

	return resp
}

func TestIntegration_TradeLifecycle(t *testing.T) {
	cleanup := setupIntegrationTest(t)
	defer cleanup()

	mint := solana.NewWallet().PublicKey().String()
	user := solana.NewWallet().PublicKey().String()

	// Launch a curve
	resp := makeRequest(t, http.MethodPost, integrationBase+"/v1/curves",
		map[string]any{"mint": mint}, http.StatusCreated)
	resp.Body.Close()

	// Fund the trader
	resp = makeRequest(t, http.MethodPost, integrationBase+"/v1/faucet",
		map[string]any{"user": user, "lamports": 10_000_000_000}, http.StatusNoContent)
	resp.Body.Close()

	// Quote then buy at the quoted total
	resp = makeRequest(t, http.MethodGet,
		fmt.Sprintf("%s/v1/curves/%s/quote/buy?tokens=200000000000", integrationBase, mint),
		nil, http.StatusOK)
	var quote trading.BuyQuote
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quote))
	resp.Body.Close()
	assert.Equal(t, uint64(7_500_000_001), quote.SolCost)

	resp = makeRequest(t, http.MethodPost,
		fmt.Sprintf("%s/v1/curves/%s/buy", integrationBase, mint),
		map[string]any{"user": user, "token_amount": 200_000_000_000, "max_sol_cost": quote.TotalCost},
		http.StatusOK)
	var settlement trading.Settlement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settlement))
	resp.Body.Close()
	assert.Equal(t, quote.SolCost, settlement.SolAmount)

	// Curve state survived the Redis round trip
	resp = makeRequest(t, http.MethodGet, integrationBase+"/v1/curves/"+mint, nil, http.StatusOK)
	var cr CurveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cr))
	resp.Body.Close()
	assert.Equal(t, uint64(600_000_000_000), cr.RealTokenReserves)
	assert.Equal(t, uint64(7_500_000_001), cr.RealSolReserves)

	// The trade landed in the recent-trades cache
	resp = makeRequest(t, http.MethodGet, integrationBase+"/v1/trades/recent?limit=5", nil, http.StatusOK)
	var recent struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recent))
	resp.Body.Close()
	require.Len(t, recent.Items, 1)
	assert.Equal(t, mint, recent.Items[0]["mint"])
	assert.Equal(t, "buy", recent.Items[0]["side"])
}

func TestIntegration_TradingPausedFlag(t *testing.T) {
	cleanup := setupIntegrationTest(t)
	defer cleanup()

	mint := solana.NewWallet().PublicKey().String()
	user := solana.NewWallet().PublicKey().String()

	resp := makeRequest(t, http.MethodPost, integrationBase+"/v1/curves",
		map[string]any{"mint": mint}, http.StatusCreated)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodPost, integrationBase+"/v1/faucet",
		map[string]any{"user": user, "lamports": 10_000_000_000}, http.StatusNoContent)
	resp.Body.Close()

	// Flip the kill switch and watch trades bounce
	resp = makeRequest(t, http.MethodPost, integrationBase+"/v1/flags",
		map[string]any{"key": flags.KeyTradingPaused, "value": true}, http.StatusOK)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodPost,
		fmt.Sprintf("%s/v1/curves/%s/buy", integrationBase, mint),
		map[string]any{"user": user, "token_amount": 1_000_000, "max_sol_cost": 1_000_000_000},
		http.StatusServiceUnavailable)
	resp.Body.Close()

	// Clear it and trade again
	resp = makeRequest(t, http.MethodPut, integrationBase+"/v1/flags/"+flags.KeyTradingPaused,
		map[string]any{"value": false}, http.StatusOK)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodPost,
		fmt.Sprintf("%s/v1/curves/%s/buy", integrationBase, mint),
		map[string]any{"user": user, "token_amount": 1_000_000, "max_sol_cost": 1_000_000_000},
		http.StatusOK)
	resp.Body.Close()
}

func TestIntegration_FlagsCRUD(t *testing.T) {
	cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Create flag
	resp := makeRequest(t, http.MethodPost, integrationBase+"/v1/flags",
		map[string]any{"key": "test.flag", "value": true}, http.StatusOK)
	var created flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "test.flag", created.Key)
	assert.True(t, created.Value)
	assert.NotZero(t, created.UpdatedAt)

	// Get flag
	resp = makeRequest(t, http.MethodGet, integrationBase+"/v1/flags/test.flag", nil, http.StatusOK)
	var got flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.True(t, got.Value)

	// Update flag
	resp = makeRequest(t, http.MethodPut, integrationBase+"/v1/flags/test.flag",
		map[string]any{"value": false}, http.StatusOK)
	resp.Body.Close()

	// List flags
	resp = makeRequest(t, http.MethodGet, integrationBase+"/v1/flags", nil, http.StatusOK)
	var list struct {
		Items []*flags.Flag `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list.Items, 1)
	assert.False(t, list.Items[0].Value)

	// Delete flag
	resp = makeRequest(t, http.MethodDelete, integrationBase+"/v1/flags/test.flag", nil, http.StatusNoContent)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, integrationBase+"/v1/flags/test.flag", nil, http.StatusNotFound)
	resp.Body.Close()
}

func TestIntegration_Authentication(t *testing.T) {
	cleanup := setupIntegrationTest(t)
	defer cleanup()

	client := &http.Client{Timeout: 5 * time.Second}

	// Without API key
	req, err := http.NewRequest(http.MethodGet, integrationBase+"/v1/health", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// With invalid API key
	req, err = http.NewRequest(http.MethodGet, integrationBase+"/v1/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "invalid-key")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
