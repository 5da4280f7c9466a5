package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/ai"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/config"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/server"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/trading"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// authorityKey parses a configured base58 address, generating a throwaway one
// when unset so dev deployments run without ceremony.
func authorityKey(logger *logrus.Logger, role, value string) solana.PublicKey {
	if value == "" {
		key := solana.NewWallet().PublicKey()
		logger.WithFields(logrus.Fields{"role": role, "address": key.String()}).
			Warn("no address configured, generated one for this run")
		return key
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		logger.WithError(err).WithField("role", role).Fatal("invalid configured address")
	}
	return key
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Curve state lives in Redis when configured, in process memory otherwise.
	// Flags, the trade cache and the live feed all need Redis.
	var (
		curveStore storage.CurveStore
		tradeCache storage.TradeCache
		tradeFeed  storage.TradeFeed
		flagStore  *flags.Store
	)
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0, // Use default database for main application
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}

		curveStore = cache.NewRedisCurveStore(rclient, logger)
		tradeCache = cache.NewRedisTradeCache(rclient)
		tradeFeed = cache.NewPubSubFeed(rclient, logger)

		fs, err := flags.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}
		flagStore = fs
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory curve store")
		curveStore = cache.NewMemoryCurveStore()
	}

	// Durable trade log (optional)
	var tradeLog storage.TradeLog
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseTradeLog(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		tradeLog = ch
		defer func() {
			_ = ch.Close()
		}()
	}

	// In-process asset ledger holds custody for this deployment
	led := ledger.NewMemory()

	// Wire the trade orchestrator
	engineCfg := trading.Config{
		FeeBasisPoints:              cfg.FeeBasisPoints,
		FeeRecipient:                authorityKey(logger, "fee recipient", cfg.FeeRecipient),
		WithdrawAuthority:           authorityKey(logger, "withdraw authority", cfg.WithdrawAuthority),
		InitialVirtualSolReserves:   cfg.InitialVirtualSolReserves,
		InitialVirtualTokenReserves: cfg.InitialVirtualTokenReserves,
		InitialRealTokenReserves:    cfg.InitialRealTokenReserves,
		InitialTokenSupply:          cfg.InitialTokenSupply,
	}
	engine, err := trading.NewEngine(engineCfg, curveStore, led, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create trading engine")
	}
	if tradeLog != nil {
		engine.WithTradeLog(tradeLog)
	}
	if tradeFeed != nil {
		engine.WithTradeFeed(tradeFeed)
	}
	if tradeCache != nil {
		engine.WithTradeCache(tradeCache)
	}
	if flagStore != nil {
		engine.WithSwitches(flagStore)
	}

	// Initialize AI agent for natural language queries (optional)
	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              "openai/gpt-4.1-mini", // Default model for NL→SQL translation
		Logger:             logger,
	}

	// Only initialize AI if OpenRouter API key is provided
	if cfg.OpenRouterAPIKey != "" && cfg.ClickHouseAddr != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close() // Clean up AI resources on shutdown
			}()
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Engine:       engine,      // Trade orchestrator
		Ledger:       led,         // Asset custody for balance queries and faucet
		Cache:        tradeCache,  // Recent trades cache (nil without Redis)
		Flags:        flagStore,   // Feature flags (nil without Redis)
		AI:           agent,       // Optional AI agent (can be nil)
		AIBaseConfig: aiBase,      // Base AI configuration for model overrides
		DevMode:      cfg.DevMode, // Enable detailed error responses in development
		Logger:       logger,      // Structured logger
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr, // Server bind address (e.g., ":8090")
			DevMode: cfg.DevMode, // Development mode flag
			APIKey:  cfg.APIKey,  // Optional API key for authentication
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
