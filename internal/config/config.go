package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/constants"
)

type Config struct {
	// API settings
	APIAddr string
	APIKey  string
	DevMode bool

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Protocol authorities and fees
	FeeRecipient      string
	WithdrawAuthority string
	FeeBasisPoints    uint64

	// Curve creation defaults
	InitialVirtualSolReserves   uint64
	InitialVirtualTokenReserves uint64
	InitialRealTokenReserves    uint64
	InitialTokenSupply          uint64

	// AI settings
	OpenRouterAPIKey string

	// HTTP client settings
	HTTPTimeout time.Duration
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "curves"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Protocol
		FeeRecipient:      getEnv("FEE_RECIPIENT", ""),
		WithdrawAuthority: getEnv("WITHDRAW_AUTHORITY", ""),
		FeeBasisPoints:    getUint64Env("FEE_BASIS_POINTS", constants.DefaultFeeBasisPoints),

		// Curve defaults
		InitialVirtualSolReserves:   getUint64Env("INITIAL_VIRTUAL_SOL_RESERVES", constants.DefaultInitialVirtualSolReserves),
		InitialVirtualTokenReserves: getUint64Env("INITIAL_VIRTUAL_TOKEN_RESERVES", constants.DefaultInitialVirtualTokenReserves),
		InitialRealTokenReserves:    getUint64Env("INITIAL_REAL_TOKEN_RESERVES", constants.DefaultInitialRealTokenReserves),
		InitialTokenSupply:          getUint64Env("INITIAL_TOKEN_SUPPLY", constants.DefaultInitialTokenSupply),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),

		// HTTP
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
	}
}

// Validate rejects configurations the trading engine cannot run with.
func (c *Config) Validate() error {
	if c.FeeBasisPoints >= constants.BasisPointDenominator {
		return fmt.Errorf("FEE_BASIS_POINTS must be below %d, got %d",
			constants.BasisPointDenominator, c.FeeBasisPoints)
	}
	if c.InitialVirtualSolReserves == 0 || c.InitialVirtualTokenReserves == 0 {
		return fmt.Errorf("initial virtual reserves must be positive")
	}
	if c.FeeRecipient != "" {
		if _, err := solana.PublicKeyFromBase58(c.FeeRecipient); err != nil {
			return fmt.Errorf("invalid FEE_RECIPIENT: %w", err)
		}
	}
	if c.WithdrawAuthority != "" {
		if _, err := solana.PublicKeyFromBase58(c.WithdrawAuthority); err != nil {
			return fmt.Errorf("invalid WITHDRAW_AUTHORITY: %w", err)
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getUint64Env(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
