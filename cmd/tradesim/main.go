package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/trading"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// Simulates trading against a fresh curve with in-memory backends: a set of
// funded traders place random buys and sells until the trade budget runs out
// or the curve completes. Prints the final reserve state and cash flows.
func main() {
	loadEnv()

	trades := flag.Int("trades", 200, "number of trades to attempt")
	traders := flag.Int("traders", 5, "number of funded traders")
	fundSol := flag.Uint64("fund-sol", 50_000_000_000, "lamports credited to each trader")
	seed := flag.Int64("seed", 1, "rng seed for reproducible runs")
	flag.Parse()

	if *trades <= 0 || *traders <= 0 {
		fmt.Println("-trades and -traders must be > 0")
		os.Exit(2)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	led := ledger.NewMemory()
	cfg := trading.DefaultConfig()
	cfg.FeeRecipient = solana.NewWallet().PublicKey()
	cfg.WithdrawAuthority = solana.NewWallet().PublicKey()

	engine, err := trading.NewEngine(cfg, cache.NewMemoryCurveStore(), led, logger)
	if err != nil {
		fmt.Println("failed to create engine:", err)
		os.Exit(1)
	}

	mint := solana.NewWallet().PublicKey()
	if _, err := engine.CreateCurve(ctx, mint); err != nil {
		fmt.Println("failed to create curve:", err)
		os.Exit(1)
	}

	users := make([]solana.PublicKey, *traders)
	for i := range users {
		users[i] = solana.NewWallet().PublicKey()
		if err := led.CreditSol(ctx, users[i], *fundSol); err != nil {
			fmt.Println("failed to fund trader:", err)
			os.Exit(1)
		}
	}

	var buys, sells, rejected int
loop:
	for i := 0; i < *trades; i++ {
		user := users[rng.Intn(len(users))]

		// Mostly buys so the curve actually climbs.
		if rng.Intn(10) < 7 {
			amount := uint64(rng.Int63n(20_000_000_000_000)) + 1
			_, err := engine.Buy(ctx, &trading.BuyRequest{
				Mint:        mint,
				User:        user,
				TokenAmount: amount,
				MaxSolCost:  *fundSol,
			})
			switch {
			case err == nil:
				buys++
			case errors.Is(err, curve.ErrCurveComplete):
				break loop // curve graduated, nothing left to trade
			default:
				rejected++
			}
			continue
		}

		held, _ := led.TokenBalance(ctx, mint, user)
		if held == 0 {
			rejected++
			continue
		}
		amount := uint64(rng.Int63n(int64(held))) + 1
		if _, err := engine.Sell(ctx, &trading.SellRequest{
			Mint:        mint,
			User:        user,
			TokenAmount: amount,
		}); err != nil {
			rejected++
			continue
		}
		sells++
	}

	c, err := engine.GetCurve(ctx, mint)
	if err != nil {
		fmt.Println("failed to load curve:", err)
		os.Exit(1)
	}

	feeTotal, _ := led.SolBalance(ctx, cfg.FeeRecipient)
	vaultSol, _ := led.SolBalance(ctx, trading.VaultAddress(mint))

	fmt.Printf("mint=%s buys=%d sells=%d rejected=%d\n", mint, buys, sells, rejected)
	fmt.Printf("real_sol=%d real_tokens=%d virtual_sol=%d virtual_tokens=%d complete=%v\n",
		c.RealSolReserves, c.RealTokenReserves, c.VirtualSolReserves, c.VirtualTokenReserves, c.Complete)
	fmt.Printf("vault_lamports=%d fees_collected=%d\n", vaultSol, feeTotal)
}
