package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/config"
)

// Tails the live trade feed and prints every settled trade. Useful for
// watching a deployment or feeding a downstream consumer.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down subscriber")
		cancel()
	}()

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	feed := cache.NewPubSubFeed(rclient, logger)
	trades, err := feed.SubscribeTrades(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe to trade feed")
	}

	logger.Info("subscribed to live trades")
	for trade := range trades {
		entry := logger.WithFields(logrus.Fields{
			"trade_id": trade.TradeID,
			"mint":     trade.Mint,
			"side":     trade.Side,
			"tokens":   trade.TokenAmount,
			"lamports": trade.SolAmount,
			"fee":      trade.Fee,
		})
		if trade.Complete {
			entry.Info("trade settled, curve complete")
			continue
		}
		entry.Info("trade settled")
	}
}
