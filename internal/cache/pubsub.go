package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-curve-engine/internal/models"
)

// PubSubFeed fans settled trades out over Redis Pub/Sub: a global channel
// plus per-mint and per-side channels so subscribers can filter server-side.
type PubSubFeed struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubFeed(client *redis.Client, logger *logrus.Logger) *PubSubFeed {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubFeed{client: client, logger: logger}
}

func (p *PubSubFeed) PublishTrade(ctx context.Context, trade *models.TradeEvent) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	channels := []string{
		constants.PubSubChannelTrades,
		constants.PubSubChannelMintPrefix + trade.Mint,
		constants.PubSubChannelSidePrefix + trade.Side,
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish trade: %w", err)
	}
	return nil
}

// SubscribeTrades subscribes to the global trade channel. The returned
// channel closes when ctx is cancelled.
func (p *PubSubFeed) SubscribeTrades(ctx context.Context) (<-chan *models.TradeEvent, error) {
	pubsub := p.client.Subscribe(ctx, constants.PubSubChannelTrades)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe trades: %w", err)
	}

	out := make(chan *models.TradeEvent)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.TradeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.logger.WithError(err).Warn("dropping malformed trade event")
					continue
				}
				select {
				case out <- &ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
