package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/playperu/pickem/internal/game"
)

// DefaultChannelPrefix namespaces per-game pub/sub channels.
const DefaultChannelPrefix = "pickem:game:"

// Publisher publishes notifications on one Redis channel per game. Repeated
// failures open a circuit breaker so a dead Redis does not add latency to
// every mutation.
type Publisher struct {
	client *redis.Client
	prefix string
	cb     *gobreaker.CircuitBreaker
}

var _ game.Notifier = (*Publisher)(nil)

func NewPublisher(client *redis.Client, prefix string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-publish",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Publisher{client: client, prefix: prefix, cb: cb}
}

// Channel returns the pub/sub channel for a game.
func (p *Publisher) Channel(gameID string) string {
	return p.prefix + gameID
}

func (p *Publisher) Notify(ctx context.Context, gameID string, n game.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	_, err = p.cb.Execute(func() (any, error) {
		return nil, p.client.Publish(ctx, p.Channel(gameID), data).Err()
	})
	if err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	return nil
}
