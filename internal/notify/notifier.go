package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
)

// Notifier consumes the core's abstract events. Delivery (push, email,
// websocket fan-out) is an external collaborator's concern; publishing is
// fire-and-forget and never fails the operation that emitted the event.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event)
}

// RedisNotifier publishes events as JSON onto a Redis pub/sub channel that
// downstream delivery workers subscribe to.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, logger zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (n *RedisNotifier) Notify(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("marshal notification event")
		return
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("publish notification event")
	}
}

// NopNotifier discards events. Used in tests and when no delivery pipeline is
// configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.Event) {}
