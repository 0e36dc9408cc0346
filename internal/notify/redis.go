package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay fans pushes out to every server instance over a Redis pub/sub
// channel. Each instance runs the subscribe loop and hands what it receives
// to its local websocket hub.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

func NewRedisRelay(client redis.UniversalClient, channel string, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, logger: logger.Named("redis_relay")}
}

func (r *RedisRelay) Push(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish push: %w", err)
	}
	return nil
}

// Run subscribes to the channel and forwards messages to local until ctx is
// done. It returns an error only when the subscription cannot be set up.
func (r *RedisRelay) Run(ctx context.Context, local Transport) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.logger.Warn("dropping malformed push", zap.Error(err))
				continue
			}
			if err := local.Push(ctx, msg); err != nil {
				r.logger.Debug("local push failed", zap.String("user_id", msg.UserID), zap.Error(err))
			}
		}
	}
}
