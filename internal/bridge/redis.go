package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"server/internal/infra"
)

// Redis is a Bridge over a single Redis pub/sub channel, connecting the
// worker process to API processes. Redis pub/sub is fire-and-forget,
// which matches the at-most-once, no-replay contract exactly.
type Redis struct {
	client  *redis.Client
	channel string
	logger  infra.Logger
}

// NewRedis creates a Redis-backed bridge publishing on channel.
func NewRedis(client *redis.Client, channel string, logger infra.Logger) *Redis {
	return &Redis{client: client, channel: channel, logger: logger}
}

// Publish marshals the event and broadcasts it on the shared channel.
func (r *Redis) Publish(ctx context.Context, ev JobEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish job event: %w", err)
	}
	return nil
}

// Subscribe consumes the shared channel until ctx is cancelled.
// Undecodable payloads are logged and skipped; a full subscriber
// buffer drops the event.
func (r *Redis) Subscribe(ctx context.Context) (<-chan JobEvent, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	out := make(chan JobEvent, subscriberBuffer)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev JobEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.logger.Warn().Err(err).Msg("bridge: dropping undecodable job event")
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, nil
}
