package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

const channelPrefix = "events:"

// EventBus publishes events on a Redis channel per room so every instance can relay them
// to its own websocket subscribers.
type EventBus struct {
	client *redis.Client
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

func (b *EventBus) Publish(ctx context.Context, event domain.Event) error {
	if event.Room == "" {
		event.Room = domain.AdminRoom
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, Channel(event.Room), data).Err()
}

func Channel(room string) string {
	return channelPrefix + room
}

// Relay forwards events from Redis into a local publisher, typically the in-process Hub.
type Relay struct {
	client *redis.Client
	local  app.Publisher
	log    *zap.Logger
}

func NewRelay(client *redis.Client, local app.Publisher, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{client: client, local: local, log: log}
}

// Run subscribes to rooms and blocks until ctx is canceled. ready, if non-nil, is closed
// once the subscription is confirmed.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}, rooms ...string) error {
	channels := make([]string, 0, len(rooms))
	for _, room := range rooms {
		channels = append(channels, Channel(room))
	}
	sub := r.client.Subscribe(ctx, channels...)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %v: %w", channels, err)
	}
	if ready != nil {
		close(ready)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Warn("dropping malformed event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if err := r.local.Publish(ctx, event); err != nil {
				r.log.Warn("local publish failed", zap.String("type", event.Type), zap.Error(err))
			}
		}
	}
}
