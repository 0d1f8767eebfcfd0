package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type envelope struct {
	Room  string `json:"room"`
	Event Event  `json:"event"`
}

// RedisBroker fans events out across instances. Publish goes to a redis
// channel; Run relays everything on that channel into the local hub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *slog.Logger
}

func NewRedisBroker(client *redis.Client, channel string, hub *Hub, logger *slog.Logger) *RedisBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroker{client: client, channel: channel, hub: hub, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, room string, ev Event) error {
	payload, err := json.Marshal(envelope{Room: room, Event: ev})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run blocks until ctx is done. The subscription is confirmed before Run
// starts reading so no message published after it returns from Receive is lost.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("discarding malformed realtime envelope", "error", err)
				continue
			}
			if err := b.hub.Publish(ctx, env.Room, env.Event); err != nil {
				b.logger.Warn("relaying realtime event failed", "room", env.Room, "error", err)
			}
		}
	}
}
