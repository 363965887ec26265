package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces the per-user pub/sub channels.
const ChannelPrefix = "user_notifications:"

func Channel(userID int64) string {
	return ChannelPrefix + strconv.FormatInt(userID, 10)
}

// Subscription is a live feed of JSON payloads for one user.
type Subscription interface {
	Messages() <-chan string
	Close() error
}

// Hub publishes payloads to users and lets connections subscribe. Any API
// replica can publish; the replica holding the socket relays it.
type Hub interface {
	Publish(ctx context.Context, userID int64, payload interface{}) error
	Subscribe(ctx context.Context, userID int64) (Subscription, error)
}

type redisHub struct {
	client *redis.Client
}

func NewRedisHub(client *redis.Client) Hub {
	return &redisHub{client: client}
}

func (h *redisHub) Publish(ctx context.Context, userID int64, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal realtime payload: %w", err)
	}
	if err := h.client.Publish(ctx, Channel(userID), data).Err(); err != nil {
		return fmt.Errorf("publish realtime payload: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning so
// nothing published afterwards is missed.
func (h *redisHub) Subscribe(ctx context.Context, userID int64) (Subscription, error) {
	pubsub := h.client.Subscribe(ctx, Channel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(userID), err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &redisSubscription{pubsub: pubsub, messages: out}, nil
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	messages chan string
}

func (s *redisSubscription) Messages() <-chan string { return s.messages }

func (s *redisSubscription) Close() error { return s.pubsub.Close() }
