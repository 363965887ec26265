package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends events to a stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) (messageID string, err error)
}

// RedisPublisher implements Publisher with XADD.
type RedisPublisher struct {
	client *redis.Client
	// maxLen caps the stream with approximate trimming; 0 disables it.
	maxLen int64
}

func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client, maxLen: 100000}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, event Event) (string, error) {
	start := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	args := &redis.XAddArgs{Stream: stream, Values: values}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	messageID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	switch event.Type {
	case EventPostCreated, EventPostDeleted:
		log.Printf("[Publisher] Publish OK: type=%s post=%d author=%d msgID=%s duration=%v",
			event.Type, event.PostID, event.AuthorID, messageID, time.Since(start))
	case EventUserFollowed, EventUserUnfollowed:
		log.Printf("[Publisher] Publish OK: type=%s follower=%d followee=%d msgID=%s duration=%v",
			event.Type, event.FollowerID, event.FolloweeID, messageID, time.Since(start))
	case EventNotification:
		log.Printf("[Publisher] Publish OK: type=%s kind=%s recipient=%d msgID=%s duration=%v",
			event.Type, event.Notification.Type, event.Notification.RecipientID, messageID, time.Since(start))
	default:
		log.Printf("[Publisher] Publish OK: type=%s msgID=%s", event.Type, messageID)
	}

	return messageID, nil
}
