package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"redesocial/internal/cache"
	"redesocial/internal/metrics"
	"redesocial/internal/model"
	"redesocial/internal/queue"
)

const (
	// backfillLimit is how many of the followee's posts a new follow copies
	// into the follower's timeline.
	backfillLimit = 20
	// unfollowRemoveLimit bounds the posts pulled back out on unfollow.
	unfollowRemoveLimit = cache.TimelineCap
)

type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

type RecentPostsProvider interface {
	GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error)
}

// NotificationCreator persists and delivers a notification.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, in model.NotificationInput) (*model.Notification, error)
}

// Handler applies stream events: timeline fan-out and notification delivery.
type Handler struct {
	timeline      cache.TimelineCache
	followers     FollowerProvider
	posts         RecentPostsProvider
	notifications NotificationCreator
	metrics       *metrics.Metrics
}

func NewHandler(
	timeline cache.TimelineCache,
	followers FollowerProvider,
	posts RecentPostsProvider,
	notifications NotificationCreator,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		timeline:      timeline,
		followers:     followers,
		posts:         posts,
		notifications: notifications,
		metrics:       m,
	}
}

func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	start := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostCreated:
		err = h.handlePostCreated(ctx, event)
	case queue.EventPostDeleted:
		err = h.handlePostDeleted(ctx, event)
	case queue.EventUserFollowed:
		err = h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed:
		err = h.handleUserUnfollowed(ctx, event)
	case queue.EventNotification:
		err = h.handleNotification(ctx, event)
	default:
		err = fmt.Errorf("unknown event type: %s", event.Type)
	}

	h.metrics.EventProcessed(event.Type, err)
	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v", event.Type, time.Since(start), err)
		return err
	}
	return nil
}

// handlePostCreated pushes the post into the author's timeline and every
// follower's that is warm. Cold timelines are skipped; the next feed read
// rebuilds them from Postgres with the post included. A failure on one
// timeline does not stop the others.
func (h *Handler) handlePostCreated(ctx context.Context, event queue.Event) error {
	followers, err := h.followers.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	entry := cache.TimelineEntry{PostID: event.PostID, Score: event.PostCreatedAt}
	if entry.Score == 0 {
		entry.Score = time.Unix(event.Timestamp, 0).UnixMicro()
	}

	var added, failed int
	for _, userID := range append(followers, event.AuthorID) {
		ok, err := h.timeline.Add(ctx, userID, entry)
		if err != nil {
			failed++
			continue
		}
		if ok {
			added++
		}
	}

	log.Printf("[Worker] PostCreated: post=%d fanout=%d warm=%d failed=%d",
		event.PostID, len(followers)+1, added, failed)
	return nil
}

func (h *Handler) handlePostDeleted(ctx context.Context, event queue.Event) error {
	followers, err := h.followers.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	var failed int
	for _, userID := range append(followers, event.AuthorID) {
		if err := h.timeline.Remove(ctx, userID, event.PostID); err != nil {
			failed++
		}
	}

	log.Printf("[Worker] PostDeleted: post=%d fanout=%d failed=%d", event.PostID, len(followers)+1, failed)
	return nil
}

// handleUserFollowed copies the followee's recent posts into the follower's
// timeline when it is warm.
func (h *Handler) handleUserFollowed(ctx context.Context, event queue.Event) error {
	entries, err := h.posts.GetRecentPostsByUser(ctx, event.FolloweeID, backfillLimit)
	if err != nil {
		return fmt.Errorf("get recent posts: %w", err)
	}
	added, err := h.timeline.Add(ctx, event.FollowerID, entries...)
	if err != nil {
		return err
	}

	log.Printf("[Worker] UserFollowed: follower=%d followee=%d backfilled=%d warm=%v",
		event.FollowerID, event.FolloweeID, len(entries), added)
	return nil
}

func (h *Handler) handleUserUnfollowed(ctx context.Context, event queue.Event) error {
	entries, err := h.posts.GetRecentPostsByUser(ctx, event.FolloweeID, unfollowRemoveLimit)
	if err != nil {
		return fmt.Errorf("get posts to remove: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.PostID
	}
	return h.timeline.Remove(ctx, event.FollowerID, ids...)
}

func (h *Handler) handleNotification(ctx context.Context, event queue.Event) error {
	if h.notifications == nil {
		log.Printf("[Worker] Notification dropped: no creator wired")
		return nil
	}
	if _, err := h.notifications.CreateNotification(ctx, *event.Notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
