package service

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"redesocial/internal/cache"
	"redesocial/internal/model"
	"redesocial/internal/queue"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 50
)

// publishEvent sends a timeline event after the write it describes has
// committed. A nil publisher means Redis is not configured.
func publishEvent(ctx context.Context, publisher queue.Publisher, tag string, event queue.Event) {
	if publisher == nil {
		return
	}
	msgID, err := publisher.Publish(ctx, queue.StreamSocial, event)
	if err != nil {
		log.Printf("[%s] Failed to publish %s event: %v", tag, event.Type, err)
		return
	}
	log.Printf("[%s] Published %s: msgID=%s", tag, event.Type, msgID)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// parseTimeCursor reads an RFC3339 cursor; nil or empty means first page.
func parseTimeCursor(cursor *string) (*time.Time, error) {
	if cursor == nil || *cursor == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *cursor)
	if err != nil {
		return nil, model.ErrInvalidCursor
	}
	return &t, nil
}

func formatTimeCursor(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

// parseFeedCursor reads the feed's "<unix microseconds>_<post id>" cursor.
func parseFeedCursor(cursor *string) (*cache.TimelineEntry, error) {
	if cursor == nil || *cursor == "" {
		return nil, nil
	}
	micros, id, ok := strings.Cut(*cursor, "_")
	if !ok {
		return nil, model.ErrInvalidCursor
	}
	score, err := strconv.ParseInt(micros, 10, 64)
	if err != nil || score <= 0 {
		return nil, model.ErrInvalidCursor
	}
	postID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || postID <= 0 {
		return nil, model.ErrInvalidCursor
	}
	return &cache.TimelineEntry{PostID: postID, Score: score}, nil
}

func formatFeedCursor(e cache.TimelineEntry) *string {
	s := strconv.FormatInt(e.Score, 10) + "_" + strconv.FormatInt(e.PostID, 10)
	return &s
}

func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
