package service

import (
	"context"
	"log"
	"time"

	"redesocial/internal/cache"
	"redesocial/internal/model"
	"redesocial/internal/repository"
)

const (
	FeedDefaultLimit = 10
	FeedMaxLimit     = 50

	warmTimeout = 10 * time.Second
)

// FeedService serves the home timeline: the caller's posts and those of
// everyone they follow, newest first. The Redis timeline is used when it
// exists; Postgres answers otherwise and the timeline is rebuilt behind it.
type FeedService struct {
	timeline cache.TimelineCache // nil without Redis
	posts    repository.PostRepository

	async func(func())
}

func NewFeedService(timeline cache.TimelineCache, posts repository.PostRepository) *FeedService {
	return &FeedService{
		timeline: timeline,
		posts:    posts,
		async:    func(f func()) { go f() },
	}
}

// GetFeed pages by a keyset cursor: the creation time in unix microseconds
// and the id of the last post of the previous page.
func (s *FeedService) GetFeed(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	start := time.Now()

	if limit <= 0 {
		limit = FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		limit = FeedMaxLimit
	}

	after, err := parseFeedCursor(cursor)
	if err != nil {
		return nil, err
	}

	var resp *model.FeedResponse
	source := "db"
	if s.timeline != nil {
		resp, err = s.fromCache(ctx, userID, after, limit)
		if err != nil {
			log.Printf("[FeedService] Cache read failed for user=%d: %v", userID, err)
		}
		if resp != nil {
			source = "cache"
		}
	}

	if resp == nil {
		resp, err = s.fromDB(ctx, userID, after, limit)
		if err != nil {
			return nil, err
		}
	}

	resp.Posts = markLiked(ctx, s.posts, &userID, resp.Posts)

	log.Printf("[FeedService] GetFeed OK: user=%d source=%s posts=%d hasMore=%v duration=%v",
		userID, source, len(resp.Posts), resp.HasMore, time.Since(start))
	return resp, nil
}

// fromCache returns nil when the timeline cannot answer: it is missing, or
// the cursor points past its oldest entry.
func (s *FeedService) fromCache(ctx context.Context, userID int64, after *cache.TimelineEntry, limit int) (*model.FeedResponse, error) {
	exists, err := s.timeline.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.warm(userID)
		return nil, nil
	}

	entries, err := s.timeline.Page(ctx, userID, after, limit+1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 && after != nil {
		return nil, nil
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.PostID
	}
	posts, err := s.posts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := &model.FeedResponse{Posts: posts, HasMore: hasMore}
	if hasMore {
		resp.NextCursor = formatFeedCursor(entries[len(entries)-1])
	}
	return resp, nil
}

func (s *FeedService) fromDB(ctx context.Context, userID int64, after *cache.TimelineEntry, limit int) (*model.FeedResponse, error) {
	var key *repository.FeedKey
	if after != nil {
		key = &repository.FeedKey{CreatedAt: time.UnixMicro(after.Score), PostID: after.PostID}
	}

	posts, err := s.posts.GetFeed(ctx, userID, key, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	resp := &model.FeedResponse{Posts: posts, HasMore: hasMore}
	if hasMore {
		last := posts[len(posts)-1]
		resp.NextCursor = formatFeedCursor(cache.TimelineEntry{PostID: last.ID, Score: last.CreatedAt.UnixMicro()})
	}
	return resp, nil
}

// warm rebuilds the timeline in the background from Postgres.
func (s *FeedService) warm(userID int64) {
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		defer cancel()

		entries, err := s.posts.GetTimelineEntries(ctx, userID, cache.TimelineCap)
		if err != nil {
			log.Printf("[FeedService] Warm query failed for user=%d: %v", userID, err)
			return
		}
		if err := s.timeline.Warm(ctx, userID, entries); err != nil {
			log.Printf("[FeedService] Warm failed for user=%d: %v", userID, err)
			return
		}
		log.Printf("[FeedService] Timeline warmed: user=%d posts=%d", userID, len(entries))
	})
}
