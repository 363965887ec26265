package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TimelinePrefix is the key prefix for per-user timelines.
	TimelinePrefix = "timeline:"

	// TimelineCap is the maximum number of posts kept per timeline.
	TimelineCap = 500

	// TimelineTTL is refreshed on every write and read.
	TimelineTTL = 7 * 24 * time.Hour
)

// TimelineEntry is a post id scored by its creation time in unix
// microseconds. Entries order by score, then post id, both descending; the
// same pair is the feed's keyset cursor.
type TimelineEntry struct {
	PostID int64
	Score  int64
}

// Before reports whether e sorts after other in a newest-first timeline.
func (e TimelineEntry) Before(other TimelineEntry) bool {
	if e.Score != other.Score {
		return e.Score < other.Score
	}
	return e.PostID < other.PostID
}

// TimelineCache keeps, per user, the ids of posts from the user and everyone
// they follow, newest first.
type TimelineCache interface {
	// Add inserts entries into a timeline that already exists and reports
	// whether it did. A cold timeline is left missing so the next read
	// rebuilds it in full instead of serving a partial page.
	Add(ctx context.Context, userID int64, entries ...TimelineEntry) (bool, error)
	Remove(ctx context.Context, userID int64, postIDs ...int64) error
	// Page returns up to limit entries strictly older than after (or the
	// newest when after is nil).
	Page(ctx context.Context, userID int64, after *TimelineEntry, limit int) ([]TimelineEntry, error)
	// Warm creates the timeline from entries read off Postgres.
	Warm(ctx context.Context, userID int64, entries []TimelineEntry) error
	Exists(ctx context.Context, userID int64) (bool, error)
}

// addIfExists runs ZADD, the cap trim and the TTL refresh only when the key
// is already there. ARGV is cap, ttl seconds, then score/member pairs.
var addIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[1], unpack(ARGV, 3))
redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -tonumber(ARGV[1]) - 1)
redis.call('EXPIRE', KEYS[1], ARGV[2])
return 1
`)

type redisTimelineCache struct {
	client *redis.Client
}

// NewTimelineCache creates a TimelineCache backed by Redis sorted sets.
func NewTimelineCache(client *redis.Client) TimelineCache {
	return &redisTimelineCache{client: client}
}

func timelineKey(userID int64) string {
	return TimelinePrefix + strconv.FormatInt(userID, 10)
}

// timelineMember zero-pads post ids so that members sharing a score sort
// lexically in id order.
func timelineMember(postID int64) string {
	return fmt.Sprintf("%019d", postID)
}

func (c *redisTimelineCache) Add(ctx context.Context, userID int64, entries ...TimelineEntry) (bool, error) {
	if len(entries) == 0 {
		return false, nil
	}

	args := make([]interface{}, 0, 2+2*len(entries))
	args = append(args, TimelineCap, int64(TimelineTTL/time.Second))
	for _, e := range entries {
		args = append(args, e.Score, timelineMember(e.PostID))
	}

	added, err := addIfExists.Run(ctx, c.client, []string{timelineKey(userID)}, args...).Int()
	if err != nil {
		log.Printf("[TimelineCache] Add FAILED: user=%d entries=%d err=%v", userID, len(entries), err)
		return false, fmt.Errorf("add to timeline: %w", err)
	}
	return added == 1, nil
}

func (c *redisTimelineCache) Remove(ctx context.Context, userID int64, postIDs ...int64) error {
	if len(postIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		members[i] = timelineMember(id)
	}

	removed, err := c.client.ZRem(ctx, timelineKey(userID), members...).Result()
	if err != nil {
		log.Printf("[TimelineCache] Remove FAILED: user=%d posts=%v err=%v", userID, postIDs, err)
		return fmt.Errorf("remove from timeline: %w", err)
	}
	log.Printf("[TimelineCache] Remove OK: user=%d removed=%d", userID, removed)
	return nil
}

// Page reads entries sharing the cursor's score separately, so a page
// boundary inside one microsecond neither repeats nor skips posts.
func (c *redisTimelineCache) Page(ctx context.Context, userID int64, after *TimelineEntry, limit int) ([]TimelineEntry, error) {
	key := timelineKey(userID)

	var entries []TimelineEntry
	max := "+inf"
	if after != nil {
		score := strconv.FormatInt(after.Score, 10)
		ties, err := c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min: score,
			Max: score,
		}).Result()
		if err != nil {
			log.Printf("[TimelineCache] Page FAILED: user=%d err=%v", userID, err)
			return nil, fmt.Errorf("read timeline: %w", err)
		}
		for _, e := range toEntries(userID, ties) {
			if e.PostID < after.PostID && len(entries) < limit {
				entries = append(entries, e)
			}
		}
		max = "(" + score
	}

	if remaining := limit - len(entries); remaining > 0 {
		results, err := c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   max,
			Count: int64(remaining),
		}).Result()
		if err != nil {
			log.Printf("[TimelineCache] Page FAILED: user=%d err=%v", userID, err)
			return nil, fmt.Errorf("read timeline: %w", err)
		}
		entries = append(entries, toEntries(userID, results)...)
	}

	c.client.Expire(ctx, key, TimelineTTL)
	return entries, nil
}

func toEntries(userID int64, results []redis.Z) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(results))
	for _, z := range results {
		member, _ := z.Member.(string)
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			log.Printf("[TimelineCache] Page skipping bad member=%v user=%d", z.Member, userID)
			continue
		}
		entries = append(entries, TimelineEntry{PostID: id, Score: int64(z.Score)})
	}
	return entries
}

func (c *redisTimelineCache) Warm(ctx context.Context, userID int64, entries []TimelineEntry) error {
	if len(entries) == 0 {
		return nil
	}
	key := timelineKey(userID)

	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{Score: float64(e.Score), Member: timelineMember(e.PostID)}
	}

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-TimelineCap-1))
	pipe.Expire(ctx, key, TimelineTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[TimelineCache] Warm FAILED: user=%d entries=%d err=%v", userID, len(entries), err)
		return fmt.Errorf("warm timeline: %w", err)
	}
	return nil
}

func (c *redisTimelineCache) Exists(ctx context.Context, userID int64) (bool, error) {
	n, err := c.client.Exists(ctx, timelineKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check timeline exists: %w", err)
	}
	return n > 0, nil
}
