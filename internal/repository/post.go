package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"redesocial/internal/cache"
	"redesocial/internal/model"
)

const postSelect = `
	SELECT p.id, p.user_id, p.content, p.image_url, p.image_key, p.like_count, p.comment_count,
	       p.created_at, p.updated_at,
	       u.nome AS author_nome, u.sobrenome AS author_sobrenome,
	       u.username AS author_username, u.avatar_url AS author_avatar_url
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

// postRow is a post joined with its author's projection.
type postRow struct {
	model.Post
	AuthorNome      string  `db:"author_nome"`
	AuthorSobrenome string  `db:"author_sobrenome"`
	AuthorUsername  string  `db:"author_username"`
	AuthorAvatarURL *string `db:"author_avatar_url"`
}

func (r postRow) toPost() model.Post {
	p := r.Post
	p.Author = &model.UserSummary{
		ID:        r.UserID,
		Nome:      r.AuthorNome,
		Sobrenome: r.AuthorSobrenome,
		Username:  r.AuthorUsername,
		AvatarURL: r.AuthorAvatarURL,
	}
	return p
}

func toPosts(rows []postRow) []model.Post {
	posts := make([]model.Post, len(rows))
	for i, r := range rows {
		posts[i] = r.toPost()
	}
	return posts
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	query := `
		INSERT INTO posts (user_id, content, image_url, image_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, like_count, comment_count, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, post.UserID, post.Content, post.ImageURL, post.ImageKey).
		Scan(&post.ID, &post.LikeCount, &post.CommentCount, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	var row postRow
	err := r.db.GetContext(ctx, &row, postSelect+` WHERE p.id = $1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	post := row.toPost()
	return &post, nil
}

// GetByIDs returns the posts that still exist, in the order of postIDs.
func (r *postRepository) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	if len(postIDs) == 0 {
		return []model.Post{}, nil
	}

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, postSelect+` WHERE p.id = ANY($1)`, pq.Array(postIDs)); err != nil {
		return nil, fmt.Errorf("failed to get posts by ids: %w", err)
	}

	byID := make(map[int64]model.Post, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toPost()
	}
	posts := make([]model.Post, 0, len(rows))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// Delete hard-deletes a post. Likes and comments go with it through
// ON DELETE CASCADE.
func (r *postRepository) Delete(ctx context.Context, postID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireAffected(result, model.ErrPostNotFound)
}

func (r *postRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]model.Post, error) {
	var rows []postRow
	query := postSelect + ` WHERE p.user_id = $1 ORDER BY p.created_at DESC, p.id DESC OFFSET $2 LIMIT $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, offset, limit); err != nil {
		return nil, fmt.Errorf("failed to list user posts: %w", err)
	}
	return toPosts(rows), nil
}

func (r *postRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("failed to count user posts: %w", err)
	}
	return n, nil
}

func (r *postRepository) GetFeed(ctx context.Context, userID int64, after *FeedKey, limit int) ([]model.Post, error) {
	var (
		afterTime *time.Time
		afterID   int64
	)
	if after != nil {
		afterTime, afterID = &after.CreatedAt, after.PostID
	}

	query := postSelect + `
		WHERE (p.user_id = $1 OR p.user_id IN (SELECT followee_id FROM follows WHERE follower_id = $1))
		  AND ($2::timestamptz IS NULL OR (p.created_at, p.id) < ($2, $3))
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $4
	`
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, afterTime, afterID, limit); err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return toPosts(rows), nil
}

// timelineRow carries created_at untouched so the score is computed from the
// driver's microsecond value rather than a floating point epoch.
type timelineRow struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

func toTimelineEntries(rows []timelineRow) []cache.TimelineEntry {
	entries := make([]cache.TimelineEntry, len(rows))
	for i, row := range rows {
		entries[i] = cache.TimelineEntry{PostID: row.ID, Score: row.CreatedAt.UnixMicro()}
	}
	return entries
}

// GetRecentPostsByUser returns a user's latest posts as timeline entries,
// used when a new follow backfills a timeline.
func (r *postRepository) GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error) {
	query := `
		SELECT id, created_at
		FROM posts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	var rows []timelineRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}
	return toTimelineEntries(rows), nil
}

// GetTimelineEntries returns the newest entries of a user's full timeline,
// used to warm an empty cache.
func (r *postRepository) GetTimelineEntries(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error) {
	query := `
		SELECT id, created_at
		FROM posts
		WHERE user_id = $1 OR user_id IN (SELECT followee_id FROM follows WHERE follower_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	var rows []timelineRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get timeline entries: %w", err)
	}
	return toTimelineEntries(rows), nil
}

func (r *postRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	var ids []int64
	query := `SELECT post_id FROM post_likes WHERE user_id = $1 AND post_id = ANY($2)`
	if err := r.db.SelectContext(ctx, &ids, query, userID, pq.Array(postIDs)); err != nil {
		return nil, fmt.Errorf("failed to check likes: %w", err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *postRepository) AddLike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	query := `
		INSERT INTO post_likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	return affected(result)
}

func (r *postRepository) RemoveLike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike post: %w", err)
	}
	return affected(result)
}

// IncrementLikeCount applies delta and returns the new count.
func (r *postRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) (int, error) {
	var count int
	query := `UPDATE posts SET like_count = GREATEST(like_count + $1, 0) WHERE id = $2 RETURNING like_count`
	err := tx.GetContext(ctx, &count, query, delta, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update like count: %w", err)
	}
	return count, nil
}

func (r *postRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	query := `UPDATE posts SET comment_count = GREATEST(comment_count + $1, 0) WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, delta, postID); err != nil {
		return fmt.Errorf("failed to update comment count: %w", err)
	}
	return nil
}
