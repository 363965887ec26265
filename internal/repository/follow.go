package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts the follow edge. Returns false when it already existed.
func (r *followRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}
	return affected(result)
}

// Delete removes the follow edge. Returns false when there was none.
func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	return affected(result)
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, followerID, followeeID); err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// GetFollowers lists users following userID, newest edge first. The edge
// timestamp is the cursor; limit+1 rows are read to detect another page.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error) {
	query := `
		SELECT u.id, u.nome, u.sobrenome, u.username, u.avatar_url, f.created_at AS since
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1 AND ($2::timestamptz IS NULL OR f.created_at < $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`
	return selectUserPage(ctx, r.db, query, userID, cursor, limit)
}

func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error) {
	query := `
		SELECT u.id, u.nome, u.sobrenome, u.username, u.avatar_url, f.created_at AS since
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1 AND ($2::timestamptz IS NULL OR f.created_at < $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`
	return selectUserPage(ctx, r.db, query, userID, cursor, limit)
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT follower_id FROM follows WHERE followee_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

// selectUserPage runs a (userID, cursor, limit) listing and trims the extra
// row used to detect whether another page exists.
func selectUserPage(ctx context.Context, db *sqlx.DB, query string, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error) {
	items := []model.UserListItem{}
	if err := db.SelectContext(ctx, &items, query, userID, cursor, limit+1); err != nil {
		return nil, nil, fmt.Errorf("failed to list users: %w", err)
	}

	var next *time.Time
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1].Since
		next = &last
	}
	return items, next, nil
}
