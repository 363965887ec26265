package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
)

type friendRepository struct {
	db *sqlx.DB
}

func NewFriendRepository(db *sqlx.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) CreateRequest(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error) {
	query := `
		INSERT INTO friend_requests (requester_id, recipient_id)
		VALUES ($1, $2)
		ON CONFLICT (requester_id, recipient_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, requesterID, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to create friend request: %w", err)
	}
	return affected(result)
}

func (r *friendRepository) DeleteRequest(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error) {
	query := `DELETE FROM friend_requests WHERE requester_id = $1 AND recipient_id = $2`
	result, err := tx.ExecContext(ctx, query, requesterID, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to delete friend request: %w", err)
	}
	return affected(result)
}

func (r *friendRepository) RequestExists(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM friend_requests WHERE requester_id = $1 AND recipient_id = $2)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, requesterID, recipientID); err != nil {
		return false, fmt.Errorf("failed to check friend request: %w", err)
	}
	return exists, nil
}

func (r *friendRepository) AreFriends(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, userID, otherID); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

func (r *friendRepository) CreateFriendship(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) error {
	query := `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (user_id, friend_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, userID, otherID); err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

func (r *friendRepository) DeleteFriendship(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) (bool, error) {
	query := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`
	result, err := tx.ExecContext(ctx, query, userID, otherID)
	if err != nil {
		return false, fmt.Errorf("failed to delete friendship: %w", err)
	}
	return affected(result)
}

func (r *friendRepository) ListIncomingRequests(ctx context.Context, recipientID int64) ([]model.FriendRequest, error) {
	query := `
		SELECT fr.requester_id, fr.recipient_id, fr.created_at,
		       u.id AS "requester.id", u.nome AS "requester.nome", u.sobrenome AS "requester.sobrenome",
		       u.username AS "requester.username", u.avatar_url AS "requester.avatar_url"
		FROM friend_requests fr
		JOIN users u ON u.id = fr.requester_id
		WHERE fr.recipient_id = $1
		ORDER BY fr.created_at DESC
	`
	requests := []model.FriendRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, recipientID); err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	return requests, nil
}

func (r *friendRepository) ListFriends(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error) {
	query := `
		SELECT u.id, u.nome, u.sobrenome, u.username, u.avatar_url, f.created_at AS since
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1 AND ($2::timestamptz IS NULL OR f.created_at < $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`
	return selectUserPage(ctx, r.db, query, userID, cursor, limit)
}
