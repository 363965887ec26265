package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
)

// notificationRow is the flat table shape plus the sender projection.
type notificationRow struct {
	ID              int64                  `db:"id"`
	RecipientID     int64                  `db:"recipient_id"`
	SenderID        int64                  `db:"sender_id"`
	Type            model.NotificationKind `db:"type"`
	Content         string                 `db:"content"`
	RelatedKind     model.RelatedKind      `db:"related_kind"`
	RelatedID       int64                  `db:"related_id"`
	IsRead          bool                   `db:"is_read"`
	CreatedAt       time.Time              `db:"created_at"`
	SenderNome      string                 `db:"sender_nome"`
	SenderSobrenome string                 `db:"sender_sobrenome"`
	SenderUsername  string                 `db:"sender_username"`
	SenderAvatarURL *string                `db:"sender_avatar_url"`
}

func (r notificationRow) toNotification() model.Notification {
	return model.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		SenderID:    r.SenderID,
		Type:        r.Type,
		Content:     r.Content,
		Related:     model.Related{Kind: r.RelatedKind, ID: r.RelatedID},
		Read:        r.IsRead,
		CreatedAt:   r.CreatedAt,
		Sender: &model.UserSummary{
			ID:        r.SenderID,
			Nome:      r.SenderNome,
			Sobrenome: r.SenderSobrenome,
			Username:  r.SenderUsername,
			AvatarURL: r.SenderAvatarURL,
		},
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create stores the notification and returns it with the sender attached.
func (r *notificationRepository) Create(ctx context.Context, in model.NotificationInput) (*model.Notification, error) {
	query := `
		WITH n AS (
			INSERT INTO notifications (recipient_id, sender_id, type, content, related_kind, related_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		)
		SELECT n.id, n.recipient_id, n.sender_id, n.type, n.content, n.related_kind, n.related_id,
		       n.is_read, n.created_at,
		       u.nome AS sender_nome, u.sobrenome AS sender_sobrenome,
		       u.username AS sender_username, u.avatar_url AS sender_avatar_url
		FROM n
		JOIN users u ON u.id = n.sender_id
	`
	var row notificationRow
	err := r.db.GetContext(ctx, &row, query,
		in.RecipientID, in.SenderID, in.Type, in.Content, in.Related.Kind, in.Related.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	n := row.toNotification()
	return &n, nil
}

func (r *notificationRepository) ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error) {
	query := `
		SELECT n.id, n.recipient_id, n.sender_id, n.type, n.content, n.related_kind, n.related_id,
		       n.is_read, n.created_at,
		       u.nome AS sender_nome, u.sobrenome AS sender_sobrenome,
		       u.username AS sender_username, u.avatar_url AS sender_avatar_url
		FROM notifications n
		JOIN users u ON u.id = n.sender_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $2
	`
	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, recipientID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out := make([]model.Notification, len(rows))
	for i, row := range rows {
		out[i] = row.toNotification()
	}
	return out, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`
	if err := r.db.GetContext(ctx, &n, query, recipientID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead is scoped to the recipient; a notification owned by someone else
// reports false exactly like a missing one.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID int64) (bool, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`
	result, err := r.db.ExecContext(ctx, query, notificationID, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return affected(result)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) Delete(ctx context.Context, recipientID, notificationID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, notificationID, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return affected(result)
}
