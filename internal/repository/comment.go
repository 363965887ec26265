package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"redesocial/internal/model"
)

const commentSelect = `
	SELECT c.id, c.post_id, c.user_id, c.content, c.parent_comment_id, c.status, c.like_count,
	       c.created_at, c.updated_at,
	       u.nome AS author_nome, u.sobrenome AS author_sobrenome,
	       u.username AS author_username, u.avatar_url AS author_avatar_url
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

var commentOrderBy = map[string]string{
	model.CommentSortNewest:    "c.created_at DESC, c.id DESC",
	model.CommentSortOldest:    "c.created_at ASC, c.id ASC",
	model.CommentSortMostLiked: "c.like_count DESC, c.created_at DESC",
}

type commentRow struct {
	model.Comment
	AuthorNome      string  `db:"author_nome"`
	AuthorSobrenome string  `db:"author_sobrenome"`
	AuthorUsername  string  `db:"author_username"`
	AuthorAvatarURL *string `db:"author_avatar_url"`
}

func (r commentRow) toComment() model.Comment {
	c := r.Comment
	c.Author = &model.UserSummary{
		ID:        r.UserID,
		Nome:      r.AuthorNome,
		Sobrenome: r.AuthorSobrenome,
		Username:  r.AuthorUsername,
		AvatarURL: r.AuthorAvatarURL,
	}
	return c
}

func toComments(rows []commentRow) []model.Comment {
	comments := make([]model.Comment, len(rows))
	for i, r := range rows {
		comments[i] = r.toComment()
	}
	return comments
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment inside tx so the post counter moves with it.
func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, c *model.Comment) error {
	query := `
		INSERT INTO comments (post_id, user_id, content, parent_comment_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, like_count, created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query, c.PostID, c.UserID, c.Content, c.ParentCommentID).
		Scan(&c.ID, &c.Status, &c.LikeCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, commentSelect+` WHERE c.id = $1`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	c := row.toComment()
	return &c, nil
}

// Update replaces the content. Ownership is checked by the caller.
func (r *commentRepository) Update(ctx context.Context, commentID int64, content string) (*model.Comment, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET content = $1, updated_at = NOW() WHERE id = $2`, content, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	if err := requireAffected(result, model.ErrCommentNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, commentID)
}

// Delete removes the comment and its direct replies in one statement and
// returns how many rows were removed.
func (r *commentRepository) Delete(ctx context.Context, tx *sqlx.Tx, commentID int64) (int, error) {
	query := `
		WITH d AS (
			DELETE FROM comments WHERE id = $1 OR parent_comment_id = $1 RETURNING 1
		)
		SELECT COUNT(*) FROM d
	`
	var n int
	if err := tx.GetContext(ctx, &n, query, commentID); err != nil {
		return 0, fmt.Errorf("failed to delete comment: %w", err)
	}
	if n == 0 {
		return 0, model.ErrCommentNotFound
	}
	return n, nil
}

func (r *commentRepository) ListTopLevel(ctx context.Context, postID int64, sort string, offset, limit int) ([]model.Comment, error) {
	orderBy, ok := commentOrderBy[sort]
	if !ok {
		return nil, model.ErrInvalidCommentSort
	}
	query := commentSelect + `
		WHERE c.post_id = $1 AND c.parent_comment_id IS NULL AND c.status = 'active'
		ORDER BY ` + orderBy + `
		OFFSET $2 LIMIT $3
	`
	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, postID, offset, limit); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return toComments(rows), nil
}

func (r *commentRepository) CountTopLevel(ctx context.Context, postID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM comments
		WHERE post_id = $1 AND parent_comment_id IS NULL AND status = 'active'
	`
	var n int
	if err := r.db.GetContext(ctx, &n, query, postID); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

// ListReplies returns the active replies of every parent, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, parentIDs []int64) ([]model.Comment, error) {
	if len(parentIDs) == 0 {
		return []model.Comment{}, nil
	}
	query := commentSelect + `
		WHERE c.parent_comment_id = ANY($1) AND c.status = 'active'
		ORDER BY c.created_at ASC, c.id ASC
	`
	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(parentIDs)); err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	return toComments(rows), nil
}

func (r *commentRepository) AddLike(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (bool, error) {
	query := `
		INSERT INTO comment_likes (comment_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (comment_id, user_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, commentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to like comment: %w", err)
	}
	return affected(result)
}

func (r *commentRepository) RemoveLike(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2`, commentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike comment: %w", err)
	}
	return affected(result)
}

func (r *commentRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, commentID int64, delta int) (int, error) {
	var count int
	query := `UPDATE comments SET like_count = GREATEST(like_count + $1, 0) WHERE id = $2 RETURNING like_count`
	err := tx.GetContext(ctx, &count, query, delta, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrCommentNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update comment like count: %w", err)
	}
	return count, nil
}
