package model

import (
	"errors"
	"time"
)

// Comment moderation states.
const (
	CommentStatusActive  = "active"
	CommentStatusHidden  = "hidden"
	CommentStatusDeleted = "deleted"
)

// Comment sort orders accepted by the listing.
const (
	CommentSortNewest    = "newest"
	CommentSortOldest    = "oldest"
	CommentSortMostLiked = "mostLiked"
)

// Comment represents a comment on a post. Replies reference their parent
// through ParentCommentID; only one level of nesting exists.
type Comment struct {
	ID              int64        `db:"id" json:"id"`
	PostID          int64        `db:"post_id" json:"post_id"`
	UserID          int64        `db:"user_id" json:"user_id"`
	Content         string       `db:"content" json:"content"`
	ParentCommentID *int64       `db:"parent_comment_id" json:"parent_comment_id"`
	Status          string       `db:"status" json:"status"`
	LikeCount       int          `db:"like_count" json:"like_count"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
	Author          *UserSummary `db:"-" json:"author,omitempty"`
	Replies         []Comment    `db:"-" json:"replies,omitempty"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content         string `json:"content" validate:"required,max=1000"`
	ParentCommentID *int64 `json:"parentCommentId,omitempty"`
}

// UpdateCommentRequest is the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// CommentPage mirrors the listing shape clients already consume.
type CommentPage struct {
	Comments      []Comment `json:"comments"`
	TotalPages    int       `json:"totalPages"`
	CurrentPage   int       `json:"currentPage"`
	TotalComments int       `json:"totalComments"`
}

// CommentLikeResult is returned by the comment like toggle.
type CommentLikeResult struct {
	TotalLikes  int  `json:"totalLikes"`
	LikedByUser bool `json:"likedByUser"`
}

const MaxCommentLength = 1000

var (
	ErrCommentNotFound       = errors.New("Comentário não encontrado.")
	ErrParentCommentNotFound = errors.New("Comentário pai não encontrado.")
	ErrNotCommentEditor      = errors.New("Você não tem permissão para editar este comentário.")
	ErrNotCommentDeleter     = errors.New("Você não tem permissão para deletar este comentário.")
	ErrContentRequired       = errors.New("O comentário não pode estar vazio.")
	ErrContentTooLong        = errors.New("O comentário deve ter no máximo 1000 caracteres.")
	ErrInvalidCommentSort    = errors.New("Ordenação inválida. Use newest, oldest ou mostLiked.")
)
