package model

import (
	"errors"
	"time"
)

// Post represents a user's post with its metadata.
type Post struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Content      string    `db:"content" json:"content"`
	ImageURL     *string   `db:"image_url" json:"image,omitempty"`
	ImageKey     *string   `db:"image_key" json:"-"`
	LikeCount    int       `db:"like_count" json:"like_count"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields (not in posts table)
	Author      *UserSummary `db:"-" json:"author,omitempty"`
	LikedByUser bool         `db:"-" json:"liked_by_user"`
}

// CreatePostRequest is the request body for creating a post.
// ImageURL/ImageKey are filled by the handler after a multipart upload.
type CreatePostRequest struct {
	Content  string  `json:"content" validate:"max=2200"`
	ImageURL *string `json:"image"`
	ImageKey *string `json:"-"`
}

// FeedResponse is the cursor-paginated timeline.
type FeedResponse struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// PostPage is a page-number paginated post listing.
type PostPage struct {
	Posts       []Post `json:"posts"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	TotalPosts  int    `json:"totalPosts"`
}

// LikeResult is returned by the post like toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

const (
	MaxPostContentLength = 2200
	PostImageFolder      = "posts"
	PostImageMaxSide     = 1080
)

var (
	ErrPostNotFound        = errors.New("Post não encontrado.")
	ErrNotPostOwner        = errors.New("Apenas o autor pode deletar este post.")
	ErrPostContentRequired = errors.New("O post precisa de um conteúdo ou de uma imagem.")
	ErrPostContentTooLong  = errors.New("O conteúdo do post excede o limite de caracteres.")
)
