package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
	"redesocial/internal/repository"
)

type CommentService struct {
	db       *sqlx.DB
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	notifier Notifier
}

func NewCommentService(
	db *sqlx.DB,
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	notifier Notifier,
) *CommentService {
	return &CommentService{
		db:       db,
		comments: comments,
		posts:    posts,
		users:    users,
		notifier: notifier,
	}
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", model.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return "", model.ErrContentTooLong
	}
	return content, nil
}

// Create adds a comment or a reply. Threads are one level deep: replying to
// a reply attaches the new comment to that reply's parent.
func (s *CommentService) Create(ctx context.Context, postID, userID int64, req model.CreateCommentRequest) (*model.Comment, error) {
	content, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}

	if req.ParentCommentID != nil {
		parent, err := s.comments.GetByID(ctx, *req.ParentCommentID)
		if errors.Is(err, model.ErrCommentNotFound) {
			return nil, model.ErrParentCommentNotFound
		}
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, model.ErrParentCommentNotFound
		}
		parentID := parent.ID
		if parent.ParentCommentID != nil {
			parentID = *parent.ParentCommentID
		}
		comment.ParentCommentID = &parentID
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.comments.Create(ctx, tx, comment); err != nil {
		return nil, err
	}
	if err := s.posts.IncrementCommentCount(ctx, tx, postID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("[CommentService] Author lookup failed: comment=%d user=%d err=%v", comment.ID, userID, err)
		return comment, nil
	}
	comment.Author = &model.UserSummary{
		ID:        author.ID,
		Nome:      author.Nome,
		Sobrenome: author.Sobrenome,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
	}

	if post.UserID != userID {
		s.notifier.Notify(ctx, model.NewPostCommentNotification(post.UserID, author, postID, content))
	}

	return comment, nil
}

// List returns active top-level comments of a post, each with its active
// replies oldest first.
func (s *CommentService) List(ctx context.Context, postID int64, page, limit int, sort string) (*model.CommentPage, error) {
	page, limit = normalizePage(page, limit)
	if sort == "" {
		sort = model.CommentSortNewest
	}

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListTopLevel(ctx, postID, sort, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.comments.CountTopLevel(ctx, postID)
	if err != nil {
		return nil, err
	}

	if len(comments) > 0 {
		parentIDs := make([]int64, len(comments))
		for i := range comments {
			parentIDs[i] = comments[i].ID
		}
		replies, err := s.comments.ListReplies(ctx, parentIDs)
		if err != nil {
			return nil, err
		}

		byParent := make(map[int64][]model.Comment, len(comments))
		for _, r := range replies {
			byParent[*r.ParentCommentID] = append(byParent[*r.ParentCommentID], r)
		}
		for i := range comments {
			comments[i].Replies = byParent[comments[i].ID]
			if comments[i].Replies == nil {
				comments[i].Replies = []model.Comment{}
			}
		}
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	return &model.CommentPage{
		Comments:      comments,
		TotalPages:    totalPages(total, limit),
		CurrentPage:   page,
		TotalComments: total,
	}, nil
}

func (s *CommentService) Update(ctx context.Context, commentID, userID int64, req model.UpdateCommentRequest) (*model.Comment, error) {
	content, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, model.ErrNotCommentEditor
	}

	return s.comments.Update(ctx, commentID, content)
}

// Delete removes the comment with its replies and lowers the post's
// comment_count by the number of rows removed.
func (s *CommentService) Delete(ctx context.Context, commentID, userID int64) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return model.ErrNotCommentDeleter
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := s.comments.Delete(ctx, tx, commentID)
	if err != nil {
		return err
	}
	if err := s.posts.IncrementCommentCount(ctx, tx, comment.PostID, -removed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ToggleLike flips the caller's like on a comment.
func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID int64) (*model.CommentLikeResult, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &model.CommentLikeResult{}
	removed, err := s.comments.RemoveLike(ctx, tx, commentID, userID)
	if err != nil {
		return nil, err
	}
	delta := -1
	if !removed {
		inserted, err := s.comments.AddLike(ctx, tx, commentID, userID)
		if err != nil {
			return nil, err
		}
		result.LikedByUser = true
		// A concurrent toggle already inserted and counted this like; a zero
		// delta only reads the counter back.
		delta = 0
		if inserted {
			delta = 1
		}
	}

	if result.TotalLikes, err = s.comments.IncrementLikeCount(ctx, tx, commentID, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if delta == 1 && comment.UserID != userID {
		if sender, err := s.users.GetByID(ctx, userID); err != nil {
			log.Printf("[CommentService] Like notification skipped: comment=%d user=%d err=%v", commentID, userID, err)
		} else {
			s.notifier.Notify(ctx, model.NewCommentLikeNotification(comment.UserID, sender, commentID))
		}
	}

	return result, nil
}
