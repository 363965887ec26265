package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
	"redesocial/internal/queue"
	"redesocial/internal/repository"
)

const DefaultPageLimit = 10

type PostService struct {
	db        *sqlx.DB
	posts     repository.PostRepository
	users     repository.UserRepository
	media     *MediaService
	publisher queue.Publisher
	notifier  Notifier
}

func NewPostService(
	db *sqlx.DB,
	posts repository.PostRepository,
	users repository.UserRepository,
	media *MediaService,
	publisher queue.Publisher,
	notifier Notifier,
) *PostService {
	return &PostService{
		db:        db,
		posts:     posts,
		users:     users,
		media:     media,
		publisher: publisher,
		notifier:  notifier,
	}
}

// Create stores a post and publishes it for timeline fan-out. A post needs
// text, an image, or both.
func (s *PostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	content := strings.TrimSpace(req.Content)
	hasImage := req.ImageURL != nil && strings.TrimSpace(*req.ImageURL) != ""

	if content == "" && !hasImage {
		return nil, model.ErrPostContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxPostContentLength {
		return nil, model.ErrPostContentTooLong
	}

	post := &model.Post{
		UserID:  userID,
		Content: content,
	}
	if hasImage {
		post.ImageURL = req.ImageURL
		post.ImageKey = req.ImageKey
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, "PostService", queue.NewPostCreatedEvent(created.ID, userID, created.CreatedAt))
	return created, nil
}

func (s *PostService) GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		liked, err := s.posts.CheckLikes(ctx, *viewerID, []int64{post.ID})
		if err != nil {
			log.Printf("[PostService] Like check failed: post=%d viewer=%d err=%v", post.ID, *viewerID, err)
		} else {
			post.LikedByUser = liked[post.ID]
		}
	}
	return post, nil
}

func (s *PostService) ListByUser(ctx context.Context, userID int64, viewerID *int64, page, limit int) (*model.PostPage, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.listByUser(ctx, userID, viewerID, page, limit)
}

func (s *PostService) ListByUsername(ctx context.Context, username string, viewerID *int64, page, limit int) (*model.PostPage, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return s.listByUser(ctx, user.ID, viewerID, page, limit)
}

func (s *PostService) listByUser(ctx context.Context, userID int64, viewerID *int64, page, limit int) (*model.PostPage, error) {
	page, limit = normalizePage(page, limit)

	total, err := s.posts.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	posts = markLiked(ctx, s.posts, viewerID, posts)

	return &model.PostPage{
		Posts:       posts,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
		TotalPosts:  total,
	}, nil
}

// ToggleLike likes the post, or removes the like when it already exists.
// Only the like transition notifies the author.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID int64) (*model.LikeResult, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &model.LikeResult{}
	removed, err := s.posts.RemoveLike(ctx, tx, postID, userID)
	if err != nil {
		return nil, err
	}
	delta := -1
	if !removed {
		inserted, err := s.posts.AddLike(ctx, tx, postID, userID)
		if err != nil {
			return nil, err
		}
		result.Liked = true
		// A concurrent toggle already inserted and counted this like; a zero
		// delta only reads the counter back.
		delta = 0
		if inserted {
			delta = 1
		}
	}

	if result.Likes, err = s.posts.IncrementLikeCount(ctx, tx, postID, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if delta == 1 && post.UserID != userID {
		if sender, err := s.users.GetByID(ctx, userID); err != nil {
			log.Printf("[PostService] Like notification skipped: post=%d user=%d err=%v", postID, userID, err)
		} else {
			s.notifier.Notify(ctx, model.NewPostLikeNotification(post.UserID, sender, postID))
		}
	}

	return result, nil
}

// Delete removes the post; comments and likes go with it by cascade.
func (s *PostService) Delete(ctx context.Context, postID, userID int64) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return model.ErrNotPostOwner
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	if post.ImageKey != nil {
		s.media.Delete(ctx, *post.ImageKey)
	}

	publishEvent(ctx, s.publisher, "PostService", queue.NewPostDeletedEvent(postID, userID))
	return nil
}

// markLiked fills LikedByUser for an authenticated viewer with one query.
func markLiked(ctx context.Context, posts repository.PostRepository, viewerID *int64, list []model.Post) []model.Post {
	if list == nil {
		return []model.Post{}
	}
	if viewerID == nil || len(list) == 0 {
		return list
	}

	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	liked, err := posts.CheckLikes(ctx, *viewerID, ids)
	if err != nil {
		log.Printf("[PostService] Like check failed: viewer=%d err=%v", *viewerID, err)
		return list
	}
	for i := range list {
		list[i].LikedByUser = liked[list[i].ID]
	}
	return list
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return page, limit
}
