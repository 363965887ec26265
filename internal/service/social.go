package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
	"redesocial/internal/queue"
	"redesocial/internal/repository"
)

// SocialService owns the follow and favorite edges.
type SocialService struct {
	db        *sqlx.DB
	users     repository.UserRepository
	follows   repository.FollowRepository
	favorites repository.FavoriteRepository
	publisher queue.Publisher
	notifier  Notifier
}

func NewSocialService(
	db *sqlx.DB,
	users repository.UserRepository,
	follows repository.FollowRepository,
	favorites repository.FavoriteRepository,
	publisher queue.Publisher,
	notifier Notifier,
) *SocialService {
	return &SocialService{
		db:        db,
		users:     users,
		follows:   follows,
		favorites: favorites,
		publisher: publisher,
		notifier:  notifier,
	}
}

func (s *SocialService) Follow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}

	if _, err := s.users.GetByID(ctx, followeeID); err != nil {
		return err
	}
	follower, err := s.users.GetByID(ctx, followerID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.follows.Create(ctx, tx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !inserted {
		return model.ErrAlreadyFollowing
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	publishEvent(ctx, s.publisher, "SocialService", queue.NewUserFollowedEvent(followerID, followeeID))
	s.notifier.Notify(ctx, model.NewFollowNotification(followeeID, follower))
	return nil
}

func (s *SocialService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotUnfollowSelf
	}

	if _, err := s.users.GetByID(ctx, followeeID); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted, err := s.follows.Delete(ctx, tx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.ErrNotFollowing
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	publishEvent(ctx, s.publisher, "SocialService", queue.NewUserUnfollowedEvent(followerID, followeeID))
	return nil
}

// AddFavorite is idempotent: favoriting twice leaves one entry.
func (s *SocialService) AddFavorite(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return model.ErrCannotFavoriteSelf
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	_, err := s.favorites.Add(ctx, userID, targetID)
	return err
}

func (s *SocialService) RemoveFavorite(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return model.ErrCannotFavoriteSelf
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	_, err := s.favorites.Remove(ctx, userID, targetID)
	return err
}

func (s *SocialService) ListFavorites(ctx context.Context, userID int64) ([]model.UserListItem, error) {
	items, err := s.favorites.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.UserListItem{}
	}
	return items, nil
}

func (s *SocialService) ListFollowers(ctx context.Context, userID int64, cursor *string, limit int) (*model.UserListResponse, error) {
	return listUsers(ctx, s.users, userID, cursor, limit, s.follows.GetFollowers)
}

func (s *SocialService) ListFollowing(ctx context.Context, userID int64, cursor *string, limit int) (*model.UserListResponse, error) {
	return listUsers(ctx, s.users, userID, cursor, limit, s.follows.GetFollowing)
}

type edgeLister func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error)

// listUsers validates the owner and cursor, then wraps one page of a
// relationship listing.
func listUsers(ctx context.Context, users repository.UserRepository, userID int64, cursor *string, limit int, list edgeLister) (*model.UserListResponse, error) {
	before, err := parseTimeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if _, err := users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	items, next, err := list(ctx, userID, before, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.UserListItem{}
	}

	return &model.UserListResponse{
		Users:      items,
		NextCursor: formatTimeCursor(next),
		HasMore:    next != nil,
	}, nil
}
