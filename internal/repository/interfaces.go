package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/cache"
	"redesocial/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByLogin matches either the email or the username.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error)
	UpdateUsername(ctx context.Context, userID int64, username string, changedAt time.Time) error
	UpdateAvatar(ctx context.Context, userID int64, url, key string) error
	GetCounts(ctx context.Context, userID int64) (*GraphCounts, error)
}

// GraphCounts are the relationship counters shown on a profile.
type GraphCounts struct {
	Followers int `db:"followers"`
	Following int `db:"following"`
	Friends   int `db:"friends"`
}

type FollowRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error)
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

type FavoriteRepository interface {
	Add(ctx context.Context, userID, favoriteID int64) (bool, error)
	Remove(ctx context.Context, userID, favoriteID int64) (bool, error)
	List(ctx context.Context, userID int64) ([]model.UserListItem, error)
}

type FriendRepository interface {
	CreateRequest(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error)
	DeleteRequest(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error)
	RequestExists(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error)
	AreFriends(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) (bool, error)
	// CreateFriendship stores the pair in both directions.
	CreateFriendship(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) error
	DeleteFriendship(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) (bool, error)
	ListIncomingRequests(ctx context.Context, recipientID int64) ([]model.FriendRequest, error)
	ListFriends(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error)
}

// FeedKey is the (created_at, id) position of the last post of a feed page.
type FeedKey struct {
	CreatedAt time.Time
	PostID    int64
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error)
	Delete(ctx context.Context, postID int64) error
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]model.Post, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	// GetFeed returns posts by userID and everyone userID follows, ordered by
	// (created_at, id) descending and strictly after the key when set.
	GetFeed(ctx context.Context, userID int64, after *FeedKey, limit int) ([]model.Post, error)
	GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error)
	GetTimelineEntries(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error)
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	AddLike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error)
	RemoveLike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error)
	IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) (int, error)
	IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error
}

type CommentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) error
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	Update(ctx context.Context, commentID int64, content string) (*model.Comment, error)
	// Delete removes the comment and its replies, returning how many rows went.
	Delete(ctx context.Context, tx *sqlx.Tx, commentID int64) (int, error)
	ListTopLevel(ctx context.Context, postID int64, sort string, offset, limit int) ([]model.Comment, error)
	CountTopLevel(ctx context.Context, postID int64) (int, error)
	ListReplies(ctx context.Context, parentIDs []int64) ([]model.Comment, error)
	AddLike(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (bool, error)
	RemoveLike(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (bool, error)
	IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, commentID int64, delta int) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, in model.NotificationInput) (*model.Notification, error)
	ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID int64) (bool, error)
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID int64) (bool, error)
}
