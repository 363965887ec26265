package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"redesocial/internal/model"
	"redesocial/internal/repository"
)

// FriendService manages friend requests and the mutual friendship pair.
type FriendService struct {
	db       *sqlx.DB
	users    repository.UserRepository
	friends  repository.FriendRepository
	notifier Notifier
}

func NewFriendService(
	db *sqlx.DB,
	users repository.UserRepository,
	friends repository.FriendRepository,
	notifier Notifier,
) *FriendService {
	return &FriendService{db: db, users: users, friends: friends, notifier: notifier}
}

func (s *FriendService) SendRequest(ctx context.Context, requesterID, recipientID int64) error {
	if requesterID == recipientID {
		return model.ErrCannotFriendSelf
	}
	if _, err := s.users.GetByID(ctx, recipientID); err != nil {
		return err
	}
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		friends, err := s.friends.AreFriends(ctx, tx, requesterID, recipientID)
		if err != nil {
			return err
		}
		if friends {
			return model.ErrAlreadyFriends
		}

		incoming, err := s.friends.RequestExists(ctx, tx, recipientID, requesterID)
		if err != nil {
			return err
		}
		if incoming {
			return model.ErrFriendRequestIncoming
		}

		created, err := s.friends.CreateRequest(ctx, tx, requesterID, recipientID)
		if err != nil {
			return err
		}
		if !created {
			return model.ErrFriendRequestExists
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, model.NewFriendRequestNotification(recipientID, requester))
	return nil
}

// CancelRequest withdraws the caller's pending request. Missing requests
// are not an error.
func (s *FriendService) CancelRequest(ctx context.Context, requesterID, recipientID int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.friends.DeleteRequest(ctx, tx, requesterID, recipientID)
		return err
	})
}

// AcceptRequest turns the pending request from requesterID into a
// friendship stored in both directions.
func (s *FriendService) AcceptRequest(ctx context.Context, recipientID, requesterID int64) error {
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		deleted, err := s.friends.DeleteRequest(ctx, tx, requesterID, recipientID)
		if err != nil {
			return err
		}
		if !deleted {
			return model.ErrFriendRequestNotFound
		}
		return s.friends.CreateFriendship(ctx, tx, recipientID, requesterID)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, model.NewFriendAcceptedNotification(requesterID, recipient))
	return nil
}

func (s *FriendService) RejectRequest(ctx context.Context, recipientID, requesterID int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.friends.DeleteRequest(ctx, tx, requesterID, recipientID)
		return err
	})
}

// RemoveFriend deletes both directions of the pair; removing a non-friend
// succeeds.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.friends.DeleteFriendship(ctx, tx, userID, friendID)
		return err
	})
}

func (s *FriendService) IncomingRequests(ctx context.Context, userID int64) ([]model.FriendRequest, error) {
	reqs, err := s.friends.ListIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []model.FriendRequest{}
	}
	return reqs, nil
}

func (s *FriendService) ListFriends(ctx context.Context, userID int64, cursor *string, limit int) (*model.UserListResponse, error) {
	return listUsers(ctx, s.users, userID, cursor, limit, s.friends.ListFriends)
}

func (s *FriendService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
