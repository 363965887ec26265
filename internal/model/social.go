package model

import (
	"errors"
	"time"
)

// Follow is a single directed edge: FollowerID follows FolloweeID.
// followers(B) and following(A) are both read from this one row.
type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FriendRequest is a pending inbound request for RecipientID.
type FriendRequest struct {
	RequesterID int64       `db:"requester_id" json:"requester_id"`
	RecipientID int64       `db:"recipient_id" json:"recipient_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	Requester   UserSummary `db:"requester" json:"requester"`
}

// UserListItem is a user in a relationship listing, with the edge timestamp
// used as pagination cursor.
type UserListItem struct {
	UserSummary
	Since time.Time `db:"since" json:"since"`
}

type UserListResponse struct {
	Users      []UserListItem `json:"users"`
	NextCursor *string        `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

var (
	ErrCannotFollowSelf   = errors.New("Você não pode se seguir.")
	ErrCannotUnfollowSelf = errors.New("Você não pode deixar de se seguir.")
	ErrAlreadyFollowing   = errors.New("Você já segue este usuário.")
	ErrNotFollowing       = errors.New("Você não segue este usuário.")

	ErrCannotFavoriteSelf = errors.New("Você não pode favoritar a si mesmo.")

	ErrCannotFriendSelf      = errors.New("Você não pode enviar solicitação de amizade para si mesmo.")
	ErrAlreadyFriends        = errors.New("Vocês já são amigos.")
	ErrFriendRequestExists   = errors.New("Solicitação de amizade já enviada.")
	ErrFriendRequestIncoming = errors.New("Este usuário já enviou uma solicitação de amizade para você.")
	ErrFriendRequestNotFound = errors.New("Solicitação de amizade não encontrada.")

	ErrInvalidCursor = errors.New("Cursor inválido.")
)
