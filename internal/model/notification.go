package model

import (
	"errors"
	"fmt"
	"time"
)

// NotificationKind enumerates what happened to the recipient.
type NotificationKind string

const (
	NotificationFollow         NotificationKind = "follow"
	NotificationFriendRequest  NotificationKind = "friend_request"
	NotificationFriendAccepted NotificationKind = "friend_accepted"
	NotificationPostLike       NotificationKind = "post_like"
	NotificationPostComment    NotificationKind = "post_comment"
	NotificationCommentLike    NotificationKind = "comment_like"
)

// RelatedKind tags the entity a notification points at.
type RelatedKind string

const (
	RelatedUser    RelatedKind = "user"
	RelatedPost    RelatedKind = "post"
	RelatedComment RelatedKind = "comment"
)

// Related is the entity that triggered a notification: exactly one of a
// user, a post or a comment, identified by Kind.
type Related struct {
	Kind RelatedKind `json:"kind"`
	ID   int64       `json:"id"`
}

func RelatedToUser(id int64) Related    { return Related{Kind: RelatedUser, ID: id} }
func RelatedToPost(id int64) Related    { return Related{Kind: RelatedPost, ID: id} }
func RelatedToComment(id int64) Related { return Related{Kind: RelatedComment, ID: id} }

var relatedKindByNotification = map[NotificationKind]RelatedKind{
	NotificationFollow:         RelatedUser,
	NotificationFriendRequest:  RelatedUser,
	NotificationFriendAccepted: RelatedUser,
	NotificationPostLike:       RelatedPost,
	NotificationPostComment:    RelatedPost,
	NotificationCommentLike:    RelatedComment,
}

var pushTitles = map[NotificationKind]string{
	NotificationFollow:         "Novo seguidor",
	NotificationFriendRequest:  "Solicitação de amizade",
	NotificationFriendAccepted: "Amizade aceita",
	NotificationPostLike:       "Nova curtida",
	NotificationPostComment:    "Novo comentário",
	NotificationCommentLike:    "Nova curtida",
}

// Valid reports whether k is one of the declared kinds.
func (k NotificationKind) Valid() bool {
	_, ok := relatedKindByNotification[k]
	return ok
}

// PushTitle is the heading used for push deliveries.
func (k NotificationKind) PushTitle() string {
	if t, ok := pushTitles[k]; ok {
		return t
	}
	return "Nova notificação"
}

// Notification is a stored notification addressed to RecipientID.
type Notification struct {
	ID          int64            `json:"_id"`
	RecipientID int64            `json:"recipient"`
	SenderID    int64            `json:"-"`
	Type        NotificationKind `json:"type"`
	Content     string           `json:"content"`
	Related     Related          `json:"related"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
	Sender      *UserSummary     `json:"sender,omitempty"`
}

// NotificationInput is what other services emit; it is persisted as a
// Notification by the notification service.
type NotificationInput struct {
	RecipientID int64            `json:"recipient_id"`
	SenderID    int64            `json:"sender_id"`
	Type        NotificationKind `json:"type"`
	Content     string           `json:"content"`
	Related     Related          `json:"related"`
}

// Validate checks the kind and that the related entity matches it.
func (n NotificationInput) Validate() error {
	want, ok := relatedKindByNotification[n.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNotificationKind, n.Type)
	}
	if n.Related.Kind != want {
		return fmt.Errorf("%w: %s needs %s, got %s", ErrRelatedKindMismatch, n.Type, want, n.Related.Kind)
	}
	if n.RecipientID == 0 || n.SenderID == 0 {
		return ErrNotificationParties
	}
	return nil
}

// IsSelf is true when the sender would notify themselves.
func (n NotificationInput) IsSelf() bool {
	return n.RecipientID == n.SenderID
}

func NewFollowNotification(recipientID int64, sender *User) NotificationInput {
	return NotificationInput{
		RecipientID: recipientID,
		SenderID:    sender.ID,
		Type:        NotificationFollow,
		Content:     fmt.Sprintf("%s começou a seguir você.", sender.FullName()),
		Related:     RelatedToUser(sender.ID),
	}
}

func NewFriendRequestNotification(recipientID int64, sender *User) NotificationInput {
	return NotificationInput{
		RecipientID: recipientID,
		SenderID:    sender.ID,
		Type:        NotificationFriendRequest,
		Content:     fmt.Sprintf("%s enviou uma solicitação de amizade.", sender.FullName()),
		Related:     RelatedToUser(sender.ID),
	}
}

func NewFriendAcceptedNotification(recipientID int64, sender *User) NotificationInput {
	return NotificationInput{
		RecipientID: recipientID,
		SenderID:    sender.ID,
		Type:        NotificationFriendAccepted,
		Content:     fmt.Sprintf("%s aceitou sua solicitação de amizade.", sender.FullName()),
		Related:     RelatedToUser(sender.ID),
	}
}

func NewPostLikeNotification(recipientID int64, sender *User, postID int64) NotificationInput {
	return NotificationInput{
		RecipientID: recipientID,
		SenderID:    sender.ID,
		Type:        NotificationPostLike,
		Content:     fmt.Sprintf("%s curtiu sua publicação.", sender.FullName()),
		Related:     RelatedToPost(postID),
	}
}

// NewPostCommentNotification quotes the first 50 characters of the comment.
func NewPostCommentNotification(recipientID int64, sender *User, postID int64, comment string) NotificationInput {
	return NotificationInput{
		RecipientID: recipientID,
		SenderID:    sender.ID,
		Type:        NotificationPostComment,
		Content:     fmt.Sprintf("%s comentou em sua publicação: \"%s\"", sender.FullName(), Excerpt(comment, 50)),
		Related:     RelatedToPost(postID),
	}
}

func NewCommentLikeNotification(recipientID int64, sender *User, commentID int64) NotificationInput {
	return NotificationInput{
		RecipientID: recipientID,
		SenderID:    sender.ID,
		Type:        NotificationCommentLike,
		Content:     fmt.Sprintf("%s curtiu seu comentário.", sender.FullName()),
		Related:     RelatedToComment(commentID),
	}
}

// Excerpt cuts s to max runes, appending "..." when something was cut.
func Excerpt(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// UnreadCountResponse is returned by the unread badge endpoint.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// MaxNotificationsListed bounds the notification listing.
const MaxNotificationsListed = 50

var (
	ErrNotificationNotFound    = errors.New("Notificação não encontrada.")
	ErrUnknownNotificationKind = errors.New("unknown notification kind")
	ErrRelatedKindMismatch     = errors.New("related entity does not match notification kind")
	ErrNotificationParties     = errors.New("notification needs recipient and sender")
)
