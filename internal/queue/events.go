package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"redesocial/internal/model"
)

// Event types carried on the social stream.
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
	EventNotification   = "notification"
)

const (
	StreamSocial        = "stream:social"
	ConsumerGroupSocial = "social_workers"
)

// Event is one entry on the social stream. Which fields are set depends
// on Type.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	PostID   int64 `json:"post_id,omitempty"`
	AuthorID int64 `json:"author_id,omitempty"`
	// PostCreatedAt is the post's timeline score in unix microseconds.
	PostCreatedAt int64 `json:"post_created_at,omitempty"`

	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`

	Notification *model.NotificationInput `json:"notification,omitempty"`
}

func NewPostCreatedEvent(postID, authorID int64, createdAt time.Time) Event {
	return Event{
		Type:          EventPostCreated,
		Timestamp:     time.Now().Unix(),
		PostID:        postID,
		AuthorID:      authorID,
		PostCreatedAt: createdAt.UnixMicro(),
	}
}

func NewPostDeletedEvent(postID, authorID int64) Event {
	return Event{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewUserFollowedEvent asks the worker to backfill the followee's recent
// posts into the follower's timeline.
func NewUserFollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

func NewUserUnfollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

func NewNotificationEvent(in model.NotificationInput) Event {
	return Event{
		Type:         EventNotification,
		Timestamp:    time.Now().Unix(),
		Notification: &in,
	}
}

// ToMap encodes the event as the XADD field set: the type plus the JSON body.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == EventNotification && event.Notification == nil {
		return Event{}, fmt.Errorf("notification event without payload")
	}
	return event, nil
}
