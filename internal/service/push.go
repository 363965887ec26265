package service

import (
	"context"
	"strconv"

	"redesocial/internal/model"
)

// Pusher delivers a notification to the recipient's devices. Providers
// address users by id; device registration happens on the client side.
type Pusher interface {
	Name() string
	Send(ctx context.Context, recipientID int64, title, body string, data map[string]string) error
}

// pushData is the payload apps use to navigate from a tapped notification.
func pushData(n *model.Notification) map[string]string {
	return map[string]string{
		"notification_id": strconv.FormatInt(n.ID, 10),
		"type":            string(n.Type),
		"related_kind":    string(n.Related.Kind),
		"related_id":      strconv.FormatInt(n.Related.ID, 10),
	}
}
