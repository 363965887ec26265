package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMClient sends pushes through Firebase Cloud Messaging. Apps subscribe
// to the topic user_<id> after login, so no device tokens are stored here.
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient builds the client from service account fields. The private
// key usually arrives from .env with escaped newlines.
func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMClient, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, projectID, privateKey, clientEmail)

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMClient{client: client}, nil
}

func (c *FCMClient) Name() string { return "fcm" }

// UserTopic is the topic a user's devices subscribe to.
func UserTopic(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

func (c *FCMClient) Send(ctx context.Context, recipientID int64, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Topic: UserTopic(recipientID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	if _, err := c.client.Send(ctx, message); err != nil {
		return fmt.Errorf("send to topic: %w", err)
	}
	return nil
}
