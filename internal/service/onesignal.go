package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

const oneSignalURL = "https://onesignal.com/api/v1/notifications"

// OneSignalClient sends pushes through the OneSignal REST API, targeting
// users by external id (our user id, set by the app at login).
type OneSignalClient struct {
	appID      string
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

type oneSignalMessage struct {
	AppID                  string            `json:"app_id"`
	Headings               map[string]string `json:"headings"`
	Contents               map[string]string `json:"contents"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids"`
	Data                   map[string]string `json:"data,omitempty"`
}

type oneSignalResponse struct {
	ID         string      `json:"id"`
	Recipients int         `json:"recipients"`
	Errors     interface{} `json:"errors,omitempty"`
}

func NewOneSignalClient(appID, apiKey string) *OneSignalClient {
	return &OneSignalClient{
		appID:      appID,
		apiKey:     apiKey,
		endpoint:   oneSignalURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *OneSignalClient) Name() string { return "onesignal" }

func (c *OneSignalClient) Send(ctx context.Context, recipientID int64, title, body string, data map[string]string) error {
	message := oneSignalMessage{
		AppID:                  c.appID,
		Headings:               map[string]string{"en": title},
		Contents:               map[string]string{"en": body},
		IncludeExternalUserIDs: []string{strconv.FormatInt(recipientID, 10)},
		Data:                   data,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("onesignal api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out oneSignalResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		log.Printf("[OneSignal] Failed to parse response: %v", err)
		return nil
	}
	if out.Recipients == 0 {
		// The user has no subscribed device; not an error.
		log.Printf("[OneSignal] No subscribed device for user=%d", recipientID)
	}
	return nil
}
