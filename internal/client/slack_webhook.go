package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackWebhook posts messages to a Slack incoming webhook.
type SlackWebhook struct {
	url        string
	httpClient *http.Client
}

// SlackMessage is the incoming-webhook payload.
type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment is a coloured block of fields under the message.
type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
}

// SlackField is one key/value row in an attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackWebhook builds a webhook client. An empty url disables delivery.
func NewSlackWebhook(url string, timeout time.Duration) *SlackWebhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackWebhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsConfigured reports whether a webhook url is set.
func (c *SlackWebhook) IsConfigured() bool {
	return c != nil && c.url != ""
}

// Send posts msg to the webhook.
func (c *SlackWebhook) Send(ctx context.Context, msg SlackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PriorityColor maps a priority to an attachment color.
func PriorityColor(priority string) string {
	switch priority {
	case "CRITICAL":
		return "#dc3545"
	case "HIGH":
		return "#fd7e14"
	case "MEDIUM":
		return "#ffc107"
	default:
		return "#36a64f"
	}
}
