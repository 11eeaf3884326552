// Package webhook relays chat messages to the external assistant webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyReply is returned when the webhook answers without a message.
var ErrEmptyReply = errors.New("webhook returned no message")

// Message is the payload exchanged with the webhook in both directions.
type Message struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// StatusError is a non-2xx webhook response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
}

// Client posts messages to a single webhook URL.
type Client struct {
	URL        string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a webhook client with the given request timeout.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// reply accepts the shapes automation tools commonly answer with.
type reply struct {
	Message   string `json:"message"`
	Output    string `json:"output"`
	SessionID string `json:"sessionId"`
}

// Send posts msg and returns the assistant's answer. The answer keeps the
// request session id when the webhook does not return one.
func (c *Client) Send(ctx context.Context, msg Message) (*Message, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Webhook request failed", zap.Error(err))
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.Logger.Error("Webhook returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	r, err := decodeReply(body)
	if err != nil {
		return nil, err
	}

	text := r.Message
	if text == "" {
		text = r.Output
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyReply
	}

	sessionID := r.SessionID
	if sessionID == "" {
		sessionID = msg.SessionID
	}
	return &Message{Message: text, SessionID: sessionID}, nil
}

// decodeReply reads either a single object or the first element of an array.
func decodeReply(body []byte) (reply, error) {
	var r reply
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []reply
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return r, fmt.Errorf("decode webhook response: %w", err)
		}
		if len(list) == 0 {
			return r, ErrEmptyReply
		}
		return list[0], nil
	}
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return r, fmt.Errorf("decode webhook response: %w", err)
	}
	return r, nil
}
