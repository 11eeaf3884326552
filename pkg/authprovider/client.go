// Package authprovider is a small client for a GoTrue compatible auth server
// (Supabase Auth). It covers the admin user endpoints and the password grant.
package authprovider

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

// ErrInvalidLogin is returned by SignInWithPassword when the provider rejects
// the email and password pair.
var ErrInvalidLogin = errors.New("invalid login credentials")

// Client talks to the provider with the service role key.
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// User is the subset of the provider's user object the service reads.
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Session is the password grant response.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Error is a non-2xx provider response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth provider: %d %s", e.StatusCode, e.Message)
}

// errorResponse covers the shapes GoTrue uses across versions.
type errorResponse struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// NewClient creates a new provider client instance
func NewClient(baseURL, serviceKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

// CreateUser registers a confirmed account with the provider.
func (c *Client) CreateUser(ctx context.Context, email, password, name string) (*User, error) {
	body := map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": map[string]string{"name": name},
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/admin/users", body, &user); err != nil {
		c.Logger.Error("Provider user creation failed", zap.Error(err))
		return nil, err
	}
	c.Logger.Info("Provider user created", zap.String("provider_id", user.ID))
	return &user, nil
}

// UpdatePassword replaces the password of the provider account id.
func (c *Client) UpdatePassword(ctx context.Context, id, password string) error {
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+id, map[string]string{"password": password}, nil); err != nil {
		c.Logger.Error("Provider password update failed", zap.String("provider_id", id), zap.Error(err))
		return err
	}
	return nil
}

// UpdateEmail replaces the email of the provider account id.
func (c *Client) UpdateEmail(ctx context.Context, id, email string) error {
	body := map[string]interface{}{"email": email, "email_confirm": true}
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+id, body, nil); err != nil {
		c.Logger.Error("Provider email update failed", zap.String("provider_id", id), zap.Error(err))
		return err
	}
	return nil
}

// DeleteUser removes the provider account id. A 404 counts as success.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/admin/users/"+id, nil, nil)
	var perr *Error
	if errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		c.Logger.Error("Provider user deletion failed", zap.String("provider_id", id), zap.Error(err))
	}
	return err
}

// SignInWithPassword runs the password grant. Rejected credentials are
// reported as ErrInvalidLogin.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password",
		map[string]string{"email": email, "password": password}, &session)
	var perr *Error
	if errors.As(err, &perr) && (perr.StatusCode == http.StatusBadRequest || perr.StatusCode == http.StatusUnauthorized) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Health checks that the provider answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var er errorResponse
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &er) == nil && er.text() != "" {
			msg = er.text()
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
