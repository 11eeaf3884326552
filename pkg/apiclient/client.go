// Package apiclient provides typed access to the wellness REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"wellness-service/internal/model"
)

// Client talks to one wellness API instance. The token returned by Login or
// Register is kept and sent on later calls.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken starts the client with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:5000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// AuthResponse is returned by Login and Register.
type AuthResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// ChatMessage is exchanged with POST /api/chat.
type ChatMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := model.LoginInput{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.setToken(out.Token)
	return &out, nil
}

func (c *Client) Register(ctx context.Context, input model.CreateUserInput) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", input, &out); err != nil {
		return nil, err
	}
	c.setToken(out.Token)
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, userPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id uint, input model.UpdateUserInput) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodPut, userPath(id, ""), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, userPath(id, ""), nil, nil)
}

func (c *Client) GetProfile(ctx context.Context, id uint) (*model.UserProfile, error) {
	var out model.UserProfile
	if err := c.do(ctx, http.MethodGet, userPath(id, "/profile"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProfile(ctx context.Context, id uint, input model.ProfileInput) (*model.UserProfile, error) {
	var out model.UserProfile
	if err := c.do(ctx, http.MethodPost, userPath(id, "/profile"), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, id uint, input model.ProfileInput) (*model.UserProfile, error) {
	var out model.UserProfile
	if err := c.do(ctx, http.MethodPut, userPath(id, "/profile"), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureProfile returns the user's profile, creating an empty one on first use.
func (c *Client) EnsureProfile(ctx context.Context, id uint) (*model.UserProfile, error) {
	profile, err := c.GetProfile(ctx, id)
	if err == nil {
		return profile, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	profile, err = c.CreateProfile(ctx, id, model.ProfileInput{})
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		// created concurrently
		return c.GetProfile(ctx, id)
	}
	return profile, err
}

func (c *Client) GetComplete(ctx context.Context, id uint) (*model.UserWithProfile, error) {
	var out model.UserWithProfile
	if err := c.do(ctx, http.MethodGet, userPath(id, "/complete"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMoods returns up to limit entries, newest first. A limit of zero uses
// the server default.
func (c *Client) ListMoods(ctx context.Context, id uint, limit int) ([]model.MoodEntry, error) {
	path := userPath(id, "/moods")
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []model.MoodEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMood(ctx context.Context, id uint, input model.MoodInput) (*model.MoodEntry, error) {
	var out model.MoodEntry
	if err := c.do(ctx, http.MethodPost, userPath(id, "/moods"), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHabits returns the habits logged for date (YYYY-MM-DD). An empty date
// means today on the server.
func (c *Client) ListHabits(ctx context.Context, id uint, date string) ([]model.Habit, error) {
	path := userPath(id, "/habits")
	if date != "" {
		path += "?" + url.Values{"date": {date}}.Encode()
	}
	var out []model.Habit
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateHabit(ctx context.Context, id uint, input model.HabitInput) (*model.Habit, error) {
	var out model.Habit
	if err := c.do(ctx, http.MethodPost, userPath(id, "/habits"), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetHabitCompleted(ctx context.Context, id, habitID uint, completed bool) (*model.Habit, error) {
	var out model.Habit
	path := userPath(id, "/habits/"+strconv.FormatUint(uint64(habitID), 10))
	if err := c.do(ctx, http.MethodPut, path, model.HabitStatusInput{Completed: &completed}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGratitude returns up to limit journal entries, newest first.
func (c *Client) ListGratitude(ctx context.Context, id uint, limit int) ([]model.GratitudeEntry, error) {
	path := userPath(id, "/gratitude")
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []model.GratitudeEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGratitude(ctx context.Context, id uint, input model.GratitudeInput) (*model.GratitudeEntry, error) {
	var out model.GratitudeEntry
	if err := c.do(ctx, http.MethodPost, userPath(id, "/gratitude"), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Chat(ctx context.Context, msg ChatMessage) (*ChatMessage, error) {
	var out ChatMessage
	if err := c.do(ctx, http.MethodPost, "/api/chat", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns nil when the service reports healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func userPath(id uint, suffix string) string {
	return "/api/users/" + strconv.FormatUint(uint64(id), 10) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, v interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return extractError(resp.StatusCode, resp.Body)
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(status int, body io.Reader) *APIError {
	apiErr := &APIError{StatusCode: status}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var payload struct {
		Error  string       `json:"error"`
		Errors []FieldError `json:"errors"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(payload.Error)
	apiErr.Fields = payload.Errors
	return apiErr
}
