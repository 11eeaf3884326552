// Package handler holds the echo handlers for the wellness API.
package handler

import (
	"context"

	"wellness-service/internal/storage"
	"wellness-service/pkg/jwtutil"
	"wellness-service/pkg/webhook"
)

// ChatSender relays a chat message to the assistant.
// *webhook.Client satisfies it.
type ChatSender interface {
	Send(ctx context.Context, msg webhook.Message) (*webhook.Message, error)
}

// TokenIssuer signs the bearer token returned by login and register.
type TokenIssuer interface {
	GenerateToken(email string, userID uint) (string, error)
}

// Handler carries the dependencies shared by all routes.
type Handler struct {
	store   storage.Storage
	tokens  TokenIssuer
	chat    ChatSender
	service string
}

// Option customises a Handler.
type Option func(*Handler)

// WithChat enables POST /api/chat.
func WithChat(chat ChatSender) Option {
	return func(h *Handler) {
		h.chat = chat
	}
}

// WithServiceName sets the name reported by /health.
func WithServiceName(name string) Option {
	return func(h *Handler) {
		h.service = name
	}
}

// New creates a Handler over store. Tokens are signed with jwt.
func New(store storage.Storage, jwt *jwtutil.JWTUtil, opts ...Option) *Handler {
	h := &Handler{
		store:   store,
		tokens:  jwt,
		service: "wellness-service",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
