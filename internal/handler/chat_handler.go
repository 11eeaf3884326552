package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/pkg/logger"
	"wellness-service/pkg/webhook"
	"wellness-service/prometheus"
)

// ChatRequest is the body accepted by POST /api/chat
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"sessionId" validate:"max=128"`
}

// Chat forwards the message to the assistant webhook. A session id is
// generated when the client does not send one.
func (h *Handler) Chat(c echo.Context) error {
	log := logger.FromContext(c)

	if h.chat == nil {
		prometheus.RecordChatMessage("disabled")
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "chat is not configured"})
	}

	var req ChatRequest
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	done := prometheus.TrackChatWebhook()
	reply, err := h.chat.Send(c.Request().Context(), webhook.Message{
		Message:   req.Message,
		SessionID: req.SessionID,
	})
	done()
	if err != nil {
		log.Error("Chat webhook failed", zap.String("session_id", req.SessionID), zap.Error(err))
		prometheus.RecordChatMessage("failed")
		prometheus.RecordError("webhook")
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "chat service unavailable"})
	}

	prometheus.RecordChatMessage("ok")
	return c.JSON(http.StatusOK, reply)
}
