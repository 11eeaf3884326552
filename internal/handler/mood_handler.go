package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

// ListMoods returns the most recent mood entries, newest first.
// ?limit= caps the result.
func (h *Handler) ListMoods(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	limit, ok := limitParam(c)
	if !ok {
		return invalidField(c, "limit", "must be a positive integer")
	}

	entries, err := h.store.ListMoodEntries(c.Request().Context(), id, limit)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) CreateMood(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.MoodInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}

	entry, err := h.store.CreateMoodEntry(c.Request().Context(), id, req)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}

	prometheus.RecordUserOperation("mood_create")
	log.Info("Mood recorded", zap.Uint("user_id", id), zap.Int("mood", entry.Mood))
	return c.JSON(http.StatusCreated, entry)
}
