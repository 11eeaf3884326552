package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

// ListGratitude returns gratitude journal entries, newest first
func (h *Handler) ListGratitude(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}
	limit, ok := limitParam(c)
	if !ok {
		return invalidField(c, "limit", "must be a positive integer")
	}

	entries, err := h.store.ListGratitudeEntries(c.Request().Context(), id, limit)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) CreateGratitude(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.GratitudeInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}
	if len(req.Items()) == 0 {
		return invalidField(c, "entries", "must contain at least one non-blank item")
	}

	entry, err := h.store.CreateGratitudeEntry(c.Request().Context(), id, req)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}

	prometheus.RecordUserOperation("gratitude_create")
	log.Info("Gratitude recorded", zap.Uint("user_id", id), zap.Int("items", len(entry.Entries)))
	return c.JSON(http.StatusCreated, entry)
}
