package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

// GetUser returns the user without its password
func (h *Handler) GetUser(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	user, err := h.store.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser applies a partial update. An empty body returns the user unchanged.
func (h *Handler) UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.UpdateUserInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}

	ctx := c.Request().Context()
	if req.Empty() {
		user, err := h.store.GetUserByID(ctx, id)
		if err != nil {
			return storageError(c, log, err, "user not found")
		}
		return c.JSON(http.StatusOK, user)
	}

	user, err := h.store.UpdateUser(ctx, id, req)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}

	prometheus.RecordUserOperation("user_update")
	log.Info("User updated", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes the user with its profile and mood entries
func (h *Handler) DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	if err := h.store.DeleteUser(c.Request().Context(), id); err != nil {
		return storageError(c, log, err, "user not found")
	}

	prometheus.RecordUserOperation("user_delete")
	log.Info("User deleted", zap.Uint("user_id", id))
	return c.NoContent(http.StatusNoContent)
}

// GetUserComplete returns the user together with its profile, which may be null
func (h *Handler) GetUserComplete(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	combined, err := h.store.GetUserWithProfile(c.Request().Context(), id)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}
	return c.JSON(http.StatusOK, combined)
}
