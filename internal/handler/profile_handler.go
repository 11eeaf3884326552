package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

func (h *Handler) GetProfile(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	profile, err := h.store.GetUserProfile(c.Request().Context(), id)
	if err != nil {
		return storageError(c, log, err, "profile not found")
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) CreateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.ProfileInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}

	profile, err := h.store.CreateUserProfile(c.Request().Context(), id, req)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}

	prometheus.RecordUserOperation("profile_create")
	log.Info("Profile created", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.ProfileInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}

	profile, err := h.store.UpdateUserProfile(c.Request().Context(), id, req)
	if err != nil {
		return storageError(c, log, err, "profile not found")
	}

	prometheus.RecordUserOperation("profile_update")
	log.Info("Profile updated", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, profile)
}
