package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/internal/storage"
	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

// AuthResponse is returned by login and register
type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Login checks the credentials and returns the user with a bearer token
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req model.LoginInput
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to parse login request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordError("validation")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "email and password are required",
			Errors: fieldErrors(err),
		})
	}

	user, err := h.store.AuthenticateUser(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, storage.ErrInvalidCredentials) {
		log.Warn("Login rejected", zap.String("email", req.Email))
	}
	if err != nil {
		return storageError(c, log, err, "user not found")
	}

	token, err := h.tokens.GenerateToken(user.Email, user.ID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}

	log.Info("User logged in", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, AuthResponse{User: user, Token: token})
}

// Register creates an account and returns it with a bearer token
func (h *Handler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req model.CreateUserInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}

	user, err := h.store.CreateUser(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			log.Warn("Registration with existing email", zap.String("email", req.Email))
		}
		return storageError(c, log, err, "user not found")
	}

	token, err := h.tokens.GenerateToken(user.Email, user.ID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}

	log.Info("User registered", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, AuthResponse{User: user, Token: token})
}
