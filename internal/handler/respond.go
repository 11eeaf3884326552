package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/internal/storage"
	"wellness-service/prometheus"
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string       `json:"error"`
	Errors []FieldError `json:"errors,omitempty"`
}

const passwordTooLong = "must be at most 72 bytes"

// Validator adapts go-playground/validator to echo. Field names in errors
// use the json tag of the struct field.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the request validator registered on the echo instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// bcrypt counts bytes, max= counts runes
	if err := v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= model.MaxPasswordBytes
	}); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "bcryptlen":
		return passwordTooLong
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// bindAndValidate decodes the body into req and runs validation. It writes
// the 400 response itself and reports whether the handler may continue.
func bindAndValidate(c echo.Context, req interface{}, log *zap.Logger) (bool, error) {
	if err := c.Bind(req); err != nil {
		log.Warn("Failed to parse request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		fields := fieldErrors(err)
		log.Warn("Request validation failed", zap.Any("fields", fields))
		prometheus.RecordError("validation")
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Errors: fields})
	}
	return true, nil
}

// userID parses the :id path parameter
func userID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// limitParam reads ?limit=, returning 0 when it is absent
func limitParam(c echo.Context) (int, bool) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func invalidField(c echo.Context, field, msg string) error {
	prometheus.RecordError("validation")
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:  "validation failed",
		Errors: []FieldError{{Field: field, Message: msg}},
	})
}

func invalidID(c echo.Context) error {
	prometheus.RecordError("invalid_id")
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
}

// storageError translates a storage error into the HTTP response.
// Unexpected errors are logged and reported without detail.
func storageError(c echo.Context, log *zap.Logger, err error, notFound string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		prometheus.RecordError("not_found")
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound})
	case errors.Is(err, storage.ErrDuplicateEmail):
		prometheus.RecordError("duplicate_email")
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "email already registered"})
	case errors.Is(err, storage.ErrProfileExists):
		prometheus.RecordError("profile_exists")
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "profile already exists"})
	case errors.Is(err, storage.ErrPasswordTooLong):
		return invalidField(c, "password", passwordTooLong)
	case errors.Is(err, storage.ErrInvalidCredentials):
		prometheus.RecordError("login_failure")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
	}
	log.Error("Storage operation failed", zap.Error(err))
	prometheus.RecordError("internal")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
