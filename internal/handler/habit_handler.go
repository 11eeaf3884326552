package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

// ListHabits returns the user's habits for one day, in the order they were
// added. ?date= picks the day and defaults to today (UTC).
func (h *Handler) ListHabits(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	date := c.QueryParam("date")
	if date == "" {
		date = model.Today(time.Now())
	} else if _, err := time.Parse(model.DateLayout, date); err != nil {
		return invalidField(c, "date", "must be a date (YYYY-MM-DD)")
	}

	habits, err := h.store.ListHabits(c.Request().Context(), id, date)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}
	return c.JSON(http.StatusOK, habits)
}

func (h *Handler) CreateHabit(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}

	var req model.HabitInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}

	habit, err := h.store.CreateHabit(c.Request().Context(), id, req)
	if err != nil {
		return storageError(c, log, err, "user not found")
	}

	prometheus.RecordUserOperation("habit_create")
	log.Info("Habit added", zap.Uint("user_id", id), zap.Uint("habit_id", habit.ID))
	return c.JSON(http.StatusCreated, habit)
}

// SetHabitCompleted toggles one habit. A habit owned by another user is
// reported as not found.
func (h *Handler) SetHabitCompleted(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := userID(c)
	if !ok {
		return invalidID(c)
	}
	habitID, err := strconv.ParseUint(c.Param("habitId"), 10, 64)
	if err != nil || habitID == 0 {
		prometheus.RecordError("invalid_id")
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid habit id"})
	}

	var req model.HabitStatusInput
	if ok, err := bindAndValidate(c, &req, log); !ok {
		return err
	}

	habit, err := h.store.SetHabitCompleted(c.Request().Context(), id, uint(habitID), *req.Completed)
	if err != nil {
		return storageError(c, log, err, "habit not found")
	}

	prometheus.RecordUserOperation("habit_update")
	log.Info("Habit updated",
		zap.Uint("user_id", id),
		zap.Uint("habit_id", habit.ID),
		zap.Bool("completed", habit.Completed),
	)
	return c.JSON(http.StatusOK, habit)
}
