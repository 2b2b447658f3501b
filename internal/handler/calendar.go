package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-task-api/internal/middleware"
	"github.com/iliyamo/todo-task-api/internal/model"
	"github.com/iliyamo/todo-task-api/internal/queue"
	queue_publisher "github.com/iliyamo/todo-task-api/internal/service"
)

// Calendar event colors by task priority, matching the external
// calendar's palette: red for high, yellow for medium, green for low.
const (
	colorHigh   = "11"
	colorMedium = "5"
	colorLow    = "2"
)

// eventTimeLayout is the timestamp format the calendar worker expects.
const eventTimeLayout = "2006-01-02T15:04:05"

// CalendarHandler implements the one-way task-to-calendar sync surface.
// The provider OAuth dance happens elsewhere; this API accepts the
// resulting credential blob opaquely and hands tasks to the sync queue.
type CalendarHandler struct {
	Users UserStore
	Todos TodoStore
}

func NewCalendarHandler(users UserStore, todos TodoStore) *CalendarHandler {
	return &CalendarHandler{Users: users, Todos: todos}
}

// SaveToken stores the caller's external calendar credential blob. The
// payload is kept verbatim; this service never interprets it.
func (h *CalendarHandler) SaveToken(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var blob map[string]any
	if err := c.Bind(&blob); err != nil || len(blob) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token payload required"})
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token payload required"})
	}
	token := string(raw)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Users.SetCalendarToken(ctx, u.ID, &token); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save token failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "token saved successfully"})
}

// Status reports whether the caller has a calendar credential on file.
func (h *CalendarHandler) Status(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"connected": u.CalendarToken != nil})
}

// Disconnect clears the caller's calendar credential.
func (h *CalendarHandler) Disconnect(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Users.SetCalendarToken(ctx, u.ID, nil); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "disconnect failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "calendar disconnected successfully"})
}

// Sync publishes one event per todo to the calendar.sync queue. The
// sync is one-way and asynchronous: this endpoint only queues work and
// reports how many tasks were queued.
func (h *CalendarHandler) Sync(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if u.CalendarToken == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "calendar not connected"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	todos, err := h.Todos.AllForOwner(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load todos failed"})
	}

	now := time.Now().UTC()
	events := make([]queue.TaskEvent, 0, len(todos))
	for _, t := range todos {
		events = append(events, buildTaskEvent(t, now))
	}
	if len(events) > 0 {
		if err := queue_publisher.PublishTaskSync(ctx, events); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sync queue unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "calendar sync queued",
		"queued":  len(events),
	})
}

// buildTaskEvent maps a todo onto its calendar event: the scheduled
// date with midnight bumped to 09:00, or next-day 09:00 when no date is
// set, a one-hour span, and a color derived from priority.
func buildTaskEvent(t model.Todo, now time.Time) queue.TaskEvent {
	var start time.Time
	if t.Date != nil {
		start = *t.Date
		if start.Hour() == 0 && start.Minute() == 0 {
			start = time.Date(start.Year(), start.Month(), start.Day(), 9, 0, 0, 0, start.Location())
		}
	} else {
		tomorrow := now.AddDate(0, 0, 1)
		start = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, time.UTC)
	}
	end := start.Add(time.Hour)

	color := colorLow
	switch t.Priority {
	case model.PriorityHigh:
		color = colorHigh
	case model.PriorityMedium:
		color = colorMedium
	}

	return queue.TaskEvent{
		TodoID:      t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		StartsAt:    start.Format(eventTimeLayout),
		EndsAt:      end.Format(eventTimeLayout),
		ColorID:     color,
		RequestedAt: now.Format(time.RFC3339),
	}
}
