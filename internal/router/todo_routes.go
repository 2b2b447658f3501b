package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-task-api/internal/cache"
	"github.com/iliyamo/todo-task-api/internal/config"
	"github.com/iliyamo/todo-task-api/internal/handler"
	"github.com/iliyamo/todo-task-api/internal/middleware"
)

// RegisterTodos registers the owner-scoped todo endpoints.  The request
// pipeline is strictly ordered per call: guard, then rate limiter, then
// the handler (which consults the cache for reads).  Creation and
// listing carry per-user rate limits; the remaining operations are
// unlimited.
func RegisterTodos(e *echo.Echo, h *handler.TodoHandler, jwtSecret string, users middleware.UserSource, limiter *cache.Limiter, rl config.RateLimitConfig) {
	g := e.Group("/todos", middleware.Authenticate(jwtSecret, users))

	g.POST("", h.Create, middleware.RateLimit(limiter, "create_todo", rl.CreateMax, rl.Window))
	g.GET("", h.List, middleware.RateLimit(limiter, "list_todos", rl.ListMax, rl.Window))
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/toggle", h.Toggle)
	g.POST("/:id/image", h.UploadImage)
}

// RegisterCalendar registers the calendar sync endpoints, all protected.
func RegisterCalendar(e *echo.Echo, h *handler.CalendarHandler, jwtSecret string, users middleware.UserSource) {
	g := e.Group("/calendar", middleware.Authenticate(jwtSecret, users))

	g.POST("/token", h.SaveToken)
	g.GET("/status", h.Status)
	g.DELETE("/disconnect", h.Disconnect)
	g.POST("/sync", h.Sync)
}
