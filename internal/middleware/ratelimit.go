package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-task-api/internal/cache"
)

// RateLimit returns a middleware enforcing maxCalls per window for one
// named operation. It must run after Authenticate: the counter is keyed
// by the authenticated user's id. Requests without an identity in the
// context pass through unlimited; rate limiting applies only to
// authenticated callers. When the limit is exceeded the wrapped handler
// is never invoked, and the increment that tripped the limit still
// counts against the window.
func RateLimit(limiter *cache.Limiter, op string, maxCalls int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return next(c)
			}
			if !limiter.Allow(c.Request().Context(), u.ID, op, maxCalls, window) {
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": fmt.Sprintf("rate limit exceeded: max %d requests per %s", maxCalls, window),
				})
			}
			return next(c)
		}
	}
}
