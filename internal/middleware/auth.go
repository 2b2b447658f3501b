package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-task-api/internal/model"
	"github.com/iliyamo/todo-task-api/internal/repository"
	"github.com/iliyamo/todo-task-api/internal/utils"
)

// userKey is the context key under which the authenticated user is stored.
const userKey = "user"

// UserSource loads a user record for the guard. *repository.UserRepo
// satisfies it; tests substitute an in-memory implementation.
type UserSource interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// Authenticate returns the single authorization enforcement point for
// protected routes: it validates the Bearer access token, loads the
// subject's user record and rejects missing or deactivated accounts.
// Every failure mode (absent header, bad signature, expired token,
// unknown or inactive user) produces the same generic 401 so the
// caller learns nothing about which check failed. On success the full
// user record is stored in the request context; handlers never inspect
// tokens themselves.
func Authenticate(secret string, users UserSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			username, err := utils.VerifyAccessToken(secret, raw)
			if err != nil {
				return unauthorized(c)
			}

			u, err := users.GetByUsername(c.Request().Context(), username)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return unauthorized(c)
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			if !u.IsActive {
				return unauthorized(c)
			}

			c.Set(userKey, u)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// CurrentUser returns the authenticated user stored by Authenticate.
// The second return is false on routes the guard did not run on.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}
