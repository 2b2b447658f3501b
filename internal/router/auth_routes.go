package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-task-api/internal/handler"
	"github.com/iliyamo/todo-task-api/internal/middleware"
)

// RegisterAuth registers the account endpoints.  Registration and login
// live under /auth without a guard; everything else runs behind the
// Authenticate middleware, which is the single token enforcement point
// for the whole API.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, users middleware.UserSource) {
	// Unauthenticated operations: create an account, exchange credentials
	// for a bearer token.
	e.POST("/auth/register", a.Register)
	e.POST("/auth/login", a.Login)

	// Protected account endpoints.  The guard loads the full user record
	// into the request context, so handlers never touch tokens.
	g := e.Group("/auth", middleware.Authenticate(jwtSecret, users))
	g.GET("/me", a.Me)
	// Profile updates are partial; PUT and PATCH behave identically.
	g.PUT("/me", a.UpdateMe)
	g.PATCH("/me", a.UpdateMe)
	// Changing the password additionally requires proving knowledge of
	// the current one inside the handler.
	g.POST("/change-password", a.ChangePassword)
}
