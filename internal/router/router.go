package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/todo-task-api/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check used by load balancers
// and the static file route serving uploaded todo images.
func RegisterRoutes(e *echo.Echo, uploadDir string) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)

	// Serve uploaded images.  Files land in uploadDir with random names,
	// so exposing the directory leaks nothing about their owners.
	e.Static("/uploads", uploadDir)
}
