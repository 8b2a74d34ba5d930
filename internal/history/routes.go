package history

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the history routes on the given Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	e.GET("/auth/login-history", h.List, requireAuth)
}
