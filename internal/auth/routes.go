package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/erickdv/guardia/internal/middleware"
)

// RegisterRoutes sets up the auth routes on the given Echo instance. The
// requireAuth middleware is built by the caller (it needs the activity
// tracker) and shared with the other route groups.
//
// Credential endpoints are rate-limited per IP to throttle brute-force and
// credential-stuffing traffic before it reaches the per-account lockout:
// 10 attempts per minute for login, 5 for register.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	// Public routes -- no session required.
	e.POST("/auth/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.POST("/auth/logout", h.Logout)

	// Authenticated routes. Registration deliberately sits here: the
	// portal only lets signed-in users provision new accounts.
	g := e.Group("/auth", requireAuth)
	g.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	g.POST("/update-password", h.UpdatePassword)
	g.POST("/unlock", h.Unlock)
	g.GET("/profile", h.Profile)
}
