package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/erickdv/guardia/internal/auth"
	"github.com/erickdv/guardia/internal/history"
	"github.com/erickdv/guardia/internal/session"
)

// RegisterRoutes constructs all repositories, services, and handlers and
// registers every route on the Echo instance. The policy thresholds come
// from config so deployments (and tests) can tune them.
func (a *App) RegisterRoutes() {
	// Shared collaborators.
	hasher := auth.NewBcryptHasher(a.Config.Auth.BcryptCost)
	sessions := session.NewStore(a.Redis, a.Config.Auth.SessionTTL)
	tracker := session.NewTracker(sessions, a.Config.Auth.MaxInactivity)

	// History recorder.
	historyRepo := history.NewRepository(a.DB)
	historyService := history.NewService(historyRepo)
	historyHandler := history.NewHandler(historyService)

	// Attempt governor.
	accounts := auth.NewAccountRepository(a.DB)
	authService := auth.NewService(accounts, hasher, a.Config.Auth.MaxLoginAttempts)
	authHandler := auth.NewHandler(authService, sessions, historyService)

	// Every authenticated route goes through the activity tracker.
	requireAuth := auth.RequireAuth(tracker)

	auth.RegisterRoutes(a.Echo, authHandler, requireAuth)
	history.RegisterRoutes(a.Echo, historyHandler, requireAuth)

	a.Echo.GET("/healthz", a.health)
}

// health is a minimal liveness probe.
func (a *App) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
