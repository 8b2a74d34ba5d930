package history

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/erickdv/guardia/internal/apperror"
	"github.com/erickdv/guardia/internal/auth"
)

// Handler serves the login-history read endpoint.
type Handler struct {
	service HistoryService
}

// NewHandler creates a new history handler with the given service.
func NewHandler(service HistoryService) *Handler {
	return &Handler{service: service}
}

// List returns the authenticated caller's login timestamps, oldest first
// (GET /auth/login-history).
func (h *Handler) List(c echo.Context) error {
	username := auth.GetUsername(c)
	if username == "" {
		return apperror.NewUnauthorized("Debes iniciar sesión para acceder.")
	}

	entries, err := h.service.List(c.Request().Context(), username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"username":      username,
		"login_history": entries,
	})
}
