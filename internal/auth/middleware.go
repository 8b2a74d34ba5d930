package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/erickdv/guardia/internal/apperror"
	"github.com/erickdv/guardia/internal/session"
)

// Context keys for storing session data in Echo context. Other packages
// use these keys (via the exported getter functions below) to access
// the authenticated user's identity.
const (
	contextKeySession  = "auth_session"
	contextKeyUsername = "auth_username"
)

// RequireAuth returns middleware that gates every authenticated request
// through the activity tracker: the session cookie is resolved, the
// inactivity check runs before any other handling, and on Continue the
// last-activity stamp is refreshed. Expired or missing sessions redirect
// browsers to /auth/login or answer 401 for JSON clients.
func RequireAuth(tracker *session.Tracker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)
			if token == "" {
				return handleUnauthenticated(c)
			}

			sess, err := tracker.CheckAndStamp(c.Request().Context(), token)
			if err != nil {
				// Infrastructure trouble is not a logout; surface it.
				if apperror.IsTransient(err) {
					return err
				}
				// Expired or invalid session -- clear the stale cookie.
				clearSessionCookie(c)
				return handleUnauthenticated(c)
			}

			// Store session data in context for downstream handlers.
			c.Set(contextKeySession, sess)
			c.Set(contextKeyUsername, sess.Username)

			return next(c)
		}
	}
}

// handleUnauthenticated returns the appropriate response for unauthenticated
// requests: 401 JSON for API clients, a 303 redirect to login for browsers.
func handleUnauthenticated(c echo.Context) error {
	if wantsJSON(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "Debes iniciar sesión para acceder.",
		})
	}
	return c.Redirect(http.StatusSeeOther, "/auth/login")
}

// wantsJSON returns true if the client asked for a JSON response.
func wantsJSON(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON)
}

// --- Exported getters for downstream handlers ---

// GetSession retrieves the authenticated session from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetSession(c echo.Context) *session.Session {
	sess, ok := c.Get(contextKeySession).(*session.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetUsername retrieves the authenticated username from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUsername(c echo.Context) string {
	username, ok := c.Get(contextKeyUsername).(string)
	if !ok {
		return ""
	}
	return username
}
