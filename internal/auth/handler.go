package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/erickdv/guardia/internal/apperror"
	"github.com/erickdv/guardia/internal/session"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "guardia_session"

// sessionCookieMaxAge caps the cookie lifetime at one hour, matching the
// absolute session TTL. Inactivity expiry happens server-side well before.
const sessionCookieMaxAge = 60 * 60

// LoginRecorder appends one history entry per successful authentication.
// Satisfied by history.HistoryService; declared here so auth does not
// depend on the history package.
type LoginRecorder interface {
	Record(ctx context.Context, username string)
}

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and render the outcome. No lockout
// logic lives here.
type Handler struct {
	service  AuthService
	sessions *session.Store
	recorder LoginRecorder
}

// NewHandler creates a new auth handler with the given dependencies.
func NewHandler(service AuthService, sessions *session.Store, recorder LoginRecorder) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		recorder: recorder,
	}
}

// Login processes a login attempt (POST /auth/login). The governor's outcome
// maps onto the status code; only a Success issues a session cookie and
// records a history entry.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Solicitud inválida.")
	}
	if req.Username == "" || req.Password == "" {
		return apperror.NewBadRequest("Usuario y contraseña son obligatorios.")
	}

	ctx := c.Request().Context()

	result, err := h.service.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case OutcomeSuccess:
		token, err := h.sessions.Create(ctx, result.Account.Username)
		if err != nil {
			return err
		}
		setSessionCookie(c, token)

		// Exactly one history append per successful authentication.
		// Record swallows its own failures; logins never break on it.
		h.recorder.Record(ctx, result.Account.Username)

		return c.JSON(http.StatusOK, result)

	case OutcomeLocked, OutcomeLockedNow:
		return c.JSON(http.StatusLocked, result)

	default: // OutcomeRejected, OutcomeNotFound
		return c.JSON(http.StatusUnauthorized, result)
	}
}

// Logout destroys the session and clears the cookie (POST /auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	token := getSessionToken(c)
	if token != "" {
		// Destroy the session in Redis. Ignore errors -- the cookie
		// will be cleared regardless.
		_ = h.sessions.Destroy(c.Request().Context(), token)
	}

	clearSessionCookie(c)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Sesión cerrada.",
	})
}

// Register creates a new account (POST /auth/register). The route requires
// an authenticated session: only signed-in users provision accounts.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Solicitud inválida.")
	}
	if req.Username == "" || req.Password == "" {
		return apperror.NewBadRequest("Usuario y contraseña son obligatorios.")
	}

	result, err := h.service.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case OutcomeCreated:
		return c.JSON(http.StatusCreated, result)
	case OutcomeAlreadyExists:
		return c.JSON(http.StatusConflict, result)
	default: // OutcomeWeakPassword
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
}

// UpdatePassword changes the authenticated caller's credential
// (POST /auth/update-password). Lock state and counter are untouched.
func (h *Handler) UpdatePassword(c echo.Context) error {
	username := GetUsername(c)
	if username == "" {
		return apperror.NewUnauthorized("Debes iniciar sesión para acceder.")
	}

	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Solicitud inválida.")
	}
	if req.Password == "" {
		return apperror.NewBadRequest("La contraseña es obligatoria.")
	}

	if err := h.service.UpdatePassword(c.Request().Context(), username, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Contraseña actualizada exitosamente.",
	})
}

// Unlock is the administrative reset (POST /auth/unlock): attempts back to
// zero, lock flag cleared. This is the only way a locked account reopens.
func (h *Handler) Unlock(c echo.Context) error {
	var req UnlockRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Solicitud inválida.")
	}
	if req.Username == "" {
		return apperror.NewBadRequest("El nombre de usuario es obligatorio.")
	}

	if err := h.service.Unlock(c.Request().Context(), req.Username); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Intentos de inicio de sesión reiniciados.",
	})
}

// Profile returns the authenticated caller's account record (GET /auth/profile).
func (h *Handler) Profile(c echo.Context) error {
	username := GetUsername(c)
	if username == "" {
		return apperror.NewUnauthorized("Debes iniciar sesión para acceder.")
	}

	account, err := h.service.GetAccount(c.Request().Context(), username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, account)
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure if behind TLS, and SameSite=Lax.
func setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   sessionCookieMaxAge,
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
