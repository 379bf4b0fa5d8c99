package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

const sessionCookie = "session"

// clientIP prefers the address set by a fronting Cloudflare proxy.
func clientIP(c echo.Context) string {
	if ip := c.Request().Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.RealIP()
}

func sessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) identity(c echo.Context) domain.Identity {
	return h.service.ResolveIdentity(c.Request().Context(), sessionToken(c), clientIP(c))
}

// RequireSession rejects requests without a valid session when auth is enabled.
func (h *Handler) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.service.AuthEnabled() {
			return next(c)
		}
		if !h.service.ValidateSession(c.Request().Context(), sessionToken(c)) {
			return writeError(c, domain.ErrUnauthorized)
		}
		return next(c)
	}
}

// Login exchanges the shared password for a session cookie.
// POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	session, err := h.service.Login(c.Request().Context(), clientIP(c), req.Password)
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Logout deletes the session and clears the cookie.
// POST /api/auth/logout
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), sessionToken(c)); err != nil {
		return writeError(c, err)
	}
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// AuthStatus reports whether auth is required and satisfied.
// GET /api/auth/status
func (h *Handler) AuthStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.AuthStatus(c.Request().Context(), sessionToken(c)))
}
