// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/utils"
)

// publicPagePrefixes never require a session
var publicPagePrefixes = []string{"/login", "/track", "/api", "/metrics"}

// AuthMiddleware recovers the administrator identity from the session cookies
type AuthMiddleware struct {
	sessions services.SessionService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(sessions services.SessionService) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
	}
}

// recoverIdentity reads both cookies. It returns nil, nil when either is absent.
func (m *AuthMiddleware) recoverIdentity(c fiber.Ctx) (*services.Identity, error) {
	token := strings.TrimSpace(c.Cookies(utils.SessionCookieName))
	identity := strings.TrimSpace(c.Cookies(utils.IdentityCookieName))
	return m.sessions.Recover(token, identity)
}

// RequireIdentity guards the JSON API. Requests without a valid session get a 401 envelope.
func (m *AuthMiddleware) RequireIdentity() fiber.Handler {
	return func(c fiber.Ctx) error {
		identity, err := m.recoverIdentity(c)
		if err != nil {
			code, message := "SESSION_INVALID", "Invalid session"
			if errors.Is(err, services.ErrSessionExpired) {
				code, message = "SESSION_EXPIRED", "Session has expired"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error:   dto.ErrorDetail{Code: code},
			})
		}
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authentication required",
				Error:   dto.ErrorDetail{Code: "AUTHENTICATION_REQUIRED"},
			})
		}

		c.Locals(utils.IdentityLocalsKey, identity)
		return c.Next()
	}
}

// PageGuard protects server-rendered pages. Unauthenticated visitors are redirected to
// /login and authenticated visitors of /login are sent to /dashboard. Paths under
// /login, /track and /api are always public.
func (m *AuthMiddleware) PageGuard() fiber.Handler {
	return func(c fiber.Ctx) error {
		path := c.Path()
		identity, err := m.recoverIdentity(c)
		if err != nil {
			logger.Ctx(c.Context()).Debug().Err(err).Str("path", path).Msg("discarding unusable session")
			identity = nil
		}
		if identity != nil {
			c.Locals(utils.IdentityLocalsKey, identity)
		}

		if path == "/login" && identity != nil {
			return c.Redirect().Status(fiber.StatusFound).To("/dashboard")
		}
		if IsPublicPath(path) {
			return c.Next()
		}
		if identity == nil {
			return c.Redirect().Status(fiber.StatusFound).To("/login")
		}
		return c.Next()
	}
}

// IsPublicPath reports whether path is exempt from the page guard
func IsPublicPath(path string) bool {
	for _, p := range publicPagePrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// GetIdentityFromContext extracts the identity placed by RequireIdentity or PageGuard
func GetIdentityFromContext(c fiber.Ctx) (*services.Identity, bool) {
	identity, ok := c.Locals(utils.IdentityLocalsKey).(*services.Identity)
	return identity, ok && identity != nil
}
