package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/auth"
)

// RequireRole lets the request through only when the authenticated caller's
// role is one of roles. It must run after JWTAuth; a request without a
// profile is rejected with 401, a role mismatch with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := append([]string(nil), roles...) // copy, callers may reuse the slice
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentProfile(c) // set by JWTAuth
			if !ok {
				return apperr.Unauthorized("not authenticated")
			}
			if auth.Authorize(p.Role, allowed) != auth.Allow {
				return apperr.Forbidden("access denied")
			}
			return next(c)
		}
	}
}
