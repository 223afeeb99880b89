// Package middleware holds the echo middleware that authenticates bearer
// tokens, enforces roles and rate limits requests.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/auth"
)

// TokenVerifier turns an access token into the profile it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (auth.UserProfile, error)
}

// JWTAuth validates the Bearer access token and stores the caller's profile
// in the context under "profile", plus "user_id" and "role" for
// middleware that only needs those. Every failure is a 401.
func JWTAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Expect "Authorization: Bearer <token>"
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return apperr.Unauthorized("missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if raw == "" {
				return apperr.Unauthorized("missing bearer token")
			}

			// Signature, expiry and subject are checked by the verifier
			p, err := verifier.VerifyToken(raw)
			if err != nil {
				return apperr.Unauthorized("invalid token")
			}

			// Expose the caller to downstream middleware and handlers
			c.Set(profileKey, p)
			c.Set("user_id", p.ID)
			c.Set("role", p.Role)
			return next(c)
		}
	}
}
