package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/figure-api/internal/auth"
)

const profileKey = "profile"

// CurrentProfile returns the profile stored by JWTAuth.
func CurrentProfile(c echo.Context) (auth.UserProfile, bool) {
	p, ok := c.Get(profileKey).(auth.UserProfile)
	if !ok || p.ID == "" {
		return auth.UserProfile{}, false
	}
	return p, true
}

// currentUserID identifies the caller for rate limit keys. Anonymous
// requests share the "anon" bucket of their ip.
func currentUserID(c echo.Context) string {
	if p, ok := CurrentProfile(c); ok {
		return p.ID
	}
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
