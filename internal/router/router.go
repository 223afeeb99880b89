// Package router declares the HTTP route table and the error handler that
// turns handler errors into JSON responses.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/figure-api/internal/handler"
	"github.com/iliyamo/figure-api/internal/middleware"
	"github.com/iliyamo/figure-api/internal/model"
)

// Route is one entry of the route table. Authenticated routes run JWTAuth,
// and RequireRole when Roles is set.
type Route struct {
	Method       string
	Path         string
	Handler      echo.HandlerFunc
	Authenticate bool
	Roles        []string
}

// RegisterRoutes registers routes that do not require authentication and
// are not part of the API surface.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// Routes returns the API route table.
func Routes(u *handler.UserHandler, f *handler.FigureHandler) []Route {
	user := []string{model.RoleUser}
	admin := []string{model.RoleAdmin}
	return []Route{
		{Method: http.MethodPost, Path: "/users/signup", Handler: u.SignUp},
		{Method: http.MethodPost, Path: "/users/login", Handler: u.Login},
		{Method: http.MethodGet, Path: "/users/me", Handler: u.Me, Authenticate: true},
		{Method: http.MethodPost, Path: "/users/refresh", Handler: u.Refresh},

		{Method: http.MethodPost, Path: "/figures", Handler: f.Create, Authenticate: true, Roles: user},
		{Method: http.MethodGet, Path: "/figures", Handler: f.FindOwn, Authenticate: true, Roles: user},
		{Method: http.MethodGet, Path: "/figures/all", Handler: f.FindAll, Authenticate: true, Roles: admin},
		{Method: http.MethodGet, Path: "/figures/:id", Handler: f.FindByID, Authenticate: true, Roles: user},
		{Method: http.MethodPatch, Path: "/figures/:id", Handler: f.UpdateByID, Authenticate: true, Roles: user},
		{Method: http.MethodPut, Path: "/figures/:id", Handler: f.ReplaceByID, Authenticate: true, Roles: user},
		{Method: http.MethodDelete, Path: "/figures/:id", Handler: f.DeleteByID, Authenticate: true, Roles: user},
	}
}

// Register adds every route of the table to e. limit, when not nil, runs
// after authentication so rate limit keys can use the caller's id.
func Register(e *echo.Echo, routes []Route, verifier middleware.TokenVerifier, limit echo.MiddlewareFunc) {
	authn := middleware.JWTAuth(verifier)
	for _, r := range routes {
		var mw []echo.MiddlewareFunc
		if r.Authenticate {
			mw = append(mw, authn)
			if len(r.Roles) > 0 {
				mw = append(mw, middleware.RequireRole(r.Roles...))
			}
		}
		if limit != nil {
			mw = append(mw, limit)
		}
		e.Add(r.Method, r.Path, r.Handler, mw...)
	}
}
