package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/auth"
	"github.com/iliyamo/figure-api/internal/events"
	"github.com/iliyamo/figure-api/internal/logging"
	"github.com/iliyamo/figure-api/internal/middleware"
	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

// UserHandler bundles dependencies for the /users endpoints.
type UserHandler struct {
	Users         *repository.UserRepository
	Hasher        auth.Hasher
	Tokens        *auth.JWTService
	RefreshTokens *auth.RefreshTokenService
	Events        events.Publisher
	Log           logging.Logger
}

func NewUserHandler(users *repository.UserRepository, hasher auth.Hasher, tokens *auth.JWTService,
	refresh *auth.RefreshTokenService, pub events.Publisher, log logging.Logger) *UserHandler {
	return &UserHandler{Users: users, Hasher: hasher, Tokens: tokens, RefreshTokens: refresh, Events: pub, Log: log}
}

const requestTimeout = 5 * time.Second

// SignUp registers a USER account and returns it.
func (h *UserHandler) SignUp(c echo.Context) error {
	var req signUpPayload
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.normalize()
	if err := validationError(req.Validate()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	// Reject an email that is already registered
	_, err := h.Users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return apperr.Conflict("Email value is already taken")
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	hash, err := h.Hasher.HashPassword(req.Password) // bcrypt with the configured cost
	if err != nil {
		return err
	}

	u, err := h.Users.Create(ctx, model.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.RoleUser, // never taken from the body
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost a race with a concurrent sign-up, or the username is taken
			return apperr.Conflict("Email or username value is already taken")
		}
		return storeError(err, "user not found")
	}

	// Second, separate write. A failure here leaves a user without
	// credentials; it is logged and not rolled back.
	if _, err := h.Users.UserCredentials(u.ID).Create(ctx, model.UserCredentials{Password: hash}); err != nil {
		h.Log.Error(ctx, "signup: credentials write failed", "user_id", u.ID, "error", err)
		return err
	}

	h.Log.Info(ctx, "user signed up", "user_id", u.ID)
	ev := events.New(events.UserSignedUp, u.ID, "")
	ev.Email = u.Email
	publish(ctx, h.Events, h.Log, ev)

	return c.JSON(http.StatusOK, u)
}

// Login checks the credentials and returns an access and refresh token.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginPayload
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if err := validationError(req.Validate()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	// Same answer for unknown email and wrong password
	invalid := apperr.Unauthorized("Invalid email or password.")
	u, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid
		}
		return err
	}
	creds, err := h.Users.FindCredentials(ctx, u.ID)
	if err != nil {
		return err
	}
	if creds == nil || !h.Hasher.ComparePassword(req.Password, creds.Password) {
		return invalid
	}

	// Short lived access token plus a stored refresh token
	profile := auth.ProfileFromUser(u)
	access, err := h.Tokens.GenerateToken(profile)
	if err != nil {
		return err
	}
	pair, err := h.RefreshTokens.GenerateToken(ctx, profile, access)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// Me returns the caller's user id as a plain string.
func (h *UserHandler) Me(c echo.Context) error {
	p, ok := middleware.CurrentProfile(c)
	if !ok {
		return apperr.Unauthorized("not authenticated")
	}
	return c.String(http.StatusOK, p.ID)
}

// Refresh exchanges a refresh token for a new access token.
func (h *UserHandler) Refresh(c echo.Context) error {
	var req refreshPayload
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.RefreshToken == "" {
		return apperr.Unauthorized("refresh token is empty")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.RefreshTokens.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}
