package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/auth"
	"github.com/iliyamo/figure-api/internal/events"
	"github.com/iliyamo/figure-api/internal/logging"
	"github.com/iliyamo/figure-api/internal/middleware"
	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

// FigureHandler serves /figures. Every figure route except /figures/all is
// scoped to the caller: figures of other users are never returned or
// modified.
type FigureHandler struct {
	Users   *repository.UserRepository
	Figures *repository.FigureRepository
	Events  events.Publisher
	Log     logging.Logger
}

func NewFigureHandler(users *repository.UserRepository, figures *repository.FigureRepository,
	pub events.Publisher, log logging.Logger) *FigureHandler {
	return &FigureHandler{Users: users, Figures: figures, Events: pub, Log: log}
}

func bindFigure(c echo.Context, partial bool) (figurePayload, error) {
	var raw map[string]json.RawMessage
	if err := (&echo.DefaultBinder{}).BindBody(c, &raw); err != nil {
		return figurePayload{}, err
	}
	p, err := parseFigure(raw)
	if err != nil {
		return figurePayload{}, err
	}
	if err := validationError(p.Validate(partial)); err != nil {
		return figurePayload{}, err
	}
	return p, nil
}

func caller(c echo.Context) (auth.UserProfile, error) {
	p, ok := middleware.CurrentProfile(c)
	if !ok {
		return auth.UserProfile{}, apperr.Unauthorized("not authenticated")
	}
	return p, nil
}

// loadOwned fetches figure id and checks it belongs to p. A missing figure
// is reported before an ownership mismatch.
func (h *FigureHandler) loadOwned(ctx context.Context, id string, p auth.UserProfile) (model.Figure, error) {
	f, err := h.Figures.FindByID(ctx, id)
	if err != nil {
		return model.Figure{}, storeError(err, "Figure not found")
	}
	// Ownership check
	if f.UserID != p.ID {
		return model.Figure{}, apperr.Forbidden("Access denied: figure belongs to another user")
	}
	return f, nil
}

// Create stores a figure owned by the caller, whatever the body says.
func (h *FigureHandler) Create(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	req, err := bindFigure(c, false)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	f, err := h.Users.Figures(p.ID).Create(ctx, req.figure(p.ID))
	if err != nil {
		return storeError(err, "Figure not found")
	}
	publish(ctx, h.Events, h.Log, events.New(events.FigureCreated, p.ID, f.ID))
	return c.JSON(http.StatusOK, f)
}

// FindAll lists every figure with its owner attached. ADMIN only.
func (h *FigureHandler) FindAll(c echo.Context) error {
	figs, err := h.Figures.Find(c.Request().Context(), repository.Filter{Include: []string{"user"}})
	if err != nil {
		return storeError(err, "Figure not found")
	}
	return c.JSON(http.StatusOK, figs)
}

// FindOwn lists the caller's figures.
func (h *FigureHandler) FindOwn(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	figs, err := h.Users.Figures(p.ID).Find(c.Request().Context(), nil)
	if err != nil {
		return storeError(err, "Figure not found")
	}
	return c.JSON(http.StatusOK, figs)
}

func (h *FigureHandler) FindByID(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	f, err := h.loadOwned(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

// UpdateByID merges the body into the figure. id and userId cannot change.
func (h *FigureHandler) UpdateByID(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	req, err := bindFigure(c, true)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.loadOwned(ctx, id, p); err != nil {
		return err
	}
	if err := h.Figures.UpdateByID(ctx, id, req.patch()); err != nil {
		return storeError(err, "Figure not found")
	}
	publish(ctx, h.Events, h.Log, events.New(events.FigureUpdated, p.ID, id))
	return c.NoContent(http.StatusNoContent)
}

// ReplaceByID overwrites the figure with the body. Extension properties not
// in the body are dropped.
func (h *FigureHandler) ReplaceByID(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	req, err := bindFigure(c, false)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.loadOwned(ctx, id, p); err != nil {
		return err
	}
	if err := h.Figures.ReplaceByID(ctx, id, req.figure(p.ID)); err != nil {
		return storeError(err, "Figure not found")
	}
	publish(ctx, h.Events, h.Log, events.New(events.FigureReplaced, p.ID, id))
	return c.NoContent(http.StatusNoContent)
}

func (h *FigureHandler) DeleteByID(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.loadOwned(ctx, id, p); err != nil {
		return err
	}
	if err := h.Figures.DeleteByID(ctx, id); err != nil {
		return storeError(err, "Figure not found")
	}
	publish(ctx, h.Events, h.Log, events.New(events.FigureDeleted, p.ID, id))
	return c.NoContent(http.StatusNoContent)
}
