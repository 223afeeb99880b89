package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/figure-api/internal/model"
)

// FigureRepository wraps a FigureStore with the belongs-to "user" relation.
type FigureRepository struct {
	store     FigureStore
	users     UserStore
	inclusion *inclusions[model.Figure]
}

func NewFigureRepository(figures FigureStore, users UserStore) *FigureRepository {
	r := &FigureRepository{
		store:     figures,
		users:     users,
		inclusion: newInclusions[model.Figure](),
	}
	r.RegisterInclusionResolver("user", r.resolveUser)
	return r
}

// RegisterInclusionResolver makes name available in Filter.Include.
func (r *FigureRepository) RegisterInclusionResolver(name string, fn InclusionResolver[model.Figure]) {
	r.inclusion.register(name, fn)
}

// Create assigns an id when missing and inserts f. Callers are responsible
// for setting UserID.
func (r *FigureRepository) Create(ctx context.Context, f model.Figure) (model.Figure, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.Extra = model.SanitizeExtra(f.Extra)
	f.User = nil
	if err := r.store.Create(ctx, f); err != nil {
		return model.Figure{}, err
	}
	return f, nil
}

// Find returns figures matching filter with the requested relations attached.
func (r *FigureRepository) Find(ctx context.Context, filter Filter) ([]model.Figure, error) {
	figs, err := r.store.Find(ctx, filter.Where)
	if err != nil {
		return nil, err
	}
	if figs == nil {
		figs = []model.Figure{}
	}
	if err := r.inclusion.resolve(ctx, figs, filter.Include); err != nil {
		return nil, err
	}
	return figs, nil
}

// FindByID fetches a figure and resolves include. Missing ids yield ErrNotFound.
func (r *FigureRepository) FindByID(ctx context.Context, id string, include ...string) (model.Figure, error) {
	f, err := r.store.FindByID(ctx, id)
	if err != nil {
		return model.Figure{}, err
	}
	items := []model.Figure{f}
	if err := r.inclusion.resolve(ctx, items, include); err != nil {
		return model.Figure{}, err
	}
	return items[0], nil
}

// UpdateByID merges patch into the stored figure.
func (r *FigureRepository) UpdateByID(ctx context.Context, id string, patch model.FigurePatch) error {
	patch.Extra = model.SanitizeExtra(patch.Extra)
	return r.store.UpdateByID(ctx, id, patch)
}

// ReplaceByID overwrites the stored figure. The id is always taken from the
// argument, never from f.
func (r *FigureRepository) ReplaceByID(ctx context.Context, id string, f model.Figure) error {
	f.ID = id
	f.Extra = model.SanitizeExtra(f.Extra)
	f.User = nil
	return r.store.ReplaceByID(ctx, id, f)
}

func (r *FigureRepository) DeleteByID(ctx context.Context, id string) error {
	return r.store.DeleteByID(ctx, id)
}

// User is the belongs-to accessor: it returns the owner of the figure.
func (r *FigureRepository) User(ctx context.Context, figureID string) (model.User, error) {
	f, err := r.store.FindByID(ctx, figureID)
	if err != nil {
		return model.User{}, err
	}
	return r.users.FindByID(ctx, f.UserID)
}

// resolveUser loads each distinct owner once. Figures whose owner no longer
// exists are left without a user.
func (r *FigureRepository) resolveUser(ctx context.Context, figs []model.Figure) error {
	owners := map[string]*model.User{}
	for i := range figs {
		uid := figs[i].UserID
		if uid == "" {
			continue
		}
		owner, seen := owners[uid]
		if !seen {
			u, err := r.users.FindByID(ctx, uid)
			switch {
			case err == nil:
				owner = &u
			case errors.Is(err, ErrNotFound):
				owner = nil
			default:
				return err
			}
			owners[uid] = owner
		}
		if owner != nil {
			u := *owner
			figs[i].User = &u
		}
	}
	return nil
}
