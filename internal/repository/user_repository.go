package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/figure-api/internal/model"
)

// UserRepository wraps a UserStore with the figures (has-many) and
// userCredentials (has-one) relations.
type UserRepository struct {
	store       UserStore
	credentials CredentialsStore
	figures     FigureStore
	inclusion   *inclusions[model.User]
}

func NewUserRepository(users UserStore, credentials CredentialsStore, figures FigureStore) *UserRepository {
	r := &UserRepository{
		store:       users,
		credentials: credentials,
		figures:     figures,
		inclusion:   newInclusions[model.User](),
	}
	r.RegisterInclusionResolver("figures", r.resolveFigures)
	r.RegisterInclusionResolver("userCredentials", r.resolveCredentials)
	return r
}

// RegisterInclusionResolver makes name available in Filter.Include.
func (r *UserRepository) RegisterInclusionResolver(name string, fn InclusionResolver[model.User]) {
	r.inclusion.register(name, fn)
}

// Create assigns an id when missing, normalizes the email and inserts u.
func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	if err := r.store.Create(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Find returns users matching filter with the requested relations attached.
func (r *UserRepository) Find(ctx context.Context, filter Filter) ([]model.User, error) {
	users, err := r.store.Find(ctx, normalizeUserWhere(filter.Where))
	if err != nil {
		return nil, err
	}
	if err := r.inclusion.resolve(ctx, users, filter.Include); err != nil {
		return nil, err
	}
	return users, nil
}

// FindOne returns the first user matching filter or ErrNotFound.
func (r *UserRepository) FindOne(ctx context.Context, filter Filter) (model.User, error) {
	users, err := r.Find(ctx, filter)
	if err != nil {
		return model.User{}, err
	}
	if len(users) == 0 {
		return model.User{}, ErrNotFound
	}
	return users[0], nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.FindOne(ctx, Filter{Where: Where{"email": email}})
}

// FindByID fetches a user by id and resolves include.
func (r *UserRepository) FindByID(ctx context.Context, id string, include ...string) (model.User, error) {
	u, err := r.store.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	items := []model.User{u}
	if err := r.inclusion.resolve(ctx, items, include); err != nil {
		return model.User{}, err
	}
	return items[0], nil
}

// ReplaceByID overwrites every stored property of the user.
func (r *UserRepository) ReplaceByID(ctx context.Context, id string, u model.User) error {
	u.ID = id
	u.Email = NormalizeEmail(u.Email)
	return r.store.ReplaceByID(ctx, id, u)
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	return r.store.DeleteByID(ctx, id)
}

// Figures returns the has-many accessor for the user's figures.
func (r *UserRepository) Figures(userID string) *UserFigures {
	return &UserFigures{userID: userID, store: r.figures}
}

// UserCredentials returns the has-one accessor for the user's credentials.
func (r *UserRepository) UserCredentials(userID string) *UserCredentialsAccessor {
	return &UserCredentialsAccessor{userID: userID, store: r.credentials}
}

// FindCredentials returns the user's credentials, or nil when none exist.
// Any other store error is returned as is.
func (r *UserRepository) FindCredentials(ctx context.Context, userID string) (*model.UserCredentials, error) {
	c, err := r.UserCredentials(userID).Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *UserRepository) resolveFigures(ctx context.Context, users []model.User) error {
	for i := range users {
		figs, err := r.figures.Find(ctx, Where{"userId": users[i].ID})
		if err != nil {
			return err
		}
		users[i].Figures = figs
	}
	return nil
}

func (r *UserRepository) resolveCredentials(ctx context.Context, users []model.User) error {
	for i := range users {
		c, err := r.FindCredentials(ctx, users[i].ID)
		if err != nil {
			return err
		}
		users[i].UserCredentials = c
	}
	return nil
}

// UserFigures scopes figure operations to one owner.
type UserFigures struct {
	userID string
	store  FigureStore
}

// Create inserts f owned by the scoped user, whatever f.UserID says.
func (a *UserFigures) Create(ctx context.Context, f model.Figure) (model.Figure, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.UserID = a.userID
	f.Extra = model.SanitizeExtra(f.Extra)
	f.User = nil
	if err := a.store.Create(ctx, f); err != nil {
		return model.Figure{}, err
	}
	return f, nil
}

// Find returns the scoped user's figures matching where.
func (a *UserFigures) Find(ctx context.Context, where Where) ([]model.Figure, error) {
	w := Where{}
	for k, v := range where {
		w[k] = v
	}
	w["userId"] = a.userID
	return a.store.Find(ctx, w)
}

// UserCredentialsAccessor scopes credential operations to one user.
type UserCredentialsAccessor struct {
	userID string
	store  CredentialsStore
}

// Create stores the credentials for the scoped user.
func (a *UserCredentialsAccessor) Create(ctx context.Context, c model.UserCredentials) (model.UserCredentials, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UserID = a.userID
	if err := a.store.Create(ctx, c); err != nil {
		return model.UserCredentials{}, fmt.Errorf("create credentials: %w", err)
	}
	return c, nil
}

// Get returns the scoped user's credentials or ErrNotFound.
func (a *UserCredentialsAccessor) Get(ctx context.Context) (model.UserCredentials, error) {
	return a.store.FindByUserID(ctx, a.userID)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUserWhere(where Where) Where {
	if where == nil {
		return nil
	}
	out := make(Where, len(where))
	for k, v := range where {
		if s, ok := v.(string); ok && k == "email" {
			v = NormalizeEmail(s)
		}
		out[k] = v
	}
	return out
}

// Delete removes one of the scoped user's figures. Figures owned by someone
// else are reported as ErrNotFound.
func (a *UserFigures) Delete(ctx context.Context, figureID string) error {
	f, err := a.store.FindByID(ctx, figureID)
	if err != nil {
		return err
	}
	if f.UserID != a.userID {
		return ErrNotFound
	}
	return a.store.DeleteByID(ctx, figureID)
}
