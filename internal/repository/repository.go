package repository

import (
	"context"

	"github.com/iliyamo/figure-api/internal/model"
)

// Where is an equality clause keyed by API field names (id, email, userId...).
// All entries must match.
type Where map[string]any

// Filter selects entities and optionally names relations to include.
type Filter struct {
	Where   Where
	Include []string
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u model.User) error
	Find(ctx context.Context, where Where) ([]model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	ReplaceByID(ctx context.Context, id string, u model.User) error
	DeleteByID(ctx context.Context, id string) error
}

// CredentialsStore persists password hashes, at most one per user.
type CredentialsStore interface {
	Create(ctx context.Context, c model.UserCredentials) error
	FindByUserID(ctx context.Context, userID string) (model.UserCredentials, error)
}

// FigureStore persists figures.
type FigureStore interface {
	Create(ctx context.Context, f model.Figure) error
	Find(ctx context.Context, where Where) ([]model.Figure, error)
	FindByID(ctx context.Context, id string) (model.Figure, error)
	UpdateByID(ctx context.Context, id string, patch model.FigurePatch) error
	ReplaceByID(ctx context.Context, id string, f model.Figure) error
	DeleteByID(ctx context.Context, id string) error
}

// TokenStore persists issued refresh tokens.
type TokenStore interface {
	Create(ctx context.Context, t model.RefreshToken) error
	FindByToken(ctx context.Context, token string) (model.RefreshToken, error)
}

// Datasource bundles the stores of one backend.
type Datasource interface {
	Users() UserStore
	Credentials() CredentialsStore
	Figures() FigureStore
	Tokens() TokenStore
	Close(ctx context.Context) error
}
