package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/figure-api/internal/model"
)

// TokenRepository persists and looks up refresh tokens.
type TokenRepository struct{ store TokenStore }

func NewTokenRepository(store TokenStore) *TokenRepository { return &TokenRepository{store: store} }

// StoreRefresh inserts one row binding token to userID.
func (r *TokenRepository) StoreRefresh(ctx context.Context, userID, token string) (model.RefreshToken, error) {
	rt := model.RefreshToken{ID: uuid.NewString(), UserID: userID, RefreshToken: token}
	if err := r.store.Create(ctx, rt); err != nil {
		return model.RefreshToken{}, err
	}
	return rt, nil
}

// FindByToken returns the row whose token string matches exactly, or
// ErrNotFound.
func (r *TokenRepository) FindByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	return r.store.FindByToken(ctx, token)
}
