package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

func TestUsers_EmailIsUnique(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Users().Create(ctx, model.User{ID: "u1", Email: "a@x.com", Role: model.RoleUser}))

	err := db.Users().Create(ctx, model.User{ID: "u2", Email: "a@x.com", Role: model.RoleUser})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestUsers_FindRejectsUnknownField(t *testing.T) {
	_, err := New().Users().Find(context.Background(), repository.Where{"password": "x"})
	assert.ErrorIs(t, err, repository.ErrUnknownField)
}

func TestFigures_FindRejectsUserKeyOnEmptyTable(t *testing.T) {
	_, err := New().Figures().Find(context.Background(), repository.Where{"user": "u1"})
	assert.ErrorIs(t, err, repository.ErrUnknownField)
}

func TestFigures_FindKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, db.Figures().Create(ctx, model.Figure{ID: id, UserID: "u1"}))
	}
	require.NoError(t, db.Figures().DeleteByID(ctx, "a"))

	figs, err := db.Figures().Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, figs, 2)
	assert.Equal(t, "c", figs[0].ID)
	assert.Equal(t, "b", figs[1].ID)
}

func TestFigures_WhereMatchesExtraAndNumbers(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Figures().Create(ctx, model.Figure{ID: "f1", Measurement: 3, Extra: map[string]any{"tags": []any{"x"}}}))
	require.NoError(t, db.Figures().Create(ctx, model.Figure{ID: "f2", Measurement: 4}))

	figs, err := db.Figures().Find(ctx, repository.Where{"measurement": 3})
	require.NoError(t, err)
	require.Len(t, figs, 1)
	assert.Equal(t, "f1", figs[0].ID)

	figs, err = db.Figures().Find(ctx, repository.Where{"tags": []any{"x"}})
	require.NoError(t, err)
	require.Len(t, figs, 1)
}

func TestFigures_ReturnedCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Figures().Create(ctx, model.Figure{ID: "f1", Extra: map[string]any{"note": "a"}}))

	f, err := db.Figures().FindByID(ctx, "f1")
	require.NoError(t, err)
	f.Extra["note"] = "b"

	again, err := db.Figures().FindByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Extra["note"])
}

func TestFigures_MissingIDsReportNotFound(t *testing.T) {
	ctx := context.Background()
	s := New().Figures()
	_, err := s.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.UpdateByID(ctx, "nope", model.FigurePatch{}), repository.ErrNotFound)
	assert.ErrorIs(t, s.ReplaceByID(ctx, "nope", model.Figure{}), repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteByID(ctx, "nope"), repository.ErrNotFound)
}

func TestCredentials_OnePerUser(t *testing.T) {
	ctx := context.Background()
	s := New().Credentials()
	require.NoError(t, s.Create(ctx, model.UserCredentials{ID: "c1", UserID: "u1", Password: "h"}))
	assert.ErrorIs(t, s.Create(ctx, model.UserCredentials{ID: "c2", UserID: "u1", Password: "h"}), repository.ErrConflict)

	c, err := s.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h", c.Password)
}

func TestTokens_FindByToken(t *testing.T) {
	ctx := context.Background()
	s := New().Tokens()
	require.NoError(t, s.Create(ctx, model.RefreshToken{ID: "t1", UserID: "u1", RefreshToken: "abc"}))

	got, err := s.FindByToken(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = s.FindByToken(ctx, "abd")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
