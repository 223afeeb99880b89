// Package memory is an in-process datasource. It keeps every collection in
// maps guarded by one RWMutex and returns rows in insertion order.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] { return &table[T]{rows: map[string]T{}} }

func (t *table[T]) insert(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) remove(id string) {
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func (t *table[T]) each(fn func(T) bool) {
	for _, id := range t.order {
		if !fn(t.rows[id]) {
			return
		}
	}
}

// DB holds all collections.
type DB struct {
	mu          sync.RWMutex
	users       *table[model.User]
	credentials *table[model.UserCredentials]
	figures     *table[model.Figure]
	tokens      *table[model.RefreshToken]
}

var _ repository.Datasource = (*DB)(nil)

func New() *DB {
	return &DB{
		users:       newTable[model.User](),
		credentials: newTable[model.UserCredentials](),
		figures:     newTable[model.Figure](),
		tokens:      newTable[model.RefreshToken](),
	}
}

func (db *DB) Users() repository.UserStore              { return userStore{db} }
func (db *DB) Credentials() repository.CredentialsStore { return credentialStore{db} }
func (db *DB) Figures() repository.FigureStore          { return figureStore{db} }
func (db *DB) Tokens() repository.TokenStore            { return tokenStore{db} }
func (db *DB) Close(context.Context) error              { return nil }

type userStore struct{ db *DB }

func (s userStore) Create(_ context.Context, u model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users.rows[u.ID]; ok {
		return fmt.Errorf("%w: id %s", repository.ErrConflict, u.ID)
	}
	if err := s.checkUnique(u, ""); err != nil {
		return err
	}
	u.Figures, u.UserCredentials = nil, nil
	s.db.users.insert(u.ID, u)
	return nil
}

func (s userStore) checkUnique(u model.User, skipID string) error {
	var err error
	s.db.users.each(func(o model.User) bool {
		if o.ID == skipID {
			return true
		}
		if o.Email == u.Email {
			err = fmt.Errorf("%w: email", repository.ErrConflict)
			return false
		}
		if u.Username != "" && o.Username == u.Username {
			err = fmt.Errorf("%w: username", repository.ErrConflict)
			return false
		}
		return true
	})
	return err
}

func (s userStore) Find(_ context.Context, where repository.Where) ([]model.User, error) {
	if err := checkUserWhere(where); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []model.User{}
	var err error
	s.db.users.each(func(u model.User) bool {
		var ok bool
		ok, err = matchUser(u, where)
		if err != nil {
			return false
		}
		if ok {
			out = append(out, u)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s userStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users.rows[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s userStore) ReplaceByID(_ context.Context, id string, u model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users.rows[id]; !ok {
		return repository.ErrNotFound
	}
	u.ID = id
	if err := s.checkUnique(u, id); err != nil {
		return err
	}
	u.Figures, u.UserCredentials = nil, nil
	s.db.users.insert(id, u)
	return nil
}

func (s userStore) DeleteByID(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users.rows[id]; !ok {
		return repository.ErrNotFound
	}
	s.db.users.remove(id)
	return nil
}

type credentialStore struct{ db *DB }

func (s credentialStore) Create(_ context.Context, c model.UserCredentials) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var dup bool
	s.db.credentials.each(func(o model.UserCredentials) bool {
		dup = o.UserID == c.UserID || o.ID == c.ID
		return !dup
	})
	if dup {
		return fmt.Errorf("%w: credentials for user %s", repository.ErrConflict, c.UserID)
	}
	s.db.credentials.insert(c.ID, c)
	return nil
}

func (s credentialStore) FindByUserID(_ context.Context, userID string) (model.UserCredentials, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var found *model.UserCredentials
	s.db.credentials.each(func(c model.UserCredentials) bool {
		if c.UserID == userID {
			found = &c
			return false
		}
		return true
	})
	if found == nil {
		return model.UserCredentials{}, repository.ErrNotFound
	}
	return *found, nil
}

type figureStore struct{ db *DB }

func (s figureStore) Create(_ context.Context, f model.Figure) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.figures.rows[f.ID]; ok {
		return fmt.Errorf("%w: id %s", repository.ErrConflict, f.ID)
	}
	f.User = nil
	s.db.figures.insert(f.ID, f.Clone())
	return nil
}

func (s figureStore) Find(_ context.Context, where repository.Where) ([]model.Figure, error) {
	if err := checkFigureWhere(where); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []model.Figure{}
	var err error
	s.db.figures.each(func(f model.Figure) bool {
		var ok bool
		ok, err = matchFigure(f, where)
		if err != nil {
			return false
		}
		if ok {
			out = append(out, f.Clone())
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s figureStore) FindByID(_ context.Context, id string) (model.Figure, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	f, ok := s.db.figures.rows[id]
	if !ok {
		return model.Figure{}, repository.ErrNotFound
	}
	return f.Clone(), nil
}

func (s figureStore) UpdateByID(_ context.Context, id string, patch model.FigurePatch) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f, ok := s.db.figures.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	f = f.Clone()
	patch.Apply(&f)
	s.db.figures.insert(id, f)
	return nil
}

func (s figureStore) ReplaceByID(_ context.Context, id string, f model.Figure) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.figures.rows[id]; !ok {
		return repository.ErrNotFound
	}
	f.ID = id
	f.User = nil
	s.db.figures.insert(id, f.Clone())
	return nil
}

func (s figureStore) DeleteByID(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.figures.rows[id]; !ok {
		return repository.ErrNotFound
	}
	s.db.figures.remove(id)
	return nil
}

type tokenStore struct{ db *DB }

func (s tokenStore) Create(_ context.Context, t model.RefreshToken) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var dup bool
	s.db.tokens.each(func(o model.RefreshToken) bool {
		dup = o.RefreshToken == t.RefreshToken || o.ID == t.ID
		return !dup
	})
	if dup {
		return fmt.Errorf("%w: refresh token", repository.ErrConflict)
	}
	s.db.tokens.insert(t.ID, t)
	return nil
}

func (s tokenStore) FindByToken(_ context.Context, token string) (model.RefreshToken, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var found *model.RefreshToken
	s.db.tokens.each(func(t model.RefreshToken) bool {
		if t.RefreshToken == token {
			found = &t
			return false
		}
		return true
	})
	if found == nil {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return *found, nil
}
