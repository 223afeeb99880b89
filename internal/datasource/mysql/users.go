package mysql

import (
	"context"
	"database/sql"

	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

const userSelect = "SELECT id,username,email,first_name,last_name,role FROM users"

// UserStore mirrors the 'users' table.
type UserStore struct{ db *sql.DB }

func (s *UserStore) Create(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id,username,email,first_name,last_name,role) VALUES (?,?,?,?,?,?)",
		u.ID, nullString(u.Username), u.Email, nullString(u.FirstName), nullString(u.LastName), u.Role)
	return translate(err)
}

func (s *UserStore) Find(ctx context.Context, where repository.Where) ([]model.User, error) {
	clause, args, err := buildWhere("users", userColumns, where)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, userSelect+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *UserStore) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE id=? LIMIT 1", id))
	return u, translate(err)
}

func (s *UserStore) ReplaceByID(ctx context.Context, id string, u model.User) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET username=?,email=?,first_name=?,last_name=?,role=? WHERE id=?",
		nullString(u.Username), u.Email, nullString(u.FirstName), nullString(u.LastName), u.Role, id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

func (s *UserStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (model.User, error) {
	var (
		u                     model.User
		username, first, last sql.NullString
	)
	if err := row.Scan(&u.ID, &username, &u.Email, &first, &last, &u.Role); err != nil {
		return model.User{}, err
	}
	u.Username, u.FirstName, u.LastName = username.String, first.String, last.String
	return u, nil
}

// CredentialsStore mirrors the 'user_credentials' table.
type CredentialsStore struct{ db *sql.DB }

func (s *CredentialsStore) Create(ctx context.Context, c model.UserCredentials) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_credentials (id,user_id,password) VALUES (?,?,?)",
		c.ID, c.UserID, c.Password)
	return translate(err)
}

func (s *CredentialsStore) FindByUserID(ctx context.Context, userID string) (model.UserCredentials, error) {
	var c model.UserCredentials
	err := s.db.QueryRowContext(ctx,
		"SELECT id,user_id,password FROM user_credentials WHERE user_id=? LIMIT 1",
		userID).Scan(&c.ID, &c.UserID, &c.Password)
	if err != nil {
		return model.UserCredentials{}, translate(err)
	}
	return c, nil
}

// TokenStore mirrors the 'refresh_tokens' table.
type TokenStore struct{ db *sql.DB }

func (s *TokenStore) Create(ctx context.Context, t model.RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id,user_id,refresh_token) VALUES (?,?,?)",
		t.ID, t.UserID, t.RefreshToken)
	return translate(err)
}

func (s *TokenStore) FindByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := s.db.QueryRowContext(ctx,
		"SELECT id,user_id,refresh_token FROM refresh_tokens WHERE refresh_token=? LIMIT 1",
		token).Scan(&t.ID, &t.UserID, &t.RefreshToken)
	if err != nil {
		return model.RefreshToken{}, translate(err)
	}
	return t, nil
}
