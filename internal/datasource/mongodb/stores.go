package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

var userFields = map[string]bool{
	"id": true, "username": true, "email": true, "firstName": true, "lastName": true, "role": true,
}

// UserStore is backed by the users collection.
type UserStore struct{ coll *mongo.Collection }

func (s *UserStore) Create(ctx context.Context, u model.User) error {
	_, err := s.coll.InsertOne(ctx, u)
	return translate(err)
}

func (s *UserStore) Find(ctx context.Context, where repository.Where) ([]model.User, error) {
	filter, err := toFilter(UsersCollection, where, userFields)
	if err != nil {
		return nil, err
	}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []model.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&u); err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

func (s *UserStore) ReplaceByID(ctx context.Context, id string, u model.User) error {
	u.ID = id
	res, err := s.coll.ReplaceOne(ctx, byID(id), u)
	if err != nil {
		return translate(err)
	}
	return matched(res)
}

func (s *UserStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CredentialsStore is backed by the userCredentials collection.
type CredentialsStore struct{ coll *mongo.Collection }

func (s *CredentialsStore) Create(ctx context.Context, c model.UserCredentials) error {
	_, err := s.coll.InsertOne(ctx, c)
	return translate(err)
}

func (s *CredentialsStore) FindByUserID(ctx context.Context, userID string) (model.UserCredentials, error) {
	var c model.UserCredentials
	if err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&c); err != nil {
		return model.UserCredentials{}, translate(err)
	}
	return c, nil
}

// FigureStore is backed by the figures collection. Any key, including
// extension properties, may appear in a where clause.
type FigureStore struct{ coll *mongo.Collection }

func (s *FigureStore) Create(ctx context.Context, f model.Figure) error {
	f.Extra = model.SanitizeExtra(f.Extra)
	_, err := s.coll.InsertOne(ctx, f)
	return translate(err)
}

func (s *FigureStore) Find(ctx context.Context, where repository.Where) ([]model.Figure, error) {
	filter, err := toFilter(FiguresCollection, where, nil)
	if err != nil {
		return nil, err
	}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []model.Figure{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FigureStore) FindByID(ctx context.Context, id string) (model.Figure, error) {
	var f model.Figure
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&f); err != nil {
		return model.Figure{}, translate(err)
	}
	return f, nil
}

// UpdateByID $sets the patched fields. An empty patch only checks that the
// figure exists. Extension names that $set would read as a path or operator
// are rejected.
func (s *FigureStore) UpdateByID(ctx context.Context, id string, patch model.FigurePatch) error {
	if patch.IsEmpty() {
		_, err := s.FindByID(ctx, id)
		return err
	}
	for k := range patch.Extra {
		if err := model.CheckExtraKey(k); err != nil {
			return fmt.Errorf("%w: figures.%s", repository.ErrUnknownField, k)
		}
	}
	res, err := s.coll.UpdateOne(ctx, byID(id), bson.M{"$set": patch.Fields()})
	if err != nil {
		return translate(err)
	}
	return matched(res)
}

func (s *FigureStore) ReplaceByID(ctx context.Context, id string, f model.Figure) error {
	f.ID = id
	f.Extra = model.SanitizeExtra(f.Extra)
	res, err := s.coll.ReplaceOne(ctx, byID(id), f)
	if err != nil {
		return translate(err)
	}
	return matched(res)
}

func (s *FigureStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// TokenStore is backed by the refreshTokens collection.
type TokenStore struct{ coll *mongo.Collection }

func (s *TokenStore) Create(ctx context.Context, t model.RefreshToken) error {
	_, err := s.coll.InsertOne(ctx, t)
	return translate(err)
}

func (s *TokenStore) FindByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	var t model.RefreshToken
	if err := s.coll.FindOne(ctx, bson.M{"refreshToken": token}).Decode(&t); err != nil {
		return model.RefreshToken{}, translate(err)
	}
	return t, nil
}
