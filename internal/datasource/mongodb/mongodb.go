// Package mongodb stores every entity in its own MongoDB collection. Figure
// extension properties are inlined into the figure documents.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/figure-api/internal/repository"
)

// Collection names.
const (
	UsersCollection       = "users"
	CredentialsCollection = "userCredentials"
	FiguresCollection     = "figures"
	TokensCollection      = "refreshTokens"
)

// DB implements repository.Datasource on a mongo database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repository.Datasource = (*DB)(nil)

// Connect dials uri, pings the deployment and makes sure the unique indexes
// exist. Nested documents decode to plain maps so extension properties
// serialize back to clients as JSON objects.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	d := &DB{client: client, db: client.Database(database)}
	if err := d.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return d, nil
}

// New wraps an existing database handle.
func New(db *mongo.Database) *DB { return &DB{client: db.Client(), db: db} }

// EnsureIndexes creates the unique indexes the stores rely on for conflict
// detection.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	unique := func(keys bson.D, sparse bool) mongo.IndexModel {
		o := options.Index().SetUnique(true)
		if sparse {
			o.SetSparse(true)
		}
		return mongo.IndexModel{Keys: keys, Options: o}
	}
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			unique(bson.D{{Key: "email", Value: 1}}, false),
			unique(bson.D{{Key: "username", Value: 1}}, true),
		},
		CredentialsCollection: {unique(bson.D{{Key: "userId", Value: 1}}, false)},
		FiguresCollection:     {{Keys: bson.D{{Key: "userId", Value: 1}}}},
		TokensCollection:      {unique(bson.D{{Key: "refreshToken", Value: 1}}, false)},
	}
	for coll, models := range indexes {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", coll, err)
		}
	}
	return nil
}

func (d *DB) Users() repository.UserStore {
	return &UserStore{coll: d.db.Collection(UsersCollection)}
}

func (d *DB) Credentials() repository.CredentialsStore {
	return &CredentialsStore{coll: d.db.Collection(CredentialsCollection)}
}

func (d *DB) Figures() repository.FigureStore {
	return &FigureStore{coll: d.db.Collection(FiguresCollection)}
}

func (d *DB) Tokens() repository.TokenStore {
	return &TokenStore{coll: d.db.Collection(TokensCollection)}
}

func (d *DB) Close(ctx context.Context) error { return d.client.Disconnect(ctx) }

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	default:
		return err
	}
}

// toFilter converts a where clause to a bson filter. "id" addresses _id.
// A non-nil allowed set restricts the accepted keys.
func toFilter(coll string, where repository.Where, allowed map[string]bool) (bson.M, error) {
	filter := bson.M{}
	for k, v := range where {
		if allowed != nil && !allowed[k] {
			return nil, fmt.Errorf("%w: %s.%s", repository.ErrUnknownField, coll, k)
		}
		if k == "id" {
			k = "_id"
		}
		filter[k] = v
	}
	return filter, nil
}

func byID(id string) bson.M { return bson.M{"_id": id} }

func matched(res *mongo.UpdateResult) error {
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
