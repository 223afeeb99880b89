// Package mysql stores users, credentials, figures and refresh tokens in
// MySQL. The schema is embedded and applied with goose.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"

	"github.com/iliyamo/figure-api/internal/datasource/mysql/migrations"
	"github.com/iliyamo/figure-api/internal/repository"
)

// Options are the connection settings read from DB_* variables.
type Options struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// DSN builds the driver data source name. clientFoundRows makes UPDATE report
// matched rows, so an update that changes nothing is not mistaken for a
// missing id.
func (o Options) DSN() string {
	auth := o.User
	if o.Pass != "" {
		auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, o.Host, o.Port, o.Name)
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// DB implements repository.Datasource on a *sql.DB.
type DB struct {
	db *sql.DB
}

var _ repository.Datasource = (*DB)(nil)

func New(db *sql.DB) *DB { return &DB{db: db} }

func (d *DB) Users() repository.UserStore              { return &UserStore{db: d.db} }
func (d *DB) Credentials() repository.CredentialsStore { return &CredentialsStore{db: d.db} }
func (d *DB) Figures() repository.FigureStore          { return &FigureStore{db: d.db} }
func (d *DB) Tokens() repository.TokenStore            { return &TokenStore{db: d.db} }
func (d *DB) Close(context.Context) error              { return d.db.Close() }

const errDuplicateEntry = 1062

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var me *gomysql.MySQLError
	if errors.As(err, &me) && me.Number == errDuplicateEntry {
		return fmt.Errorf("%w: %s", repository.ErrConflict, me.Message)
	}
	return err
}

// affected turns a zero row count into ErrNotFound.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
