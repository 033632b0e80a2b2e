// Package store opens the device-side SQLite database, applies embedded
// migrations and hands out repositories bound to the database or to a
// transaction. A Store is created once per process and closed on shutdown.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/recipelab/internal/client/migrations"
	"github.com/dmitrijs2005/recipelab/internal/client/repositories/favorites"
	"github.com/dmitrijs2005/recipelab/internal/client/repositories/recipes"
	"github.com/dmitrijs2005/recipelab/internal/client/repositories/settings"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories groups the local repositories bound to one DBTX.
type Repositories struct {
	Recipes   recipes.Repository
	Favorites favorites.Repository
	Settings  settings.Repository
}

// Bind returns repositories that run their statements on db.
func Bind(db dbx.DBTX) *Repositories {
	return &Repositories{
		Recipes:   recipes.NewSQLiteRepository(db),
		Favorites: favorites.NewSQLiteRepository(db),
		Settings:  settings.NewSQLiteRepository(db),
	}
}

type Store struct {
	*Repositories
	db *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens the database at dsn and brings its schema up to date.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// one writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return &Store{Repositories: Bind(db), db: db}, nil
}

// WithTx runs fn with repositories bound to one transaction. fn must not use
// the Store's own repositories: the pool holds a single connection.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, Bind(tx))
	})
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
