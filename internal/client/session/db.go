package session

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/avolkov/duochat/internal/client/migrations"
)

// RunMigrations applies the embedded sqlite migrations to the cache db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (or creates) the local cache database and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
