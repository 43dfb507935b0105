package db

import (
	"context"

	"github.com/go-pg/pg/v10"
)

// DB wraps a go-pg database connection.
type DB struct {
	*pg.DB
}

// New returns a DB wrapper around an established connection.
func New(db *pg.DB) DB {
	return DB{DB: db}
}

// Ping checks that the database is reachable.
func (db DB) Ping(ctx context.Context) error {
	_, err := db.ExecContext(ctx, "SELECT 1")
	return err
}

// Version returns the PostgreSQL server version string.
func (db DB) Version(ctx context.Context) (string, error) {
	var v string
	_, err := db.QueryOneContext(ctx, pg.Scan(&v), "SELECT version()")
	return v, err
}
