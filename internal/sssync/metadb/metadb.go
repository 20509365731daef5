// Package metadb is the durable relational store of refs, commits, trees,
// staging, remotes, migrations, and transfers. The same schema backs both
// the local database and opened remote-mirror databases.
package metadb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a single SQLite connection carrying the sssync schema.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the database file at path and brings
// its schema up to the latest migration.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("metadb: open %s: %w", path, err)
	}
	// The core is single-writer; one connection avoids SQLite's
	// database-is-locked errors under concurrent goroutines.
	conn.SetMaxOpenConns(1)

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, migrationsFS)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("metadb: open %s: %w", path, err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metadb: migrate %s: %w", path, err)
	}

	return &DB{conn: conn}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying *sql.DB for components (staging, commit,
// tree, ...) implemented as free functions operating on a shared handle.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
