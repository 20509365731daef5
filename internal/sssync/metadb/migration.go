package metadb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrMigrationNotFound is returned when a migration id has no row.
var ErrMigrationNotFound = errors.New("metadb: migration not found")

// InsertMigration persists a new migration row and returns its assigned id.
func (db *DB) InsertMigration(m Migration) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO migrations (kind, remote_name, remote_kind, remote_location, state)
		 VALUES (?, ?, ?, ?, ?)`,
		m.Kind, m.RemoteName, m.RemoteKind, m.RemoteLocation, m.State,
	)
	if err != nil {
		return 0, fmt.Errorf("metadb: insert migration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("metadb: insert migration: %w", err)
	}
	return id, nil
}

// SetMigrationState transitions a migration's state.
func (db *DB) SetMigrationState(id int64, state MigrationState) error {
	res, err := db.conn.Exec(`UPDATE migrations SET state = ? WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("metadb: set migration %d state: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadb: set migration %d state: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("metadb: set migration %d state: %w", id, ErrMigrationNotFound)
	}
	return nil
}

// GetMigration looks up a migration by id.
func (db *DB) GetMigration(id int64) (Migration, error) {
	row := db.conn.QueryRow(
		`SELECT id, kind, remote_name, remote_kind, remote_location, state
		 FROM migrations WHERE id = ?`, id,
	)
	var m Migration
	err := row.Scan(&m.ID, &m.Kind, &m.RemoteName, &m.RemoteKind, &m.RemoteLocation, &m.State)
	if errors.Is(err, sql.ErrNoRows) {
		return Migration{}, ErrMigrationNotFound
	}
	if err != nil {
		return Migration{}, fmt.Errorf("metadb: get migration %d: %w", id, err)
	}
	return m, nil
}

// GetAllMigrations returns every migration row, oldest first.
func (db *DB) GetAllMigrations() ([]Migration, error) {
	rows, err := db.conn.Query(
		`SELECT id, kind, remote_name, remote_kind, remote_location, state
		 FROM migrations ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get all migrations: %w", err)
	}
	defer rows.Close()

	var migrations []Migration
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.ID, &m.Kind, &m.RemoteName, &m.RemoteKind, &m.RemoteLocation, &m.State); err != nil {
			return nil, fmt.Errorf("metadb: get all migrations: %w", err)
		}
		migrations = append(migrations, m)
	}
	return migrations, rows.Err()
}
