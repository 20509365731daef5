package metadb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRemoteNotFound is returned when a named remote has no row.
var ErrRemoteNotFound = errors.New("metadb: remote not found")

// InsertRemote registers a new named remote.
func (db *DB) InsertRemote(r Remote) error {
	_, err := db.conn.Exec(
		`INSERT INTO remotes (name, kind, location) VALUES (?, ?, ?)`,
		r.Name, r.Kind, r.Location,
	)
	if err != nil {
		return fmt.Errorf("metadb: insert remote %s: %w", r.Name, err)
	}
	return nil
}

// GetRemote looks up a remote by name.
func (db *DB) GetRemote(name string) (Remote, error) {
	row := db.conn.QueryRow(`SELECT name, kind, location FROM remotes WHERE name = ?`, name)
	var r Remote
	err := row.Scan(&r.Name, &r.Kind, &r.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return Remote{}, ErrRemoteNotFound
	}
	if err != nil {
		return Remote{}, fmt.Errorf("metadb: get remote %s: %w", name, err)
	}
	return r, nil
}

// GetAllRemotes returns every configured remote.
func (db *DB) GetAllRemotes() ([]Remote, error) {
	rows, err := db.conn.Query(`SELECT name, kind, location FROM remotes`)
	if err != nil {
		return nil, fmt.Errorf("metadb: get all remotes: %w", err)
	}
	defer rows.Close()

	var remotes []Remote
	for rows.Next() {
		var r Remote
		if err := rows.Scan(&r.Name, &r.Kind, &r.Location); err != nil {
			return nil, fmt.Errorf("metadb: get all remotes: %w", err)
		}
		remotes = append(remotes, r)
	}
	return remotes, rows.Err()
}

// DeleteRemote removes a named remote's row.
func (db *DB) DeleteRemote(name string) error {
	if _, err := db.conn.Exec(`DELETE FROM remotes WHERE name = ?`, name); err != nil {
		return fmt.Errorf("metadb: delete remote %s: %w", name, err)
	}
	return nil
}
