package metadb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRefNotFound is returned when a reference lookup finds no row.
var ErrRefNotFound = errors.New("metadb: reference not found")

func nullableRemote(remote string) any {
	if remote == "" {
		return nil
	}
	return remote
}

// InsertReference creates a new named pointer.
func (db *DB) InsertReference(r Reference) error {
	_, err := db.conn.Exec(
		`INSERT INTO refs (name, kind, hash, remote) VALUES (?, ?, ?, ?)`,
		r.Name, r.Kind, r.Hash, nullableRemote(r.Remote),
	)
	if err != nil {
		return fmt.Errorf("metadb: insert reference %s: %w", r.Name, err)
	}
	return nil
}

// UpdateReference moves an existing reference to point at a new hash.
func (db *DB) UpdateReference(r Reference) error {
	res, err := db.conn.Exec(
		`UPDATE refs SET hash = ? WHERE name = ? AND kind = ? AND remote IS ?`,
		r.Hash, r.Name, r.Kind, nullableRemote(r.Remote),
	)
	if err != nil {
		return fmt.Errorf("metadb: update reference %s: %w", r.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("metadb: update reference %s: %w", r.Name, err)
	}
	if n == 0 {
		return fmt.Errorf("metadb: update reference %s: %w", r.Name, ErrRefNotFound)
	}
	return nil
}

// UpsertReference inserts r, or updates it in place if it already exists.
// Used by callers (branch switch/set, merge) that don't need to distinguish
// "new branch" from "move existing branch".
func (db *DB) UpsertReference(r Reference) error {
	_, err := db.conn.Exec(
		`INSERT INTO refs (name, kind, hash, remote) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name, kind, remote) DO UPDATE SET hash = excluded.hash`,
		r.Name, r.Kind, r.Hash, nullableRemote(r.Remote),
	)
	if err != nil {
		return fmt.Errorf("metadb: upsert reference %s: %w", r.Name, err)
	}
	return nil
}

// GetReference looks up a single reference by its full key.
func (db *DB) GetReference(name string, kind RefKind, remote string) (Reference, error) {
	row := db.conn.QueryRow(
		`SELECT name, kind, hash, remote FROM refs WHERE name = ? AND kind = ? AND remote IS ?`,
		name, kind, nullableRemote(remote),
	)
	var r Reference
	var nullRemote sql.NullString
	err := row.Scan(&r.Name, &r.Kind, &r.Hash, &nullRemote)
	if errors.Is(err, sql.ErrNoRows) {
		return Reference{}, ErrRefNotFound
	}
	if err != nil {
		return Reference{}, fmt.Errorf("metadb: get reference %s: %w", name, err)
	}
	r.Remote = nullRemote.String
	return r, nil
}

// GetAllReferencesByKind returns every reference of the given kind, local
// and remote alike.
func (db *DB) GetAllReferencesByKind(kind RefKind) ([]Reference, error) {
	rows, err := db.conn.Query(`SELECT name, kind, hash, remote FROM refs WHERE kind = ?`, kind)
	if err != nil {
		return nil, fmt.Errorf("metadb: get references by kind %s: %w", kind, err)
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var r Reference
		var nullRemote sql.NullString
		if err := rows.Scan(&r.Name, &r.Kind, &r.Hash, &nullRemote); err != nil {
			return nil, fmt.Errorf("metadb: get references by kind %s: %w", kind, err)
		}
		r.Remote = nullRemote.String
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
