package metadb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrMetaNotSet is returned when no head has ever been recorded.
var ErrMetaNotSet = errors.New("metadb: head not set")

// GetHead returns the name of the currently checked-out branch. The meta
// table is a singleton log; the row with the highest id wins.
func (db *DB) GetHead() (string, error) {
	row := db.conn.QueryRow(`SELECT head FROM meta ORDER BY id DESC LIMIT 1`)
	var head string
	err := row.Scan(&head)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrMetaNotSet
	}
	if err != nil {
		return "", fmt.Errorf("metadb: get head: %w", err)
	}
	return head, nil
}

// UpdateHead appends a new meta row pointing head at branchName.
func (db *DB) UpdateHead(branchName string) error {
	if _, err := db.conn.Exec(`INSERT INTO meta (head) VALUES (?)`, branchName); err != nil {
		return fmt.Errorf("metadb: update head: %w", err)
	}
	return nil
}
