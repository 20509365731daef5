package metadb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrCommitNotFound is returned when a lookup by hash finds no row.
var ErrCommitNotFound = errors.New("metadb: commit not found")

// InsertCommit persists a new, immutable commit row.
func (db *DB) InsertCommit(c Commit) error {
	var parent any
	if c.HasParent() {
		parent = c.ParentHash
	}
	_, err := db.conn.Exec(
		`INSERT INTO commits (hash, message, author, created_unix_timestamp, parent_hash)
		 VALUES (?, ?, ?, ?, ?)`,
		c.Hash, c.Message, c.Author, c.CreatedUnixTimestamp, parent,
	)
	if err != nil {
		return fmt.Errorf("metadb: insert commit %s: %w", c.Hash, err)
	}
	return nil
}

// GetCommit looks up a commit by hash.
func (db *DB) GetCommit(hash string) (Commit, error) {
	row := db.conn.QueryRow(
		`SELECT hash, message, author, created_unix_timestamp, parent_hash
		 FROM commits WHERE hash = ?`, hash,
	)
	return scanCommit(row)
}

// GetCommitByRefName resolves name (local branch ref) to its commit.
func (db *DB) GetCommitByRefName(name string) (Commit, error) {
	row := db.conn.QueryRow(
		`SELECT c.hash, c.message, c.author, c.created_unix_timestamp, c.parent_hash
		 FROM commits c
		 JOIN refs r ON r.hash = c.hash
		 WHERE r.name = ? AND r.kind = ? AND r.remote IS NULL`,
		name, Branch,
	)
	return scanCommit(row)
}

// GetChildren returns the linear parent chain beginning at headHash,
// newest first, following parent_hash recursively.
func (db *DB) GetChildren(headHash string) ([]Commit, error) {
	rows, err := db.conn.Query(
		`WITH RECURSIVE log(hash, message, author, created_unix_timestamp, parent_hash) AS (
			SELECT hash, message, author, created_unix_timestamp, parent_hash
			FROM commits WHERE hash = ?
			UNION ALL
			SELECT c.hash, c.message, c.author, c.created_unix_timestamp, c.parent_hash
			FROM commits c
			JOIN log ON c.hash = log.parent_hash
		 )
		 SELECT hash, message, author, created_unix_timestamp, parent_hash FROM log`,
		headHash,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get children of %s: %w", headHash, err)
	}
	defer rows.Close()

	var commits []Commit
	for rows.Next() {
		c, err := scanCommitRows(rows)
		if err != nil {
			return nil, fmt.Errorf("metadb: get children of %s: %w", headHash, err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadb: get children of %s: %w", headHash, err)
	}
	return commits, nil
}

// GetAllCommits returns every commit row, in no particular order.
func (db *DB) GetAllCommits() ([]Commit, error) {
	rows, err := db.conn.Query(
		`SELECT hash, message, author, created_unix_timestamp, parent_hash FROM commits`,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get all commits: %w", err)
	}
	defer rows.Close()

	var commits []Commit
	for rows.Next() {
		c, err := scanCommitRows(rows)
		if err != nil {
			return nil, fmt.Errorf("metadb: get all commits: %w", err)
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommit(row *sql.Row) (Commit, error) {
	var c Commit
	var parent sql.NullString
	err := row.Scan(&c.Hash, &c.Message, &c.Author, &c.CreatedUnixTimestamp, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return Commit{}, ErrCommitNotFound
	}
	if err != nil {
		return Commit{}, err
	}
	c.ParentHash = parent.String
	return c, nil
}

func scanCommitRows(rows rowScanner) (Commit, error) {
	var c Commit
	var parent sql.NullString
	if err := rows.Scan(&c.Hash, &c.Message, &c.Author, &c.CreatedUnixTimestamp, &parent); err != nil {
		return Commit{}, err
	}
	c.ParentHash = parent.String
	return c, nil
}
