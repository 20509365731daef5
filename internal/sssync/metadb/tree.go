package metadb

import "fmt"

// InsertTree persists one tree entry.
func (db *DB) InsertTree(f TreeFile) error {
	_, err := db.conn.Exec(
		`INSERT INTO trees (path, file_hash, size_bytes, commit_hash) VALUES (?, ?, ?, ?)`,
		f.Path, f.FileHash, f.SizeBytes, f.CommitHash,
	)
	if err != nil {
		return fmt.Errorf("metadb: insert tree entry %s@%s: %w", f.Path, f.CommitHash, err)
	}
	return nil
}

// InsertTreeBatch persists many tree entries within a single transaction.
func (db *DB) InsertTreeBatch(files []TreeFile) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("metadb: insert tree batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	stmt, err := tx.Prepare(
		`INSERT INTO trees (path, file_hash, size_bytes, commit_hash) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("metadb: insert tree batch: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(f.Path, f.FileHash, f.SizeBytes, f.CommitHash); err != nil {
			return fmt.Errorf("metadb: insert tree batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("metadb: insert tree batch: %w", err)
	}
	return nil
}

// GetTree returns every entry belonging to commitHash (the flattened tree).
func (db *DB) GetTree(commitHash string) ([]TreeFile, error) {
	rows, err := db.conn.Query(
		`SELECT path, file_hash, size_bytes, commit_hash FROM trees WHERE commit_hash = ?`,
		commitHash,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get tree %s: %w", commitHash, err)
	}
	defer rows.Close()
	return scanTreeFiles(rows)
}

// GetTreeByPath returns every historical entry recorded for path, across
// every commit.
func (db *DB) GetTreeByPath(path string) ([]TreeFile, error) {
	rows, err := db.conn.Query(
		`SELECT path, file_hash, size_bytes, commit_hash FROM trees WHERE path = ?`, path,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get tree by path %s: %w", path, err)
	}
	defer rows.Close()
	return scanTreeFiles(rows)
}

// GetAllTrees returns the full trees table, for mirroring into a remote.
func (db *DB) GetAllTrees() ([]TreeFile, error) {
	rows, err := db.conn.Query(`SELECT path, file_hash, size_bytes, commit_hash FROM trees`)
	if err != nil {
		return nil, fmt.Errorf("metadb: get all trees: %w", err)
	}
	defer rows.Close()
	return scanTreeFiles(rows)
}

func scanTreeFiles(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]TreeFile, error) {
	var files []TreeFile
	for rows.Next() {
		var f TreeFile
		if err := rows.Scan(&f.Path, &f.FileHash, &f.SizeBytes, &f.CommitHash); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
