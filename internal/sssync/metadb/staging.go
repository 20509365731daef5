package metadb

import (
	"database/sql"
	"fmt"
)

// InsertStagedChange upserts a staged change by path: re-staging a path
// (e.g. re-running add) replaces the prior record.
func (db *DB) InsertStagedChange(c StagedChange) error {
	var fileHash, sizeBytes, modTime any
	if c.Kind == StagingAddition {
		fileHash = c.FileHash
		sizeBytes = c.SizeBytes
		modTime = c.ModifiedTimeSeconds
	}
	_, err := db.conn.Exec(
		`INSERT INTO staging (path, kind, file_hash, size_bytes, modified_time_seconds)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			file_hash = excluded.file_hash,
			size_bytes = excluded.size_bytes,
			modified_time_seconds = excluded.modified_time_seconds`,
		c.Path, c.Kind, fileHash, sizeBytes, modTime,
	)
	if err != nil {
		return fmt.Errorf("metadb: insert staged change %s: %w", c.Path, err)
	}
	return nil
}

// GetAllStagedChanges returns every row in the staging table.
func (db *DB) GetAllStagedChanges() ([]StagedChange, error) {
	rows, err := db.conn.Query(
		`SELECT path, kind, file_hash, size_bytes, modified_time_seconds FROM staging`,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get staged changes: %w", err)
	}
	defer rows.Close()

	var changes []StagedChange
	for rows.Next() {
		var c StagedChange
		var fileHash sql.NullString
		var sizeBytes, modTime sql.NullInt64
		if err := rows.Scan(&c.Path, &c.Kind, &fileHash, &sizeBytes, &modTime); err != nil {
			return nil, fmt.Errorf("metadb: get staged changes: %w", err)
		}
		c.FileHash = fileHash.String
		c.SizeBytes = sizeBytes.Int64
		c.ModifiedTimeSeconds = modTime.Int64
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// DeleteStagedChange removes the staged record for path, if any.
func (db *DB) DeleteStagedChange(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM staging WHERE path = ?`, path); err != nil {
		return fmt.Errorf("metadb: delete staged change %s: %w", path, err)
	}
	return nil
}

// ClearStaging deletes every row in the staging table.
func (db *DB) ClearStaging() error {
	if _, err := db.conn.Exec(`DELETE FROM staging`); err != nil {
		return fmt.Errorf("metadb: clear staging: %w", err)
	}
	return nil
}
