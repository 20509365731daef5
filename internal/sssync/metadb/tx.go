package metadb

import (
	"database/sql"
	"fmt"
)

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic from fn (a panic is re-raised after the
// rollback). Used by the commit engine to satisfy spec's
// single-transactional-scope requirement around building a commit.
func (db *DB) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("metadb: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback() //nolint:errcheck // the panic takes precedence
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck // original error takes precedence
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("metadb: commit transaction: %w", err)
	}
	return nil
}

// InsertCommitTx is InsertCommit scoped to an in-flight transaction.
func InsertCommitTx(tx *sql.Tx, c Commit) error {
	var parent any
	if c.HasParent() {
		parent = c.ParentHash
	}
	_, err := tx.Exec(
		`INSERT INTO commits (hash, message, author, created_unix_timestamp, parent_hash)
		 VALUES (?, ?, ?, ?, ?)`,
		c.Hash, c.Message, c.Author, c.CreatedUnixTimestamp, parent,
	)
	if err != nil {
		return fmt.Errorf("metadb: insert commit %s: %w", c.Hash, err)
	}
	return nil
}

// InsertTreeBatchTx is InsertTreeBatch scoped to an in-flight transaction.
func InsertTreeBatchTx(tx *sql.Tx, files []TreeFile) error {
	if len(files) == 0 {
		return nil
	}
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
	return nil
}

// UpsertReferenceTx is UpsertReference scoped to an in-flight transaction.
func UpsertReferenceTx(tx *sql.Tx, r Reference) error {
	_, err := tx.Exec(
		`INSERT INTO refs (name, kind, hash, remote) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name, kind, remote) DO UPDATE SET hash = excluded.hash`,
		r.Name, r.Kind, r.Hash, nullableRemote(r.Remote),
	)
	if err != nil {
		return fmt.Errorf("metadb: upsert reference %s: %w", r.Name, err)
	}
	return nil
}

// ClearStagingTx is ClearStaging scoped to an in-flight transaction.
func ClearStagingTx(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM staging`); err != nil {
		return fmt.Errorf("metadb: clear staging: %w", err)
	}
	return nil
}
