package metadb

import "fmt"

// InsertTransfer creates a single per-blob work item inside a migration.
func (db *DB) InsertTransfer(t Transfer) error {
	_, err := db.conn.Exec(
		`INSERT INTO transfers (migration_id, object_hash, state, kind) VALUES (?, ?, ?, ?)`,
		t.MigrationID, t.ObjectHash, t.State, t.Kind,
	)
	if err != nil {
		return fmt.Errorf("metadb: insert transfer %s: %w", t.ObjectHash, err)
	}
	return nil
}

// SetTransferState transitions a transfer's state.
func (db *DB) SetTransferState(migrationID int64, objectHash string, state TransferState) error {
	_, err := db.conn.Exec(
		`UPDATE transfers SET state = ? WHERE migration_id = ? AND object_hash = ?`,
		state, migrationID, objectHash,
	)
	if err != nil {
		return fmt.Errorf("metadb: set transfer %s state: %w", objectHash, err)
	}
	return nil
}

// GetWaitingForMigration returns every transfer still pending (Waiting or
// Failed — both are re-attempted on restart) for the given migration.
func (db *DB) GetWaitingForMigration(migrationID int64) ([]Transfer, error) {
	rows, err := db.conn.Query(
		`SELECT migration_id, object_hash, state, kind FROM transfers
		 WHERE migration_id = ? AND state IN (?, ?)`,
		migrationID, TransferWaiting, TransferFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get waiting transfers for migration %d: %w", migrationID, err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.MigrationID, &t.ObjectHash, &t.State, &t.Kind); err != nil {
			return nil, fmt.Errorf("metadb: get waiting transfers for migration %d: %w", migrationID, err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// GetAllForMigration returns every transfer belonging to a migration,
// regardless of state.
func (db *DB) GetAllForMigration(migrationID int64) ([]Transfer, error) {
	rows, err := db.conn.Query(
		`SELECT migration_id, object_hash, state, kind FROM transfers WHERE migration_id = ?`,
		migrationID,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: get transfers for migration %d: %w", migrationID, err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.MigrationID, &t.ObjectHash, &t.State, &t.Kind); err != nil {
			return nil, fmt.Errorf("metadb: get transfers for migration %d: %w", migrationID, err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
