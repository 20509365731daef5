package metadb

import (
	"fmt"
	"strings"
)

// UpdateRemote copies every commit and tree row from local into remoteMirror
// (ignoring duplicate-key collisions, since both databases may already share
// history) and overwrites remoteMirror's branch ref for branchName to match
// local's current head commit.
func UpdateRemote(local, remoteMirror *DB, branchName string) error {
	commits, err := local.GetAllCommits()
	if err != nil {
		return fmt.Errorf("metadb: update remote: %w", err)
	}
	for _, c := range commits {
		if err := remoteMirror.InsertCommit(c); err != nil {
			// Duplicate hashes are expected whenever histories already
			// overlap; only a non-duplicate failure is fatal.
			if !isUniqueConstraintErr(err) {
				return fmt.Errorf("metadb: update remote: copy commit %s: %w", c.Hash, err)
			}
		}
	}

	trees, err := local.GetAllTrees()
	if err != nil {
		return fmt.Errorf("metadb: update remote: %w", err)
	}
	if err := remoteMirror.InsertTreeBatchIgnoreDuplicates(trees); err != nil {
		return fmt.Errorf("metadb: update remote: %w", err)
	}

	head, err := local.GetReference(branchName, Branch, "")
	if err != nil {
		return fmt.Errorf("metadb: update remote: %w", err)
	}
	if err := remoteMirror.UpsertReference(Reference{Name: branchName, Kind: Branch, Hash: head.Hash}); err != nil {
		return fmt.Errorf("metadb: update remote: %w", err)
	}
	return nil
}

// ImportCommits copies the given commits, and every tree row belonging to
// each, from src into dest, ignoring duplicate-key collisions. Used by
// merge to pull a remote mirror's divergent history into the
// local database before applying a tree diff against it.
func ImportCommits(dest, src *DB, commits []Commit) error {
	for _, c := range commits {
		if err := dest.InsertCommit(c); err != nil && !isUniqueConstraintErr(err) {
			return fmt.Errorf("metadb: import commits: copy commit %s: %w", c.Hash, err)
		}
		files, err := src.GetTree(c.Hash)
		if err != nil {
			return fmt.Errorf("metadb: import commits: %w", err)
		}
		if err := dest.InsertTreeBatchIgnoreDuplicates(files); err != nil {
			return fmt.Errorf("metadb: import commits: %w", err)
		}
	}
	return nil
}

// InsertTreeBatchIgnoreDuplicates is InsertTreeBatch but tolerant of rows
// that already exist (used when mirroring overlapping history into a remote
// or local database).
func (db *DB) InsertTreeBatchIgnoreDuplicates(files []TreeFile) error {
	for _, f := range files {
		existing, err := db.GetTree(f.CommitHash)
		if err != nil {
			return err
		}
		if containsTreeFile(existing, f) {
			continue
		}
		if err := db.InsertTree(f); err != nil {
			return err
		}
	}
	return nil
}

func containsTreeFile(files []TreeFile, f TreeFile) bool {
	for _, existing := range files {
		if existing.Path == f.Path && existing.FileHash == f.FileHash {
			return true
		}
	}
	return false
}

func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
