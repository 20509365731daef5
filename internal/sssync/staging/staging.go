// Package staging implements add and reset: the operations that populate
// and clear the staging area between commits.
package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aconbere/sssync/internal/sssync/hash"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/objstore"
	"github.com/aconbere/sssync/internal/sssync/status"
)

// Add stages every unstaged addition and deletion found under relPath.
// Additions are rehashed from disk (confirming the cheap size-only
// pre-filter Status used) before their blob is copied into the CAS.
func Add(db *metadb.DB, store *objstore.Store, root, relPath string) error {
	s, err := status.New(db, root)
	if err != nil {
		return fmt.Errorf("staging: add: %w", err)
	}

	for _, e := range s.UnstagedAdditionsUnder(relPath) {
		f, err := os.Open(filepath.Join(root, filepath.FromSlash(e.Path)))
		if err != nil {
			return fmt.Errorf("staging: add %s: %w", e.Path, err)
		}
		h, err := hash.Reader(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("staging: add %s: %w", e.Path, err)
		}
		if err := store.InsertFrom(h, filepath.Join(root, filepath.FromSlash(e.Path))); err != nil {
			return fmt.Errorf("staging: add %s: %w", e.Path, err)
		}
		change := metadb.StagedChange{
			Kind: metadb.StagingAddition,
			StagedFile: metadb.StagedFile{
				Path:                e.Path,
				FileHash:            h.String(),
				SizeBytes:           e.SizeBytes,
				ModifiedTimeSeconds: e.ModifiedTimeSeconds,
			},
		}
		if err := db.InsertStagedChange(change); err != nil {
			return fmt.Errorf("staging: add %s: %w", e.Path, err)
		}
	}

	for _, f := range s.UnstagedDeletionsUnder(relPath) {
		change := metadb.StagedChange{Kind: metadb.StagingDeletion, StagedFile: metadb.StagedFile{Path: f.Path}}
		if err := db.InsertStagedChange(change); err != nil {
			return fmt.Errorf("staging: add %s: %w", f.Path, err)
		}
	}

	return nil
}

// Reset clears staging. When hard is true it additionally restores every
// currently-tracked path found among Status's unstaged additions/deletions
// to its tracked blob content, undoing any uncommitted on-disk edit.
func Reset(db *metadb.DB, store *objstore.Store, root string, hard bool) error {
	var restorePaths []string
	if hard {
		s, err := status.New(db, root)
		if err != nil {
			return fmt.Errorf("staging: reset: %w", err)
		}
		restorePaths = s.TrackedPathsOnDiskButUnstaged()

		for _, path := range restorePaths {
			tracked := s.TrackedFiles[path]
			h, err := hash.Parse(tracked.FileHash)
			if err != nil {
				return fmt.Errorf("staging: reset: %w", err)
			}
			if err := store.ExportTo(h, filepath.Join(root, filepath.FromSlash(path))); err != nil {
				return fmt.Errorf("staging: reset: restore %s: %w", path, err)
			}
		}
	}

	if err := db.ClearStaging(); err != nil {
		return fmt.Errorf("staging: reset: %w", err)
	}
	return nil
}
