// Package commitengine builds commits: it overlays staged changes onto the
// current HEAD tree, derives the new commit hash, and persists the result.
package commitengine

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/aconbere/sssync/internal/sssync/hash"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/objstore"
)

// ErrNothingToCommit is returned when staging is empty.
var ErrNothingToCommit = errors.New("commitengine: nothing to commit")

// HeadTree loads the currently checked-out branch's tree as a path → entry
// map, or an empty map if the branch has no commits yet.
func HeadTree(db *metadb.DB, branchName string) (map[string]metadb.TreeFile, error) {
	commit, err := db.GetCommitByRefName(branchName)
	if errors.Is(err, metadb.ErrCommitNotFound) || errors.Is(err, metadb.ErrRefNotFound) {
		return map[string]metadb.TreeFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commitengine: head tree: %w", err)
	}

	files, err := db.GetTree(commit.Hash)
	if err != nil {
		return nil, fmt.Errorf("commitengine: head tree: %w", err)
	}
	m := make(map[string]metadb.TreeFile, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m, nil
}

// Commit runs the full commit pipeline (§4.6) for the currently checked-out
// branch: overlay staged changes onto HEAD's tree, copy staged blobs into
// the CAS, derive the new commit hash, and persist commit + tree + ref
// atomically, clearing staging on success.
func Commit(db *metadb.DB, store *objstore.Store, root, branchName, message, author string) (metadb.Commit, error) {
	headTree, err := HeadTree(db, branchName)
	if err != nil {
		return metadb.Commit{}, err
	}
	headCommit, hadHead, err := currentHead(db, branchName)
	if err != nil {
		return metadb.Commit{}, err
	}

	staged, err := db.GetAllStagedChanges()
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("commitengine: %w", err)
	}
	if len(staged) == 0 {
		return metadb.Commit{}, ErrNothingToCommit
	}

	overlay := make(map[string]metadb.TreeFile, len(headTree))
	for path, f := range headTree {
		overlay[path] = f
	}
	for _, c := range staged {
		switch c.Kind {
		case metadb.StagingAddition:
			h, err := hash.Parse(c.FileHash)
			if err != nil {
				return metadb.Commit{}, fmt.Errorf("commitengine: %w", err)
			}
			if err := store.InsertFrom(h, filepath.Join(root, filepath.FromSlash(c.Path))); err != nil {
				return metadb.Commit{}, fmt.Errorf("commitengine: %w", err)
			}
			overlay[c.Path] = metadb.TreeFile{Path: c.Path, FileHash: c.FileHash, SizeBytes: c.SizeBytes}
		case metadb.StagingDeletion:
			delete(overlay, c.Path)
		}
	}

	entries := make([]metadb.TreeFile, 0, len(overlay))
	for _, f := range overlay {
		entries = append(entries, f)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	newHash := hashTree(entries)
	commit := metadb.Commit{
		Hash:                 newHash,
		Message:              message,
		Author:               author,
		CreatedUnixTimestamp: time.Now().Unix(),
	}
	if hadHead {
		commit.ParentHash = headCommit.Hash
	}

	for i := range entries {
		entries[i].CommitHash = newHash
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		if err := metadb.InsertCommitTx(tx, commit); err != nil {
			return err
		}
		if err := metadb.InsertTreeBatchTx(tx, entries); err != nil {
			return err
		}
		if err := metadb.UpsertReferenceTx(tx, metadb.Reference{Name: branchName, Kind: metadb.Branch, Hash: newHash}); err != nil {
			return err
		}
		return metadb.ClearStagingTx(tx)
	})
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("commitengine: %w", err)
	}

	return commit, nil
}

// hashTree derives the commit hash deterministically from entries the
// caller has already sorted by path (Commit sorts them; spec.md §9 Open
// Question 1's resolved choice): their file_hash values are concatenated in
// that order and hashed as one byte string.
func hashTree(entries []metadb.TreeFile) string {
	var buf []byte
	for _, e := range entries {
		buf = append(buf, []byte(e.FileHash)...)
	}
	return hash.Bytes(buf).String()
}

func currentHead(db *metadb.DB, branchName string) (metadb.Commit, bool, error) {
	commit, err := db.GetCommitByRefName(branchName)
	if errors.Is(err, metadb.ErrCommitNotFound) || errors.Is(err, metadb.ErrRefNotFound) {
		return metadb.Commit{}, false, nil
	}
	if err != nil {
		return metadb.Commit{}, false, fmt.Errorf("commitengine: %w", err)
	}
	return commit, true, nil
}
