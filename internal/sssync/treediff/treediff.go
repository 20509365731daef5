// Package treediff implements the set-algebraic diff between two trees
// (additions/changes/deletions), its composition, and its application to a
// working tree.
package treediff

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aconbere/sssync/internal/sssync/hash"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/objstore"
)

// ErrConflictingCompose is returned when composing a ⊕ b finds that b
// changes a path a already deleted.
var ErrConflictingCompose = errors.New("treediff: later change was deleted in earlier diff")

// Diff is the triple (additions, changes, deletions) oriented older → newer.
type Diff struct {
	Additions []metadb.TreeFile
	Changes   []metadb.TreeFile
	Deletions []metadb.TreeFile
}

// Empty is the identity element for Compose.
func Empty() Diff {
	return Diff{}
}

// New builds the diff that transitions the tree described by older into the
// tree described by newer, per spec: an entry whose hash doesn't already
// appear in older is positive; a positive entry at a path also present in
// older is a change, otherwise an addition; anything in older whose hash no
// longer appears in newer, and whose path wasn't already claimed by a
// change, is a deletion.
func New(older, newer []metadb.TreeFile) Diff {
	oldByHash := make(map[string]bool, len(older))
	oldByPath := make(map[string]metadb.TreeFile, len(older))
	for _, f := range older {
		oldByHash[f.FileHash] = true
		oldByPath[f.Path] = f
	}
	newByHash := make(map[string]bool, len(newer))
	for _, f := range newer {
		newByHash[f.FileHash] = true
	}

	var additions, changes []metadb.TreeFile
	changedPaths := make(map[string]bool)
	for _, f := range newer {
		if oldByHash[f.FileHash] {
			continue
		}
		if _, ok := oldByPath[f.Path]; ok {
			changes = append(changes, f)
			changedPaths[f.Path] = true
		} else {
			additions = append(additions, f)
		}
	}

	var deletions []metadb.TreeFile
	for _, f := range older {
		if newByHash[f.FileHash] || changedPaths[f.Path] {
			continue
		}
		deletions = append(deletions, f)
	}

	return Diff{Additions: additions, Changes: changes, Deletions: deletions}
}

// Compose returns a ⊕ b: applying a then b, element-wise. An addition from
// a later deleted by b cancels out and is dropped from the result. A
// deletion from a later re-added by b cancels out only if b's content
// matches what a deleted; otherwise the path nets to a change against its
// pre-a content. A change in b against a path a deleted is an error.
func Compose(a, b Diff) (Diff, error) {
	additions := toPathMap(a.Additions)
	changes := toPathMap(a.Changes)
	deletions := toPathMap(a.Deletions)

	for _, c := range b.Changes {
		if _, ok := deletions[c.Path]; ok {
			return Diff{}, fmt.Errorf("treediff: compose %s: %w", c.Path, ErrConflictingCompose)
		}
	}

	for _, d := range b.Deletions {
		if _, ok := additions[d.Path]; ok {
			delete(additions, d.Path)
			continue
		}
		delete(changes, d.Path)
		deletions[d.Path] = d
	}

	for _, ad := range b.Additions {
		if prior, ok := deletions[ad.Path]; ok {
			delete(deletions, ad.Path)
			if prior.FileHash != ad.FileHash {
				changes[ad.Path] = ad
			}
			continue
		}
		if _, ok := changes[ad.Path]; ok {
			changes[ad.Path] = ad
			continue
		}
		additions[ad.Path] = ad
	}

	for _, c := range b.Changes {
		if _, ok := additions[c.Path]; ok {
			additions[c.Path] = c
			continue
		}
		changes[c.Path] = c
	}

	return Diff{
		Additions: fromPathMap(additions),
		Changes:   fromPathMap(changes),
		Deletions: fromPathMap(deletions),
	}, nil
}

func toPathMap(files []metadb.TreeFile) map[string]metadb.TreeFile {
	m := make(map[string]metadb.TreeFile, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m
}

func fromPathMap(m map[string]metadb.TreeFile) []metadb.TreeFile {
	if len(m) == 0 {
		return nil
	}
	files := make([]metadb.TreeFile, 0, len(m))
	for _, f := range m {
		files = append(files, f)
	}
	return files
}

// Apply materializes d against root: additions and changes are exported
// from the blob store to their path, creating parent directories; deletions
// remove the file, tolerating its absence.
func Apply(d Diff, store *objstore.Store, root string) error {
	for _, f := range append(append([]metadb.TreeFile{}, d.Additions...), d.Changes...) {
		h, err := hash.Parse(f.FileHash)
		if err != nil {
			return fmt.Errorf("treediff: apply %s: %w", f.Path, err)
		}
		if err := store.ExportTo(h, filepath.Join(root, filepath.FromSlash(f.Path))); err != nil {
			return fmt.Errorf("treediff: apply %s: %w", f.Path, err)
		}
	}
	for _, f := range d.Deletions {
		path := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("treediff: apply delete %s: %w", f.Path, err)
		}
	}
	return nil
}

// DiffParent is TreeDiff::new(parent.tree, commit.tree); parent.tree = {} if
// commit has no parent.
func DiffParent(db *metadb.DB, commit metadb.Commit) (Diff, error) {
	var older []metadb.TreeFile
	if commit.HasParent() {
		var err error
		older, err = db.GetTree(commit.ParentHash)
		if err != nil {
			return Diff{}, fmt.Errorf("treediff: diff parent of %s: %w", commit.Hash, err)
		}
	}
	newer, err := db.GetTree(commit.Hash)
	if err != nil {
		return Diff{}, fmt.Errorf("treediff: diff parent of %s: %w", commit.Hash, err)
	}
	return New(older, newer), nil
}

// DiffList collapses a commit range (newest first) into a single diff: it
// collects the tree of every commit's parent hash, concatenates them, and
// diffs that combined "older" superset against the newest commit's tree.
func DiffList(db *metadb.DB, commits []metadb.Commit) (Diff, error) {
	if len(commits) == 0 {
		return Diff{}, errors.New("treediff: diff list: empty commit list")
	}

	var older []metadb.TreeFile
	for _, c := range commits {
		if !c.HasParent() {
			continue
		}
		parentFiles, err := db.GetTree(c.ParentHash)
		if err != nil {
			return Diff{}, fmt.Errorf("treediff: diff list: %w", err)
		}
		older = append(older, parentFiles...)
	}

	newer, err := db.GetTree(commits[0].Hash)
	if err != nil {
		return Diff{}, fmt.Errorf("treediff: diff list: %w", err)
	}
	return New(older, newer), nil
}

// Hashes returns the union of FileHash values across additions and changes,
// the set of blobs a transfer for this diff needs to move.
func (d Diff) Hashes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range append(append([]metadb.TreeFile{}, d.Additions...), d.Changes...) {
		if !seen[f.FileHash] {
			seen[f.FileHash] = true
			out = append(out, f.FileHash)
		}
	}
	return out
}
