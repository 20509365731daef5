// Package syncops implements merge and rebase: the two ways a local branch
// is reconciled with a source branch that has diverged (§4.11).
package syncops

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aconbere/sssync/internal/sssync/hash"
	"github.com/aconbere/sssync/internal/sssync/history"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/objstore"
	"github.com/aconbere/sssync/internal/sssync/treediff"
)

// ErrNotFastForward is returned by Merge when the local branch has commits
// the source does not: the caller must rebase first.
var ErrNotFastForward = errors.New("syncops: merge requires local to be an ancestor of source (not fast-forward)")

// Merge fast-forwards localBranchName's ref (in localDB, the current HEAD
// branch) to match sourceBranchName's head, found in sourceDB (the local
// database itself for a local branch-to-branch merge, or a fetched remote
// mirror database for `merge --remote`, where sourceBranchName conventionally
// names the same branch as localBranchName). It requires the local branch
// to be a prefix of the source's history; callers must check for
// uncommitted changes before calling this (§4.11 step 1 is the caller's
// working-tree check, not this function's).
func Merge(localDB, sourceDB *metadb.DB, store *objstore.Store, root, localBranchName, sourceBranchName string) (metadb.Commit, error) {
	localHead, err := localDB.GetCommitByRefName(localBranchName)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: local head: %w", err)
	}
	localCommits, err := localDB.GetChildren(localHead.Hash)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
	}

	sourceHead, err := sourceDB.GetCommitByRefName(sourceBranchName)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: source head: %w", err)
	}
	sourceCommits, err := sourceDB.GetChildren(sourceHead.Hash)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
	}

	div, err := history.DiffCommitList(localCommits, sourceCommits)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
	}
	if len(div.Left) != 0 {
		return metadb.Commit{}, ErrNotFastForward
	}

	// sourceDB may be a remote mirror distinct from localDB; import the
	// commits unique to it (and their tree rows) so the local database can
	// resolve every hash the new tree diff touches.
	if sourceDB != localDB {
		if err := metadb.ImportCommits(localDB, sourceDB, div.Right); err != nil {
			return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
		}
	}

	currentTree, err := localDB.GetTree(localHead.Hash)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
	}
	sourceTree, err := localDB.GetTree(sourceHead.Hash)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
	}

	diff := treediff.New(currentTree, sourceTree)
	if err := treediff.Apply(diff, store, root); err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
	}

	if err := localDB.UpsertReference(metadb.Reference{Name: localBranchName, Kind: metadb.Branch, Hash: sourceHead.Hash}); err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: merge: %w", err)
	}

	return sourceHead, nil
}

// Rebase replays the local commits unique to branchName (since its shared
// parent with sourceHead) onto sourceHead, one new commit per original,
// then applies the accumulated tree diff to the working tree and moves the
// branch ref to the tip of the replayed chain.
func Rebase(db *metadb.DB, store *objstore.Store, root, branchName string, sourceHead metadb.Commit) (metadb.Commit, error) {
	localHead, err := db.GetCommitByRefName(branchName)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: rebase: local head: %w", err)
	}
	localCommits, err := db.GetChildren(localHead.Hash)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
	}
	sourceCommits, err := db.GetChildren(sourceHead.Hash)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
	}

	left, err := history.DiffCommitListLeft(localCommits, sourceCommits)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
	}

	parent := sourceHead
	combined := treediff.Empty()

	// left is newest-first; replay oldest-first so parent chains build up
	// in the order the commits were originally made.
	for i := len(left) - 1; i >= 0; i-- {
		c := left[i]

		d, err := treediff.DiffParent(db, c)
		if err != nil {
			return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
		}
		combined, err = treediff.Compose(combined, d)
		if err != nil {
			return metadb.Commit{}, fmt.Errorf("syncops: rebase: replay %s: %w", c.Hash, err)
		}

		newHash := hashDiffState(combined)
		replayed := metadb.Commit{
			Hash:                 newHash,
			Message:              c.Message,
			Author:               c.Author,
			CreatedUnixTimestamp: time.Now().Unix(),
			ParentHash:           parent.Hash,
		}
		if err := db.InsertCommit(replayed); err != nil {
			return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
		}

		tree, err := rebuildTree(db, parent, d)
		if err != nil {
			return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
		}
		for i := range tree {
			tree[i].CommitHash = newHash
		}
		if err := db.InsertTreeBatch(tree); err != nil {
			return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
		}

		parent = replayed
	}

	if err := db.UpsertReference(metadb.Reference{Name: branchName, Kind: metadb.Branch, Hash: parent.Hash}); err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
	}

	if err := treediff.Apply(combined, store, root); err != nil {
		return metadb.Commit{}, fmt.Errorf("syncops: rebase: %w", err)
	}

	return parent, nil
}

// rebuildTree applies d on top of parent's tree, producing the tree row set
// for the commit being replayed in front of parent.
func rebuildTree(db *metadb.DB, parent metadb.Commit, d treediff.Diff) ([]metadb.TreeFile, error) {
	base, err := db.GetTree(parent.Hash)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]metadb.TreeFile, len(base))
	for _, f := range base {
		byPath[f.Path] = f
	}
	for _, f := range d.Additions {
		byPath[f.Path] = f
	}
	for _, f := range d.Changes {
		byPath[f.Path] = f
	}
	for _, f := range d.Deletions {
		delete(byPath, f.Path)
	}
	out := make([]metadb.TreeFile, 0, len(byPath))
	for _, f := range byPath {
		out = append(out, f)
	}
	return out, nil
}

// hashDiffState derives new_hash per §4.11 step 4c: hash the current
// combined diff's additions ∪ changes. Grounded on the same path-sorted
// concatenation commitengine.hashTree uses for the analogous commit-hash
// derivation.
func hashDiffState(d treediff.Diff) string {
	all := append(append([]metadb.TreeFile{}, d.Additions...), d.Changes...)
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	var buf []byte
	for _, f := range all {
		buf = append(buf, []byte(f.FileHash)...)
	}
	return hash.Bytes(buf).String()
}
