// Package history implements the shared-ancestor search, commit-range
// slicing, and fast-forward checks used by merge, rebase, and push.
package history

import (
	"errors"
	"fmt"

	"github.com/aconbere/sssync/internal/sssync/metadb"
)

// ErrNoSharedParent is returned when two commit lists share no ancestor.
var ErrNoSharedParent = errors.New("history: no shared parent")

// GetSharedParent walks l and r — both ordered newest-first, contiguous
// through parent links — from their tails inward, returning the last hash
// at which they agree. Fails if the tails themselves disagree.
func GetSharedParent(l, r []metadb.Commit) (string, error) {
	if len(l) == 0 || len(r) == 0 {
		return "", fmt.Errorf("history: get shared parent: %w", ErrNoSharedParent)
	}
	if l[len(l)-1].Hash != r[len(r)-1].Hash {
		return "", fmt.Errorf("history: get shared parent: %w", ErrNoSharedParent)
	}

	li, ri := len(l)-1, len(r)-1
	shared := l[li].Hash
	for li >= 0 && ri >= 0 && l[li].Hash == r[ri].Hash {
		shared = l[li].Hash
		li--
		ri--
	}
	return shared, nil
}

// CommitsSince returns the prefix of haystack strictly before the first
// entry whose hash equals needle.
func CommitsSince(haystack []metadb.Commit, needle string) []metadb.Commit {
	for i, c := range haystack {
		if c.Hash == needle {
			return haystack[:i]
		}
	}
	return haystack
}

// Divergence is the result of diffing two commit lists against their shared
// parent: the commits unique to each side, both ordered newest-first.
type Divergence struct {
	SharedParent string
	Left         []metadb.Commit
	Right        []metadb.Commit
}

// DiffCommitList finds the shared parent of l and r and slices off the
// commits unique to each side.
func DiffCommitList(l, r []metadb.Commit) (Divergence, error) {
	shared, err := GetSharedParent(l, r)
	if err != nil {
		return Divergence{}, err
	}
	return Divergence{
		SharedParent: shared,
		Left:         CommitsSince(l, shared),
		Right:        CommitsSince(r, shared),
	}, nil
}

// DiffCommitListLeft is the left side of DiffCommitList: the commits unique
// to l. It fails only when both sides are empty ("no differences"); a
// non-empty right side is not itself an error — callers decide whether that
// constitutes a fast-forward violation.
func DiffCommitListLeft(l, r []metadb.Commit) ([]metadb.Commit, error) {
	div, err := DiffCommitList(l, r)
	if err != nil {
		return nil, err
	}
	if len(div.Left) == 0 && len(div.Right) == 0 {
		return nil, errors.New("history: diff commit list left: no differences")
	}
	return div.Left, nil
}
