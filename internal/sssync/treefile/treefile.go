// Package treefile implements the IntermediateTree tagged variant: a single
// "file-like" shape shared by a staged change and a committed tree entry,
// used wherever the rest of the engine needs to reason about a set of
// {path, file_hash, size_bytes} records without caring which table they
// came from (commit-tree assembly, tree diffing).
package treefile

import (
	"github.com/aconbere/sssync/internal/sssync/metadb"
)

// Kind distinguishes which underlying record an IntermediateTree wraps.
type Kind int

const (
	// Staged wraps a StagedFile pending commit.
	Staged Kind = iota
	// Committed wraps a TreeFile already persisted against a commit.
	Committed
)

// IntermediateTree is one file-like entry: a path mapped to content.
type IntermediateTree struct {
	Kind      Kind
	Path      string
	FileHash  string
	SizeBytes int64
}

// FromStaged wraps a staged addition.
func FromStaged(sf metadb.StagedFile) IntermediateTree {
	return IntermediateTree{Kind: Staged, Path: sf.Path, FileHash: sf.FileHash, SizeBytes: sf.SizeBytes}
}

// FromCommitted wraps a persisted tree entry.
func FromCommitted(tf metadb.TreeFile) IntermediateTree {
	return IntermediateTree{Kind: Committed, Path: tf.Path, FileHash: tf.FileHash, SizeBytes: tf.SizeBytes}
}

// ToTreeFile renders the entry as a TreeFile stamped with commitHash. Used
// by the commit engine once a new commit.hash has been computed.
func (t IntermediateTree) ToTreeFile(commitHash string) metadb.TreeFile {
	return metadb.TreeFile{Path: t.Path, FileHash: t.FileHash, SizeBytes: t.SizeBytes, CommitHash: commitHash}
}

// Set is a collection of IntermediateTree entries with the two indexes
// spec.md's tree-diff algorithm needs: by path (unique key) and by content
// hash (a multiset — two files may share identical content).
type Set []IntermediateTree

// ByPath indexes the set by path, last entry wins on duplicate paths.
func (s Set) ByPath() map[string]IntermediateTree {
	m := make(map[string]IntermediateTree, len(s))
	for _, e := range s {
		m[e.Path] = e
	}
	return m
}

// HashCounts returns, for every distinct file_hash present, how many
// entries carry it — the multiset spec.md §4.9 builds H_O/H_N from.
func (s Set) HashCounts() map[string]int {
	counts := make(map[string]int, len(s))
	for _, e := range s {
		counts[e.FileHash]++
	}
	return counts
}

// ContainsHash reports whether any entry in the set carries hash.
func (s Set) ContainsHash(hash string) bool {
	for _, e := range s {
		if e.FileHash == hash {
			return true
		}
	}
	return false
}
