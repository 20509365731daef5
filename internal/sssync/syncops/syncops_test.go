package syncops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aconbere/sssync/internal/sssync/commitengine"
	"github.com/aconbere/sssync/internal/sssync/hash"
	"github.com/aconbere/sssync/internal/sssync/layout"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/objstore"
)

type fixture struct {
	root  string
	db    *metadb.DB
	store *objstore.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	l, err := layout.Init(root)
	if err != nil {
		t.Fatalf("layout.Init: %v", err)
	}
	db, err := metadb.Open(l.DBPath())
	if err != nil {
		t.Fatalf("metadb.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return fixture{root: root, db: db, store: objstore.New(l)}
}

func (f fixture) stageFile(t *testing.T, path, content string) {
	t.Helper()
	full := filepath.Join(f.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	h := hash.Bytes([]byte(content))
	change := metadb.StagedChange{
		Kind: metadb.StagingAddition,
		StagedFile: metadb.StagedFile{
			Path: path, FileHash: h.String(), SizeBytes: int64(len(content)),
		},
	}
	if err := f.db.InsertStagedChange(change); err != nil {
		t.Fatalf("InsertStagedChange: %v", err)
	}
}

// TestMergeFastForwardLocal covers merge within a single database: the
// source branch is ahead of HEAD with no local-only commits.
func TestMergeFastForwardLocal(t *testing.T) {
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit first: %v", err)
	}
	if err := f.db.UpsertReference(metadb.Reference{Name: "feature", Kind: metadb.Branch, Hash: mustHead(t, f.db, "main")}); err != nil {
		t.Fatalf("UpsertReference: %v", err)
	}

	f.stageFile(t, "b.txt", "world")
	second, err := commitengine.Commit(f.db, f.store, f.root, "feature", "second", "author")
	if err != nil {
		t.Fatalf("Commit second: %v", err)
	}

	merged, err := Merge(f.db, f.db, f.store, f.root, "main", "feature")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Hash != second.Hash {
		t.Fatalf("Merge result = %s, want %s", merged.Hash, second.Hash)
	}

	head, err := f.db.GetCommitByRefName("main")
	if err != nil {
		t.Fatalf("GetCommitByRefName: %v", err)
	}
	if head.Hash != second.Hash {
		t.Fatalf("main ref = %s, want %s", head.Hash, second.Hash)
	}
	if _, err := os.Stat(filepath.Join(f.root, "b.txt")); err != nil {
		t.Fatalf("expected b.txt materialized after merge: %v", err)
	}
}

// TestMergeRejectsWhenLocalHasDivergentCommits exercises the fast-forward
// check: local has a commit the source lacks, so merge must fail.
func TestMergeRejectsWhenLocalHasDivergentCommits(t *testing.T) {
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit first: %v", err)
	}
	if err := f.db.UpsertReference(metadb.Reference{Name: "feature", Kind: metadb.Branch, Hash: mustHead(t, f.db, "main")}); err != nil {
		t.Fatalf("UpsertReference: %v", err)
	}

	f.stageFile(t, "local-only.txt", "mine")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "local change", "author"); err != nil {
		t.Fatalf("Commit local: %v", err)
	}
	f.stageFile(t, "b.txt", "world")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "feature", "their change", "author"); err != nil {
		t.Fatalf("Commit feature: %v", err)
	}

	_, err := Merge(f.db, f.db, f.store, f.root, "main", "feature")
	if err != ErrNotFastForward {
		t.Fatalf("Merge = %v, want ErrNotFastForward", err)
	}
}

// TestMergeFromRemoteMirrorImportsCommits simulates `merge --remote`: the
// source lives in a distinct database and its commits must be imported.
func TestMergeFromRemoteMirrorImportsCommits(t *testing.T) {
	local := newFixture(t)
	local.stageFile(t, "a.txt", "hello")
	first, err := commitengine.Commit(local.db, local.store, local.root, "main", "first", "author")
	if err != nil {
		t.Fatalf("Commit first: %v", err)
	}

	remote := newFixture(t)
	if err := remote.db.InsertCommit(first); err != nil {
		t.Fatalf("InsertCommit: %v", err)
	}
	tree, err := local.db.GetTree(first.Hash)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if err := remote.db.InsertTreeBatch(tree); err != nil {
		t.Fatalf("InsertTreeBatch: %v", err)
	}
	if err := remote.db.UpsertReference(metadb.Reference{Name: "main", Kind: metadb.Branch, Hash: first.Hash}); err != nil {
		t.Fatalf("UpsertReference: %v", err)
	}

	remote.stageFile(t, "b.txt", "world")
	second, err := commitengine.Commit(remote.db, remote.store, remote.root, "main", "second", "author")
	if err != nil {
		t.Fatalf("Commit second: %v", err)
	}

	// Copy the new blob into the local object store the way a fetch-driven
	// migration would, before the merge tries to materialize it.
	bHash := hash.Bytes([]byte("world"))
	if err := local.store.InsertFrom(bHash, filepath.Join(remote.root, "b.txt")); err != nil {
		t.Fatalf("InsertFrom: %v", err)
	}

	merged, err := Merge(local.db, remote.db, local.store, local.root, "main", "main")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Hash != second.Hash {
		t.Fatalf("Merge result = %s, want %s", merged.Hash, second.Hash)
	}
	if _, err := local.db.GetCommit(second.Hash); err != nil {
		t.Fatalf("expected imported commit to resolve locally: %v", err)
	}
}

// TestRebaseReplaysLocalCommitsOntoSource builds two branches that diverge
// from a shared base, then rebases the local branch's unique commit onto
// the other branch's head.
func TestRebaseReplaysLocalCommitsOntoSource(t *testing.T) {
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	base, err := commitengine.Commit(f.db, f.store, f.root, "main", "base", "author")
	if err != nil {
		t.Fatalf("Commit base: %v", err)
	}
	if err := f.db.UpsertReference(metadb.Reference{Name: "feature", Kind: metadb.Branch, Hash: base.Hash}); err != nil {
		t.Fatalf("UpsertReference: %v", err)
	}

	f.stageFile(t, "local.txt", "mine")
	localOnly, err := commitengine.Commit(f.db, f.store, f.root, "feature", "local change", "author")
	if err != nil {
		t.Fatalf("Commit feature: %v", err)
	}

	f.stageFile(t, "source.txt", "theirs")
	sourceHead, err := commitengine.Commit(f.db, f.store, f.root, "main", "source change", "author")
	if err != nil {
		t.Fatalf("Commit main: %v", err)
	}

	result, err := Rebase(f.db, f.store, f.root, "feature", sourceHead)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if result.ParentHash != sourceHead.Hash {
		t.Fatalf("rebased commit parent = %s, want %s", result.ParentHash, sourceHead.Hash)
	}
	if result.Hash == localOnly.Hash {
		t.Fatalf("rebased commit should get a new hash, still %s", result.Hash)
	}

	head, err := f.db.GetCommitByRefName("feature")
	if err != nil {
		t.Fatalf("GetCommitByRefName: %v", err)
	}
	if head.Hash != result.Hash {
		t.Fatalf("feature ref = %s, want %s", head.Hash, result.Hash)
	}

	tree, err := f.db.GetTree(result.Hash)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	paths := map[string]bool{}
	for _, tf := range tree {
		paths[tf.Path] = true
	}
	if !paths["a.txt"] || !paths["source.txt"] || !paths["local.txt"] {
		t.Fatalf("rebased tree = %+v, want a.txt+source.txt+local.txt", tree)
	}

	if _, err := os.Stat(filepath.Join(f.root, "local.txt")); err != nil {
		t.Fatalf("expected local.txt materialized after rebase: %v", err)
	}
}

func mustHead(t *testing.T, db *metadb.DB, branch string) string {
	t.Helper()
	c, err := db.GetCommitByRefName(branch)
	if err != nil {
		t.Fatalf("GetCommitByRefName: %v", err)
	}
	return c.Hash
}
