package commitengine

import (
	"os"
	"path/filepath"
	"testing"

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

func TestCommitNothingStagedFails(t *testing.T) {
	f := newFixture(t)
	if _, err := Commit(f.db, f.store, f.root, "main", "empty", "author"); err != ErrNothingToCommit {
		t.Fatalf("Commit = %v, want ErrNothingToCommit", err)
	}
}

func TestCommitFirstHasNoParent(t *testing.T) {
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")

	c, err := Commit(f.db, f.store, f.root, "main", "first", "author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if c.HasParent() {
		t.Fatalf("first commit should have no parent, got %q", c.ParentHash)
	}

	tree, err := f.db.GetTree(c.Hash)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree) != 1 || tree[0].Path != "a.txt" {
		t.Fatalf("GetTree = %+v", tree)
	}

	staged, err := f.db.GetAllStagedChanges()
	if err != nil {
		t.Fatalf("GetAllStagedChanges: %v", err)
	}
	if len(staged) != 0 {
		t.Fatalf("expected staging cleared after commit, got %+v", staged)
	}
}

func TestCommitSecondHasParent(t *testing.T) {
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	first, err := Commit(f.db, f.store, f.root, "main", "first", "author")
	if err != nil {
		t.Fatalf("Commit first: %v", err)
	}

	f.stageFile(t, "b.txt", "world")
	second, err := Commit(f.db, f.store, f.root, "main", "second", "author")
	if err != nil {
		t.Fatalf("Commit second: %v", err)
	}
	if second.ParentHash != first.Hash {
		t.Fatalf("second.ParentHash = %s, want %s", second.ParentHash, first.Hash)
	}

	tree, err := f.db.GetTree(second.Hash)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("GetTree = %+v, want 2 entries (overlay retains a.txt)", tree)
	}
}

func TestCommitHashingDeterministicRegardlessOfStagingOrder(t *testing.T) {
	f1 := newFixture(t)
	f1.stageFile(t, "a.txt", "content-a")
	f1.stageFile(t, "b.txt", "content-b")
	c1, err := Commit(f1.db, f1.store, f1.root, "main", "m", "author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	f2 := newFixture(t)
	f2.stageFile(t, "b.txt", "content-b")
	f2.stageFile(t, "a.txt", "content-a")
	c2, err := Commit(f2.db, f2.store, f2.root, "main", "m", "author")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if c1.Hash != c2.Hash {
		t.Fatalf("commit hashes differ by staging order: %s != %s", c1.Hash, c2.Hash)
	}
}

func TestCommitDeletion(t *testing.T) {
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit first: %v", err)
	}

	if err := os.Remove(filepath.Join(f.root, "a.txt")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := f.db.InsertStagedChange(metadb.StagedChange{
		Kind:       metadb.StagingDeletion,
		StagedFile: metadb.StagedFile{Path: "a.txt"},
	}); err != nil {
		t.Fatalf("InsertStagedChange: %v", err)
	}

	second, err := Commit(f.db, f.store, f.root, "main", "del", "author")
	if err != nil {
		t.Fatalf("Commit second: %v", err)
	}
	tree, err := f.db.GetTree(second.Hash)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree) != 0 {
		t.Fatalf("GetTree = %+v, want empty tree after deletion", tree)
	}
}
