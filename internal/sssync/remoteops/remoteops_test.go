package remoteops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aconbere/sssync/internal/sssync/commitengine"
	"github.com/aconbere/sssync/internal/sssync/layout"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/migration"
	"github.com/aconbere/sssync/internal/sssync/objstore"
)

type fixture struct {
	root  string
	l     layout.Layout
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
	return fixture{root: root, l: l, db: db, store: objstore.New(l)}
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
}

func newRemote(t *testing.T, name string) metadb.Remote {
	t.Helper()
	return metadb.Remote{Name: name, Kind: metadb.RemoteLocal, Location: t.TempDir()}
}

func TestInitUploadsBlobsAndDatabase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	remote := newRemote(t, "origin")
	bt, err := BuildTransport(ctx, remote)
	if err != nil {
		t.Fatalf("BuildTransport: %v", err)
	}

	if err := Init(ctx, f.db, f.store, bt, f.l, remote, "main", false, migration.Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	exists, err := bt.HeadObject(ctx, remoteDBKey)
	if err != nil {
		t.Fatalf("HeadObject: %v", err)
	}
	if !exists {
		t.Fatal("expected remote database uploaded")
	}
}

func TestInitFailsWhenAlreadyInitializedWithoutForce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	remote := newRemote(t, "origin")
	bt, err := BuildTransport(ctx, remote)
	if err != nil {
		t.Fatalf("BuildTransport: %v", err)
	}
	if err := Init(ctx, f.db, f.store, bt, f.l, remote, "main", false, migration.Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := Init(ctx, f.db, f.store, bt, f.l, remote, "main", false, migration.Config{}); err == nil {
		t.Fatal("expected second Init without force to fail")
	}

	if err := Init(ctx, f.db, f.store, bt, f.l, remote, "main", true, migration.Config{}); err != nil {
		t.Fatalf("Init with force: %v", err)
	}
}

func TestPushFastForwardsRemoteAndRejectsWhenUpToDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit first: %v", err)
	}

	remote := newRemote(t, "origin")
	bt, err := BuildTransport(ctx, remote)
	if err != nil {
		t.Fatalf("BuildTransport: %v", err)
	}
	if err := Init(ctx, f.db, f.store, bt, f.l, remote, "main", false, migration.Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Pushing immediately after init: remote already matches local, so Push
	// must report ErrUpToDate rather than transferring anything.
	if err := Push(ctx, f.db, f.store, bt, f.l, remote, "main", migration.Config{}); !errors.Is(err, ErrUpToDate) {
		t.Fatalf("Push = %v, want ErrUpToDate", err)
	}

	f.stageFile(t, "b.txt", "world")
	second, err := commitengine.Commit(f.db, f.store, f.root, "main", "second", "author")
	if err != nil {
		t.Fatalf("Commit second: %v", err)
	}

	if err := Push(ctx, f.db, f.store, bt, f.l, remote, "main", migration.Config{}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	exists, err := bt.HeadObject(ctx, objectKeyForTest(second.Hash, f))
	if err != nil {
		t.Fatalf("HeadObject: %v", err)
	}
	if !exists {
		t.Fatal("expected new blob uploaded to remote")
	}

	mirror, err := metadb.Open(f.l.RemoteMirrorPath(remote.Name))
	if err != nil {
		t.Fatalf("metadb.Open mirror: %v", err)
	}
	defer mirror.Close()
	head, err := mirror.GetCommitByRefName("main")
	if err != nil {
		t.Fatalf("GetCommitByRefName: %v", err)
	}
	if head.Hash != second.Hash {
		t.Fatalf("mirror main ref = %s, want %s", head.Hash, second.Hash)
	}
}

// objectKeyForTest resolves the content hash of b.txt's blob so the test can
// verify it landed on the remote; mirrors migration's own objectKey scheme.
func objectKeyForTest(commitHash string, f fixture) string {
	tree, err := f.db.GetTree(commitHash)
	if err != nil {
		return ""
	}
	for _, tf := range tree {
		if tf.Path == "b.txt" {
			return ".sssync/objects/" + tf.FileHash
		}
	}
	return ""
}

func TestFetchMaterializesWorkingTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	remote := newRemote(t, "origin")
	bt, err := BuildTransport(ctx, remote)
	if err != nil {
		t.Fatalf("BuildTransport: %v", err)
	}
	if err := Init(ctx, f.db, f.store, bt, f.l, remote, "main", false, migration.Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	dest := t.TempDir()
	destLayout, err := layout.Init(dest)
	if err != nil {
		t.Fatalf("layout.Init dest: %v", err)
	}
	destStore := objstore.New(destLayout)

	mirror, err := Fetch(ctx, destStore, bt, destLayout, remote, "main", dest, true, migration.Config{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer mirror.Close()

	if _, err := os.Stat(filepath.Join(dest, "a.txt")); err != nil {
		t.Fatalf("expected a.txt materialized by fetch: %v", err)
	}
}

func TestCloneCreatesWorkingRepo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stageFile(t, "a.txt", "hello")
	if _, err := commitengine.Commit(f.db, f.store, f.root, "main", "first", "author"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	remote := newRemote(t, "origin")
	bt, err := BuildTransport(ctx, remote)
	if err != nil {
		t.Fatalf("BuildTransport: %v", err)
	}
	if err := Init(ctx, f.db, f.store, bt, f.l, remote, "main", false, migration.Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "clone")
	destLayout, err := Clone(ctx, remote, "main", dest, migration.Config{})
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "a.txt")); err != nil {
		t.Fatalf("expected a.txt materialized by clone: %v", err)
	}

	db, err := metadb.Open(destLayout.DBPath())
	if err != nil {
		t.Fatalf("metadb.Open cloned db: %v", err)
	}
	defer db.Close()
	head, err := db.GetCommitByRefName("main")
	if err != nil {
		t.Fatalf("GetCommitByRefName: %v", err)
	}
	if head.Hash == "" {
		t.Fatal("expected cloned db to carry main's head commit")
	}

	gotRemote, err := db.GetRemote("origin")
	if err != nil {
		t.Fatalf("GetRemote: %v", err)
	}
	if gotRemote.Location != remote.Location {
		t.Fatalf("cloned remote location = %s, want %s", gotRemote.Location, remote.Location)
	}
}

// TestCloneFailsWhenDestinationExists exercises the "destination must not
// exist" precondition.
func TestCloneFailsWhenDestinationExists(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(t, "origin")
	dest := t.TempDir()

	if _, err := Clone(ctx, remote, "main", dest, migration.Config{}); err == nil {
		t.Fatal("expected Clone to fail when destination already exists")
	}
}
