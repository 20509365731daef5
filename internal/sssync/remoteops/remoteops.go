// Package remoteops implements init/push/fetch/clone (§4.12): the
// operations that move commits, trees, and blobs between the local
// repository and a configured Remote, on top of transport and migration.
package remoteops

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aconbere/sssync/internal/sssync/history"
	"github.com/aconbere/sssync/internal/sssync/layout"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/migration"
	"github.com/aconbere/sssync/internal/sssync/objstore"
	"github.com/aconbere/sssync/internal/sssync/transport"
	"github.com/aconbere/sssync/internal/sssync/treediff"
)

// remoteDBKey is the canonical path of the metadata database on a remote,
// relative to the remote's prefix (§6's remote layout).
const remoteDBKey = ".sssync/sssync.db"

// ErrRemoteAlreadyInitialized is returned by Init when the remote already
// carries a database and force was not set.
var ErrRemoteAlreadyInitialized = errors.New("remoteops: remote already initialized")

// ErrUpToDate is returned by Push when the remote branch head already
// matches the local one.
var ErrUpToDate = errors.New("remoteops: remote already up to date")

// BuildTransport resolves remote's location into a BlobTransport: an
// S3Transport for RemoteS3 (bucket/prefix parsed from the `s3://` location
// URL per §6), or a Local transport rooted directly at the location path
// for RemoteLocal — a plain filesystem directory, not a URL.
func BuildTransport(ctx context.Context, remote metadb.Remote) (transport.BlobTransport, error) {
	switch remote.Kind {
	case metadb.RemoteS3:
		parsed, err := transport.ParseRemoteLocation(remote.Location)
		if err != nil {
			return nil, fmt.Errorf("remoteops: build transport for %s: %w", remote.Name, err)
		}
		t, err := transport.NewS3Transport(ctx, parsed.Host, parsed.Prefix, "")
		if err != nil {
			return nil, fmt.Errorf("remoteops: build transport for %s: %w", remote.Name, err)
		}
		return t, nil
	case metadb.RemoteLocal:
		t, err := transport.NewLocal(remote.Location)
		if err != nil {
			return nil, fmt.Errorf("remoteops: build transport for %s: %w", remote.Name, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("remoteops: build transport for %s: unknown remote kind %q", remote.Name, remote.Kind)
	}
}

// Init implements §4.12's remote init: check whether the remote already
// carries a database (bail unless force), upload every blob in branchName's
// HEAD tree, then upload the local database to the remote's canonical path.
func Init(ctx context.Context, db *metadb.DB, store *objstore.Store, bt transport.BlobTransport, l layout.Layout, remote metadb.Remote, branchName string, force bool, cfg migration.Config) error {
	exists, err := bt.HeadObject(ctx, remoteDBKey)
	if err != nil {
		return fmt.Errorf("remoteops: init %s: %w", remote.Name, err)
	}
	if exists && !force {
		return fmt.Errorf("remoteops: init %s: %w", remote.Name, ErrRemoteAlreadyInitialized)
	}

	head, err := db.GetCommitByRefName(branchName)
	if err != nil {
		return fmt.Errorf("remoteops: init %s: %w", remote.Name, err)
	}
	tree, err := db.GetTree(head.Hash)
	if err != nil {
		return fmt.Errorf("remoteops: init %s: %w", remote.Name, err)
	}

	m, err := migration.Create(db, metadb.MigrationUpload, remote, collectHashes(tree))
	if err != nil {
		return fmt.Errorf("remoteops: init %s: %w", remote.Name, err)
	}
	// Object collisions during init are benign: the remote may already
	// carry blobs from a prior partial init, or the repository may share
	// content with another one mirrored to the same prefix.
	if err := migration.Run(ctx, db, store, bt, m, force, true, cfg); err != nil {
		return fmt.Errorf("remoteops: init %s: %w", remote.Name, err)
	}

	return uploadDatabase(ctx, bt, l)
}

// Push implements §4.12's push: fetch the remote mirror database, require
// the remote head to differ from local, require the remote to be an
// ancestor of local (fast-forward), upload the blobs the fast-forward range
// touches, then update the mirror's commits/trees/ref and upload it back to
// the remote's canonical path.
func Push(ctx context.Context, db *metadb.DB, store *objstore.Store, bt transport.BlobTransport, l layout.Layout, remote metadb.Remote, branchName string, cfg migration.Config) error {
	mirror, err := fetchMirrorDB(ctx, bt, l, remote)
	if err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}
	// Closed explicitly before the mirror file is re-uploaded below; the
	// deferred call is a safety net for the error-return paths in between.
	defer mirror.Close()

	localHead, err := db.GetCommitByRefName(branchName)
	if err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}
	remoteHead, err := mirror.GetCommitByRefName(branchName)
	if err != nil && !errors.Is(err, metadb.ErrCommitNotFound) {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}
	if remoteHead.Hash == localHead.Hash {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, ErrUpToDate)
	}

	localCommits, err := db.GetChildren(localHead.Hash)
	if err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}
	var remoteCommits []metadb.Commit
	if remoteHead.Hash != "" {
		remoteCommits, err = mirror.GetChildren(remoteHead.Hash)
		if err != nil {
			return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
		}
	}

	// diff_commit_list(local, remote): fast-forward holds when nothing is
	// unique to the remote side, i.e. the remote is an ancestor of local.
	div, err := history.DiffCommitList(localCommits, remoteCommits)
	if err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}
	if len(div.Right) != 0 {
		return fmt.Errorf("remoteops: push %s: remote has commits local lacks (not a fast-forward)", remote.Name)
	}
	ff := div.Left

	combined, err := treediff.DiffList(db, ff)
	if err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}

	m, err := migration.Create(db, metadb.MigrationUpload, remote, combined.Hashes())
	if err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}
	if err := migration.Run(ctx, db, store, bt, m, false, false, cfg); err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}

	if err := metadb.UpdateRemote(db, mirror, branchName); err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}
	if err := mirror.Close(); err != nil {
		return fmt.Errorf("remoteops: push %s: %w", remote.Name, err)
	}

	return uploadDatabaseFrom(ctx, bt, l.RemoteMirrorPath(remote.Name))
}

// Fetch implements §4.12's fetch: download the remote mirror database into
// the remote-mirror slot, and (when materialize is true) download every
// blob referenced by its HEAD tree and export them into root.
func Fetch(ctx context.Context, store *objstore.Store, bt transport.BlobTransport, l layout.Layout, remote metadb.Remote, branchName, root string, materialize bool, cfg migration.Config) (*metadb.DB, error) {
	mirror, err := fetchMirrorDB(ctx, bt, l, remote)
	if err != nil {
		return nil, fmt.Errorf("remoteops: fetch %s: %w", remote.Name, err)
	}

	if !materialize {
		return mirror, nil
	}

	head, err := mirror.GetCommitByRefName(branchName)
	if err != nil {
		mirror.Close()
		return nil, fmt.Errorf("remoteops: fetch %s: %w", remote.Name, err)
	}
	tree, err := mirror.GetTree(head.Hash)
	if err != nil {
		mirror.Close()
		return nil, fmt.Errorf("remoteops: fetch %s: %w", remote.Name, err)
	}

	m, err := migration.Create(mirror, metadb.MigrationDownload, remote, collectHashes(tree))
	if err != nil {
		mirror.Close()
		return nil, fmt.Errorf("remoteops: fetch %s: %w", remote.Name, err)
	}
	if err := migration.Run(ctx, mirror, store, bt, m, false, true, cfg); err != nil {
		mirror.Close()
		return nil, fmt.Errorf("remoteops: fetch %s: %w", remote.Name, err)
	}

	diff := treediff.New(nil, tree)
	if err := treediff.Apply(diff, store, root); err != nil {
		mirror.Close()
		return nil, fmt.Errorf("remoteops: fetch %s: %w", remote.Name, err)
	}

	return mirror, nil
}

// Clone implements §4.12's clone: destination must not already exist; it is
// created and initialized as a fresh managed root, the remote mirror
// database is fetched into its remote-mirror slot and copied into the new
// local metadata slot, every blob in branchName's HEAD tree is downloaded,
// and the working tree is materialized.
func Clone(ctx context.Context, remote metadb.Remote, branchName, destination string, cfg migration.Config) (layout.Layout, error) {
	if _, err := os.Stat(destination); err == nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: destination %q already exists", destination)
	} else if !os.IsNotExist(err) {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	if err := os.MkdirAll(destination, 0o750); err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}

	l, err := layout.Init(destination)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}

	bt, err := BuildTransport(ctx, remote)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	store := objstore.New(l)

	mirror, err := Fetch(ctx, store, bt, l, remote, branchName, destination, false, cfg)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	defer mirror.Close()

	db, err := metadb.Open(l.DBPath())
	if err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	defer db.Close()

	if err := metadb.UpdateRemote(mirror, db, branchName); err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	if err := db.InsertRemote(remote); err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	if err := db.UpdateHead(branchName); err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}

	head, err := db.GetCommitByRefName(branchName)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	tree, err := db.GetTree(head.Hash)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}

	m, err := migration.Create(db, metadb.MigrationDownload, remote, collectHashes(tree))
	if err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}
	if err := migration.Run(ctx, db, store, bt, m, false, true, cfg); err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}

	diff := treediff.New(nil, tree)
	if err := treediff.Apply(diff, store, destination); err != nil {
		return layout.Layout{}, fmt.Errorf("remoteops: clone: %w", err)
	}

	return l, nil
}

func collectHashes(tree []metadb.TreeFile) []string {
	hashes := make([]string, 0, len(tree))
	for _, f := range tree {
		hashes = append(hashes, f.FileHash)
	}
	return hashes
}

// fetchMirrorDB downloads the remote's canonical database into the local
// remote-mirror slot and opens it.
func fetchMirrorDB(ctx context.Context, bt transport.BlobTransport, l layout.Layout, remote metadb.Remote) (*metadb.DB, error) {
	path := l.RemoteMirrorPath(remote.Name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("download remote database: %w", err)
	}
	if err := bt.GetObject(ctx, remoteDBKey, f); err != nil {
		f.Close()
		return nil, fmt.Errorf("download remote database: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("download remote database: %w", err)
	}

	return metadb.Open(path)
}

// uploadDatabase uploads the local database at l.DBPath() to the remote's
// canonical path (used by Init, where the local database is already the
// source of truth).
func uploadDatabase(ctx context.Context, bt transport.BlobTransport, l layout.Layout) error {
	return uploadDatabaseFrom(ctx, bt, l.DBPath())
}

// uploadDatabaseFrom uploads the SQLite file at path to the remote's
// canonical database key.
func uploadDatabaseFrom(ctx context.Context, bt transport.BlobTransport, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload database: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("upload database: %w", err)
	}
	if err := bt.PutObject(ctx, remoteDBKey, f, info.Size()); err != nil {
		return fmt.Errorf("upload database: %w", err)
	}
	return nil
}
