// Package repo is the façade the CLI drives: it wires root discovery, the
// metadata database, the blob store, and every operation package
// (staging, commitengine, status, history, treediff, syncops, remoteops,
// migration) into the small set of calls a command handler needs.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aconbere/sssync/internal/sssync/commitengine"
	"github.com/aconbere/sssync/internal/sssync/history"
	"github.com/aconbere/sssync/internal/sssync/layout"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/migration"
	"github.com/aconbere/sssync/internal/sssync/objstore"
	"github.com/aconbere/sssync/internal/sssync/remoteops"
	"github.com/aconbere/sssync/internal/sssync/staging"
	"github.com/aconbere/sssync/internal/sssync/status"
	"github.com/aconbere/sssync/internal/sssync/syncops"
	"github.com/aconbere/sssync/internal/sssync/treediff"
)

// ErrNotARepo is returned by Open when start is not inside a managed root.
var ErrNotARepo = errors.New("repo: not a managed repository")

// DefaultBranch is the branch init creates and checks out.
const DefaultBranch = "main"

// Repo is an opened repository: a root directory, its layout, its database
// connection, and its blob store.
type Repo struct {
	Root  string
	L     layout.Layout
	DB    *metadb.DB
	Store *objstore.Store
}

// Init creates a new managed repository at root (which must already exist
// as a directory) and checks out DefaultBranch with no commits.
func Init(root string) (*Repo, error) {
	l, err := layout.Init(root)
	if err != nil {
		return nil, fmt.Errorf("repo: init: %w", err)
	}
	db, err := metadb.Open(l.DBPath())
	if err != nil {
		return nil, fmt.Errorf("repo: init: %w", err)
	}
	if err := db.UpdateHead(DefaultBranch); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: init: %w", err)
	}
	return &Repo{Root: root, L: l, DB: db, Store: objstore.New(l)}, nil
}

// Open discovers the managed root containing start (or any of its
// ancestors) and opens it. Returns ErrNotARepo if none is found.
func Open(start string) (*Repo, error) {
	root, err := layout.GetRootPath(start)
	if err != nil {
		return nil, fmt.Errorf("repo: open: %w", err)
	}
	if root == "" {
		return nil, ErrNotARepo
	}

	l := layout.New(root)
	db, err := metadb.Open(l.DBPath())
	if err != nil {
		return nil, fmt.Errorf("repo: open: %w", err)
	}
	return &Repo{Root: root, L: l, DB: db, Store: objstore.New(l)}, nil
}

// Close releases the repository's database handle.
func (r *Repo) Close() error {
	return r.DB.Close()
}

// Head returns the currently checked-out branch name.
func (r *Repo) Head() (string, error) {
	head, err := r.DB.GetHead()
	if err != nil {
		return "", fmt.Errorf("repo: head: %w", err)
	}
	return head, nil
}

// Status computes the three-way status comparison for the current branch.
func (r *Repo) Status() (*status.Status, error) {
	return status.New(r.DB, r.Root)
}

// Add stages every unstaged addition/deletion under relPath.
func (r *Repo) Add(relPath string) error {
	return staging.Add(r.DB, r.Store, r.Root, relPath)
}

// Reset clears staging, optionally (hard) restoring tracked paths that
// were edited or deleted on disk without being staged.
func (r *Repo) Reset(hard bool) error {
	return staging.Reset(r.DB, r.Store, r.Root, hard)
}

// Commit runs the commit pipeline against the current branch.
func (r *Repo) Commit(message, author string) (metadb.Commit, error) {
	head, err := r.Head()
	if err != nil {
		return metadb.Commit{}, err
	}
	return commitengine.Commit(r.DB, r.Store, r.Root, head, message, author)
}

// Log returns the commit chain reachable from name (a branch, or a commit
// hash if byHash is true), newest first.
func (r *Repo) Log(name string, byHash bool) ([]metadb.Commit, error) {
	var head metadb.Commit
	var err error
	if byHash {
		head, err = r.DB.GetCommit(name)
	} else {
		head, err = r.DB.GetCommitByRefName(name)
	}
	if err != nil {
		return nil, fmt.Errorf("repo: log: %w", err)
	}
	commits, err := r.DB.GetChildren(head.Hash)
	if err != nil {
		return nil, fmt.Errorf("repo: log: %w", err)
	}
	return commits, nil
}

// Tree returns the flat path listing of commitHash's tree.
func (r *Repo) Tree(commitHash string) ([]metadb.TreeFile, error) {
	tree, err := r.DB.GetTree(commitHash)
	if err != nil {
		return nil, fmt.Errorf("repo: tree: %w", err)
	}
	return tree, nil
}

// Diff returns the tree diff between commitHash's parent and commitHash
// itself (the per-commit changeset, per §4.9's diff_parent).
func (r *Repo) Diff(commitHash string) (treediff.Diff, error) {
	commit, err := r.DB.GetCommit(commitHash)
	if err != nil {
		return treediff.Diff{}, fmt.Errorf("repo: diff: %w", err)
	}
	diff, err := treediff.DiffParent(r.DB, commit)
	if err != nil {
		return treediff.Diff{}, fmt.Errorf("repo: diff: %w", err)
	}
	return diff, nil
}

// Checkout applies the diff between the current HEAD tree and commitHash's
// tree to the working tree and moves the current branch's ref to
// commitHash. It refuses when there are uncommitted changes.
func (r *Repo) Checkout(commitHash string) error {
	st, err := r.Status()
	if err != nil {
		return fmt.Errorf("repo: checkout: %w", err)
	}
	if st.HasUncommittedChanges() {
		return fmt.Errorf("repo: checkout: %w", ErrUncommittedChanges)
	}

	branchName, err := r.Head()
	if err != nil {
		return fmt.Errorf("repo: checkout: %w", err)
	}

	currentTree, err := commitengine.HeadTree(r.DB, branchName)
	if err != nil {
		return fmt.Errorf("repo: checkout: %w", err)
	}
	targetTree, err := r.DB.GetTree(commitHash)
	if err != nil {
		return fmt.Errorf("repo: checkout: %w", err)
	}

	older := make([]metadb.TreeFile, 0, len(currentTree))
	for _, f := range currentTree {
		older = append(older, f)
	}
	diff := treediff.New(older, targetTree)
	if err := treediff.Apply(diff, r.Store, r.Root); err != nil {
		return fmt.Errorf("repo: checkout: %w", err)
	}

	if err := r.DB.UpsertReference(metadb.Reference{Name: branchName, Kind: metadb.Branch, Hash: commitHash}); err != nil {
		return fmt.Errorf("repo: checkout: %w", err)
	}
	return nil
}

// ErrUncommittedChanges is returned by operations that require a clean
// working tree and staging area.
var ErrUncommittedChanges = errors.New("repo: uncommitted changes present")

// BranchAdd creates a new branch named name pointed at the current HEAD.
func (r *Repo) BranchAdd(name string) error {
	head, err := r.Head()
	if err != nil {
		return fmt.Errorf("repo: branch add: %w", err)
	}
	commit, err := r.DB.GetCommitByRefName(head)
	hash := ""
	if err == nil {
		hash = commit.Hash
	} else if !errors.Is(err, metadb.ErrCommitNotFound) && !errors.Is(err, metadb.ErrRefNotFound) {
		return fmt.Errorf("repo: branch add: %w", err)
	}
	if err := r.DB.InsertReference(metadb.Reference{Name: name, Kind: metadb.Branch, Hash: hash}); err != nil {
		return fmt.Errorf("repo: branch add: %w", err)
	}
	return nil
}

// BranchSwitch changes HEAD to name without touching any ref or the
// working tree (the caller is expected to have already reconciled the
// working tree, e.g. via Checkout).
func (r *Repo) BranchSwitch(name string) error {
	if _, err := r.DB.GetReference(name, metadb.Branch, ""); err != nil {
		return fmt.Errorf("repo: branch switch: %w", err)
	}
	if err := r.DB.UpdateHead(name); err != nil {
		return fmt.Errorf("repo: branch switch: %w", err)
	}
	return nil
}

// BranchSet moves branch name's ref to commitHash directly, without
// touching the working tree.
func (r *Repo) BranchSet(name, commitHash string) error {
	if err := r.DB.UpsertReference(metadb.Reference{Name: name, Kind: metadb.Branch, Hash: commitHash}); err != nil {
		return fmt.Errorf("repo: branch set: %w", err)
	}
	return nil
}

// BranchList returns every local branch reference.
func (r *Repo) BranchList() ([]metadb.Reference, error) {
	refs, err := r.DB.GetAllReferencesByKind(metadb.Branch)
	if err != nil {
		return nil, fmt.Errorf("repo: branch list: %w", err)
	}
	return refs, nil
}

// Merge merges source (a local branch name, or — when useRemote is set — a
// branch of the same name read from the named remote's mirror database)
// into the current branch.
func (r *Repo) Merge(source string, useRemote bool) (metadb.Commit, error) {
	st, err := r.Status()
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("repo: merge: %w", err)
	}
	if st.HasUncommittedChanges() {
		return metadb.Commit{}, fmt.Errorf("repo: merge: %w", ErrUncommittedChanges)
	}

	branchName, err := r.Head()
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("repo: merge: %w", err)
	}

	// useRemote treats source as a configured remote's name and merges the
	// mirror's branch of the same name as HEAD; otherwise source names a
	// distinct local branch to merge into HEAD.
	sourceDB := r.DB
	sourceBranchName := source
	if useRemote {
		remote, err := r.DB.GetRemote(source)
		if err != nil {
			return metadb.Commit{}, fmt.Errorf("repo: merge: %w", err)
		}
		mirror, err := metadb.Open(r.L.RemoteMirrorPath(remote.Name))
		if err != nil {
			return metadb.Commit{}, fmt.Errorf("repo: merge: %w", err)
		}
		defer mirror.Close()
		sourceDB = mirror
		sourceBranchName = branchName
	}

	commit, err := syncops.Merge(r.DB, sourceDB, r.Store, r.Root, branchName, sourceBranchName)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("repo: merge: %w", err)
	}
	return commit, nil
}

// Rebase replays the current branch's local-only commits onto sourceBranch.
func (r *Repo) Rebase(sourceBranch string) (metadb.Commit, error) {
	st, err := r.Status()
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("repo: rebase: %w", err)
	}
	if st.HasUncommittedChanges() {
		return metadb.Commit{}, fmt.Errorf("repo: rebase: %w", ErrUncommittedChanges)
	}

	branchName, err := r.Head()
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("repo: rebase: %w", err)
	}
	sourceHead, err := r.DB.GetCommitByRefName(sourceBranch)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("repo: rebase: %w", err)
	}

	commit, err := syncops.Rebase(r.DB, r.Store, r.Root, branchName, sourceHead)
	if err != nil {
		return metadb.Commit{}, fmt.Errorf("repo: rebase: %w", err)
	}
	return commit, nil
}

// RemoteAdd registers a new remote.
func (r *Repo) RemoteAdd(name string, kind metadb.RemoteKind, location string) error {
	return r.DB.InsertRemote(metadb.Remote{Name: name, Kind: kind, Location: location})
}

// RemoteList returns every configured remote.
func (r *Repo) RemoteList() ([]metadb.Remote, error) {
	return r.DB.GetAllRemotes()
}

// RemoteRemove deletes a remote's configuration row.
func (r *Repo) RemoteRemove(name string) error {
	return r.DB.DeleteRemote(name)
}

// RemoteLocate resolves name's configured location string.
func (r *Repo) RemoteLocate(name string) (string, error) {
	remote, err := r.DB.GetRemote(name)
	if err != nil {
		return "", fmt.Errorf("repo: remote locate: %w", err)
	}
	return remote.Location, nil
}

// RemoteBranches lists the branches a fetched remote mirror knows about.
func (r *Repo) RemoteBranches(name string) ([]metadb.Reference, error) {
	remote, err := r.DB.GetRemote(name)
	if err != nil {
		return nil, fmt.Errorf("repo: remote branches: %w", err)
	}
	mirror, err := metadb.Open(r.L.RemoteMirrorPath(remote.Name))
	if err != nil {
		return nil, fmt.Errorf("repo: remote branches: %w", err)
	}
	defer mirror.Close()
	refs, err := mirror.GetAllReferencesByKind(metadb.Branch)
	if err != nil {
		return nil, fmt.Errorf("repo: remote branches: %w", err)
	}
	return refs, nil
}

// RemoteInit initializes remote as the canonical store for the current
// branch's HEAD tree.
func (r *Repo) RemoteInit(ctx context.Context, remoteName string, force bool, cfg migration.Config) error {
	remote, err := r.DB.GetRemote(remoteName)
	if err != nil {
		return fmt.Errorf("repo: remote init: %w", err)
	}
	branchName, err := r.Head()
	if err != nil {
		return fmt.Errorf("repo: remote init: %w", err)
	}
	bt, err := remoteops.BuildTransport(ctx, remote)
	if err != nil {
		return fmt.Errorf("repo: remote init: %w", err)
	}
	if err := remoteops.Init(ctx, r.DB, r.Store, bt, r.L, remote, branchName, force, cfg); err != nil {
		return fmt.Errorf("repo: remote init: %w", err)
	}
	return nil
}

// Push uploads the current branch's fast-forward range to remote.
func (r *Repo) Push(ctx context.Context, remoteName string, cfg migration.Config) error {
	remote, err := r.DB.GetRemote(remoteName)
	if err != nil {
		return fmt.Errorf("repo: push: %w", err)
	}
	branchName, err := r.Head()
	if err != nil {
		return fmt.Errorf("repo: push: %w", err)
	}
	bt, err := remoteops.BuildTransport(ctx, remote)
	if err != nil {
		return fmt.Errorf("repo: push: %w", err)
	}
	if err := remoteops.Push(ctx, r.DB, r.Store, bt, r.L, remote, branchName, cfg); err != nil {
		return fmt.Errorf("repo: push: %w", err)
	}
	return nil
}

// Fetch downloads remote's mirror database, optionally materializing its
// HEAD tree's blobs into the working tree.
func (r *Repo) Fetch(ctx context.Context, remoteName string, materialize bool, cfg migration.Config) error {
	remote, err := r.DB.GetRemote(remoteName)
	if err != nil {
		return fmt.Errorf("repo: fetch: %w", err)
	}
	branchName, err := r.Head()
	if err != nil {
		return fmt.Errorf("repo: fetch: %w", err)
	}
	bt, err := remoteops.BuildTransport(ctx, remote)
	if err != nil {
		return fmt.Errorf("repo: fetch: %w", err)
	}
	mirror, err := remoteops.Fetch(ctx, r.Store, bt, r.L, remote, branchName, r.Root, materialize, cfg)
	if err != nil {
		return fmt.Errorf("repo: fetch: %w", err)
	}
	return mirror.Close()
}

// Clone creates a new repository at destination by fetching remote.
func Clone(ctx context.Context, remote metadb.Remote, branchName, destination string, cfg migration.Config) (*Repo, error) {
	l, err := remoteops.Clone(ctx, remote, branchName, destination, cfg)
	if err != nil {
		return nil, fmt.Errorf("repo: clone: %w", err)
	}
	db, err := metadb.Open(l.DBPath())
	if err != nil {
		return nil, fmt.Errorf("repo: clone: %w", err)
	}
	return &Repo{Root: destination, L: l, DB: db, Store: objstore.New(l)}, nil
}

// MigrationList returns every migration ever created against this
// database.
func (r *Repo) MigrationList() ([]metadb.Migration, error) {
	return r.DB.GetAllMigrations()
}

// MigrationShow returns a migration and its per-blob transfers.
func (r *Repo) MigrationShow(id int64) (metadb.Migration, []metadb.Transfer, error) {
	m, err := r.DB.GetMigration(id)
	if err != nil {
		return metadb.Migration{}, nil, fmt.Errorf("repo: migration show: %w", err)
	}
	transfers, err := r.DB.GetAllForMigration(id)
	if err != nil {
		return metadb.Migration{}, nil, fmt.Errorf("repo: migration show: %w", err)
	}
	return m, transfers, nil
}

// SharedParent exposes history.GetSharedParent for the two commit chains
// rooted at aHash and bHash.
func (r *Repo) SharedParent(aHash, bHash string) (string, error) {
	a, err := r.DB.GetChildren(aHash)
	if err != nil {
		return "", fmt.Errorf("repo: shared parent: %w", err)
	}
	b, err := r.DB.GetChildren(bHash)
	if err != nil {
		return "", fmt.Errorf("repo: shared parent: %w", err)
	}
	shared, err := history.GetSharedParent(a, b)
	if err != nil {
		return "", fmt.Errorf("repo: shared parent: %w", err)
	}
	return shared, nil
}
