// Package layout resolves the repo-private directory structure:
//
//	<root>/.sssync/sssync.db
//	<root>/.sssync/objects/<hash>
//	<root>/.sssync/remotes/<remote_name>.db
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrAlreadyInitialized is returned by Init when root already contains a
// private directory.
var ErrAlreadyInitialized = errors.New("layout: already initialized")

// PrivateDirName is the hidden directory at the root of a managed tree.
const PrivateDirName = ".sssync"

const (
	dbFileName    = "sssync.db"
	objectsDir    = "objects"
	remotesDir    = "remotes"
)

// Layout resolves paths relative to a repository root.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root. It does not verify root is managed.
func New(root string) Layout {
	return Layout{Root: root}
}

// PrivateDir returns <root>/.sssync.
func (l Layout) PrivateDir() string {
	return filepath.Join(l.Root, PrivateDirName)
}

// DBPath returns <root>/.sssync/sssync.db.
func (l Layout) DBPath() string {
	return filepath.Join(l.PrivateDir(), dbFileName)
}

// ObjectsDir returns <root>/.sssync/objects.
func (l Layout) ObjectsDir() string {
	return filepath.Join(l.PrivateDir(), objectsDir)
}

// ObjectPath returns <root>/.sssync/objects/<hash>.
func (l Layout) ObjectPath(hash string) string {
	return filepath.Join(l.ObjectsDir(), hash)
}

// RemotesDir returns <root>/.sssync/remotes.
func (l Layout) RemotesDir() string {
	return filepath.Join(l.PrivateDir(), remotesDir)
}

// RemoteMirrorPath returns <root>/.sssync/remotes/<name>.db.
func (l Layout) RemoteMirrorPath(name string) string {
	return filepath.Join(l.RemotesDir(), name+".db")
}

// HasPrivateDir reports whether root already contains a private directory.
func HasPrivateDir(root string) bool {
	info, err := os.Stat(filepath.Join(root, PrivateDirName))
	return err == nil && info.IsDir()
}

// GetRootPath walks ancestors of start until it finds a directory containing
// the private directory, returning "" if none is found before the filesystem
// root. Mirrors the original's recursive get_root_path.
func GetRootPath(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("layout: resolve %q: %w", start, err)
	}

	current := abs
	for {
		if HasPrivateDir(current) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

// Init creates the private directory structure at root. root must already
// exist as a directory and must not already be managed.
func Init(root string) (Layout, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Layout{}, fmt.Errorf("layout: init: %w", err)
	}
	if !info.IsDir() {
		return Layout{}, fmt.Errorf("layout: init: %q is not a directory", root)
	}
	if HasPrivateDir(root) {
		return Layout{}, fmt.Errorf("layout: init %q: %w", root, ErrAlreadyInitialized)
	}

	l := New(root)
	for _, dir := range []string{l.PrivateDir(), l.ObjectsDir(), l.RemotesDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Layout{}, fmt.Errorf("layout: init: %w", err)
		}
	}
	return l, nil
}
