// Package objstore implements the content-addressed blob store: objects are
// plain files named by their hash under the repo's objects directory.
package objstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aconbere/sssync/internal/sssync/hash"
	"github.com/aconbere/sssync/internal/sssync/layout"
)

// ErrNotFound is returned when a requested object does not exist in the store.
var ErrNotFound = errors.New("objstore: object not found")

// ErrAlreadyExists is returned by migration's download flow when a blob is
// already present locally and neither force nor ignore-existing applies.
var ErrAlreadyExists = errors.New("objstore: object already exists")

// Store is a content-addressed blob store rooted at a repo layout.
type Store struct {
	layout layout.Layout
}

// New returns a Store backed by l's objects directory.
func New(l layout.Layout) *Store {
	return &Store{layout: l}
}

// Exists reports whether an object with the given hash is present.
func (s *Store) Exists(h hash.Hash) bool {
	_, err := os.Stat(s.layout.ObjectPath(h.String()))
	return err == nil
}

// Path returns the on-disk path an object with the given hash would occupy,
// whether or not it currently exists.
func (s *Store) Path(h hash.Hash) string {
	return s.layout.ObjectPath(h.String())
}

// InsertFrom copies the file at sourcePath into the store under h, verifying
// the copied content actually hashes to h. If an object already exists under
// h the call is a no-op (content-addressing makes the copy redundant).
func (s *Store) InsertFrom(h hash.Hash, sourcePath string) error {
	if s.Exists(h) {
		return nil
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.layout.ObjectsDir(), 0o750); err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}

	tmp, err := os.CreateTemp(s.layout.ObjectsDir(), ".tmp-*")
	if err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	tmpPath := tmp.Name()
	removeTmp := true
	defer func() {
		if removeTmp {
			os.Remove(tmpPath)
		}
	}()

	sum, err := hash.Reader(io.TeeReader(src, tmp))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	if sum != h {
		return fmt.Errorf("objstore: insert %s: source content hashes to %s", h, sum)
	}

	if err := os.Rename(tmpPath, s.layout.ObjectPath(h.String())); err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	removeTmp = false
	return nil
}

// InsertFromReader writes r's content into the store under h, verifying the
// copied content actually hashes to h, overwriting any existing object under
// h. Used by migration's download flow once it has already decided
// (force/ignore-existing) that a write should happen.
func (s *Store) InsertFromReader(h hash.Hash, r io.Reader) error {
	if err := os.MkdirAll(s.layout.ObjectsDir(), 0o750); err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}

	tmp, err := os.CreateTemp(s.layout.ObjectsDir(), ".tmp-*")
	if err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	tmpPath := tmp.Name()
	removeTmp := true
	defer func() {
		if removeTmp {
			os.Remove(tmpPath)
		}
	}()

	sum, err := hash.Reader(io.TeeReader(r, tmp))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	if sum != h {
		return fmt.Errorf("objstore: insert %s: source content hashes to %s", h, sum)
	}

	if err := os.Rename(tmpPath, s.layout.ObjectPath(h.String())); err != nil {
		return fmt.Errorf("objstore: insert %s: %w", h, err)
	}
	removeTmp = false
	return nil
}

// ExportTo copies the object under h to destPath, creating any missing
// parent directories.
func (s *Store) ExportTo(h hash.Hash, destPath string) error {
	src, err := os.Open(s.Path(h))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("objstore: export %s: %w", h, ErrNotFound)
		}
		return fmt.Errorf("objstore: export %s: %w", h, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return fmt.Errorf("objstore: export %s: %w", h, err)
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("objstore: export %s: %w", h, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("objstore: export %s: %w", h, err)
	}
	return nil
}

// Open returns a reader over the object's content. The caller must Close it.
func (s *Store) Open(h hash.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("objstore: open %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("objstore: open %s: %w", h, err)
	}
	return f, nil
}

// Size returns the size in bytes of the object under h.
func (s *Store) Size(h hash.Hash) (int64, error) {
	info, err := os.Stat(s.Path(h))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("objstore: size %s: %w", h, ErrNotFound)
		}
		return 0, fmt.Errorf("objstore: size %s: %w", h, err)
	}
	return info.Size(), nil
}
