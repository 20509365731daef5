// Package scanner walks a working tree, producing relative paths and the
// lightweight (size, mtime) metadata Status uses as a cheap pre-filter
// before any hashing happens.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aconbere/sssync/internal/sssync/layout"
)

// Entry describes one file found on disk.
type Entry struct {
	// Path is the slash-separated path relative to the repository root.
	Path string

	SizeBytes           int64
	ModifiedTimeSeconds int64
}

// Scan recursively enumerates root, skipping the private directory.
// Symbolic links are followed and reported as regular file entries;
// directories are descended but never reported themselves.
func Scan(root string) ([]Entry, error) {
	var entries []Entry

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanner: walk %s: %w", path, err)
		}

		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("scanner: relativize %s: %w", path, relErr)
		}

		if d.IsDir() {
			if d.Name() == layout.PrivateDirName {
				return filepath.SkipDir
			}
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return fmt.Errorf("scanner: stat %s: %w", path, statErr)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			// Follow the link to its target; a symlink to a directory is
			// neither descended nor reported.
			info, statErr = os.Stat(path)
			if statErr != nil {
				return fmt.Errorf("scanner: stat %s: %w", path, statErr)
			}
			if info.IsDir() {
				return nil
			}
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		entries = append(entries, Entry{
			Path:                filepath.ToSlash(rel),
			SizeBytes:           info.Size(),
			ModifiedTimeSeconds: info.ModTime().Unix(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanner: scan %s: %w", root, walkErr)
	}
	return entries, nil
}
