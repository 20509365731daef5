package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local implements BlobTransport against a directory on the local
// filesystem, backing the Local remote kind (§6's Remote.kind) and giving
// tests and demos a remote to exercise without network access. Multipart
// semantics don't apply to a local copy, so PutObjectMultipart just writes
// the file directly — the force/exists check still mirrors the S3 flow.
type Local struct {
	root string
}

// NewLocal returns a transport rooted at dir, creating it if necessary.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("transport: local: %w", err)
	}
	return &Local{root: dir}, nil
}

func (t *Local) path(key string) string {
	return filepath.Join(t.root, filepath.FromSlash(key))
}

func (t *Local) HeadObject(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(t.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("transport: local: head object %s: %w", key, err)
	}
	return true, nil
}

func (t *Local) GetObject(ctx context.Context, key string, w io.Writer) error {
	f, err := os.Open(t.path(key))
	if err != nil {
		return fmt.Errorf("transport: local: get object %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("transport: local: get object %s: %w", key, err)
	}
	return nil
}

func (t *Local) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	return t.write(key, r)
}

func (t *Local) PutObjectMultipart(ctx context.Context, key string, r io.Reader, size int64, force bool) error {
	if !force {
		exists, err := t.HeadObject(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("transport: local: put object multipart %s: %w", key, ErrObjectExists)
		}
	}
	return t.write(key, r)
}

func (t *Local) write(key string, r io.Reader) error {
	dest := t.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("transport: local: write %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("transport: local: write %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("transport: local: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("transport: local: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("transport: local: write %s: %w", key, err)
	}
	return nil
}
