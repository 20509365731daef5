package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesStructure(t *testing.T) {
	root := t.TempDir()

	l, err := Init(root)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, dir := range []string{l.PrivateDir(), l.ObjectsDir(), l.RemotesDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", dir)
		}
	}
}

func TestInitRejectsAlreadyManaged(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := Init(root); err == nil {
		t.Fatal("expected error re-initializing an already-managed root")
	}
}

func TestGetRootPathFindsAncestor(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root); err != nil {
		t.Fatalf("Init: %v", err)
	}

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, err := GetRootPath(nested)
	if err != nil {
		t.Fatalf("GetRootPath: %v", err)
	}
	want, err := filepath.Abs(root)
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if got != want {
		t.Fatalf("GetRootPath = %q, want %q", got, want)
	}
}

func TestGetRootPathReturnsEmptyWhenUnmanaged(t *testing.T) {
	root := t.TempDir()
	got, err := GetRootPath(root)
	if err != nil {
		t.Fatalf("GetRootPath: %v", err)
	}
	if got != "" {
		t.Fatalf("GetRootPath = %q, want empty", got)
	}
}

func TestObjectPath(t *testing.T) {
	l := New("/repo")
	got := l.ObjectPath("deadbeef")
	want := filepath.Join("/repo", PrivateDirName, objectsDir, "deadbeef")
	if got != want {
		t.Fatalf("ObjectPath = %q, want %q", got, want)
	}
}
