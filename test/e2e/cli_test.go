//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aconbere/sssync/internal/sssync/hash"
)

// TestInitCommitTree covers S1: init, add a file, commit, and verify the
// tree and blob store reflect exactly that one file.
func TestInitCommitTree(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")

	runCLI(t, dir, "add", "a.txt")
	out := runCLI(t, dir, "commit", "-m", "first")
	if !strings.Contains(out, "committed") {
		t.Errorf("expected commit confirmation, got:\n%s", out)
	}
	commitHash := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "committed"))

	log := runCLI(t, dir, "log")
	if strings.Count(log, "commit ") != 1 {
		t.Errorf("expected exactly one commit in log, got:\n%s", log)
	}

	want := hash.Bytes([]byte("hi\n")).String()
	tree := runCLI(t, dir, "tree", commitHash)
	wantLine := "a.txt: " + want
	if strings.TrimSpace(tree) != wantLine {
		t.Errorf("tree output = %q, want %q", strings.TrimSpace(tree), wantLine)
	}

	blobPath := filepath.Join(dir, ".sssync", "objects", want)
	if _, err := os.Stat(blobPath); err != nil {
		t.Errorf("expected blob at %s: %v", blobPath, err)
	}
}

// TestStatusAndSecondCommit covers S2: editing a tracked file surfaces it
// as an unstaged change, and committing it again chains parent hashes.
func TestStatusAndSecondCommit(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "first")

	writeFile(t, dir, "a.txt", "bye\n")
	status := runCLI(t, dir, "status")
	if !strings.Contains(status, "a.txt") {
		t.Errorf("expected a.txt listed as changed, got:\n%s", status)
	}
	if !strings.Contains(status, "Changes not staged for commit") {
		t.Errorf("expected unstaged section, got:\n%s", status)
	}

	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "second")

	log := runCLI(t, dir, "log")
	if strings.Count(log, "commit ") != 2 {
		t.Errorf("expected two commits in log, got:\n%s", log)
	}
}

// TestDeletionCommit covers S3: removing a tracked file and re-adding the
// directory stages a deletion, and committing it empties HEAD's tree.
func TestDeletionCommit(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "first")

	writeFile(t, dir, "a.txt", "bye\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "second")

	if err := os.Remove(filepath.Join(dir, "a.txt")); err != nil {
		t.Fatal(err)
	}
	runCLI(t, dir, "add", ".")

	status := runCLI(t, dir, "status")
	if strings.Contains(status, "Changes not staged for commit") {
		t.Errorf("expected no unstaged changes after staging the deletion, got:\n%s", status)
	}
	if !strings.Contains(status, "deleted:") {
		t.Errorf("expected staged deletion of a.txt, got:\n%s", status)
	}

	delOut := runCLI(t, dir, "commit", "-m", "del")
	delHash := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(delOut), "committed"))

	tree := runCLI(t, dir, "tree", delHash)
	if strings.TrimSpace(tree) != "" {
		t.Errorf("expected empty HEAD tree after deleting a.txt, got:\n%s", tree)
	}
}

// TestBranchSwitchIsolatesWorkingTree covers S4: files added on one branch
// are absent after switching away, and present again on switching back.
func TestBranchSwitchIsolatesWorkingTree(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "first")

	runCLI(t, dir, "branch", "add", "feature")
	runCLI(t, dir, "branch", "switch", "feature")
	writeFile(t, dir, "b.txt", "x\n")
	runCLI(t, dir, "add", "b.txt")
	runCLI(t, dir, "commit", "-m", "b")

	runCLI(t, dir, "branch", "switch", "main")
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("expected b.txt absent on main, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err != nil {
		t.Errorf("expected a.txt present on main: %v", err)
	}

	runCLI(t, dir, "branch", "switch", "feature")
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err != nil {
		t.Errorf("expected a.txt present on feature: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Errorf("expected b.txt present on feature: %v", err)
	}
}

// TestCheckoutRejectsUncommittedChanges exercises the working-tree safety
// guard shared by checkout and branch switch.
func TestCheckoutRejectsUncommittedChanges(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "first")

	writeFile(t, dir, "a.txt", "dirty\n")
	_, code := runCLIAllowFail(t, dir, "branch", "switch", "main")
	if code == 0 {
		t.Error("expected branch switch to fail with uncommitted changes present")
	}
}

// TestMergeFastForward exercises merge across a two-branch history where
// the destination (current HEAD's branch) and the named source branch
// differ, guarding against a regression where both sides resolved off the
// same branch name.
func TestMergeFastForward(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "first")

	runCLI(t, dir, "branch", "add", "feature")
	runCLI(t, dir, "branch", "switch", "feature")
	writeFile(t, dir, "b.txt", "x\n")
	runCLI(t, dir, "add", "b.txt")
	runCLI(t, dir, "commit", "-m", "b")
	featureHead := strings.TrimSpace(strings.SplitN(runCLI(t, dir, "log"), "\n", 2)[0])

	runCLI(t, dir, "branch", "switch", "main")
	runCLI(t, dir, "merge", "feature")

	mainHead := strings.TrimSpace(strings.SplitN(runCLI(t, dir, "log"), "\n", 2)[0])
	if mainHead != featureHead {
		t.Errorf("expected main to fast-forward to feature's head %s, got %s", featureHead, mainHead)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Errorf("expected b.txt present on main after merge: %v", err)
	}
}

// TestCloneFromLocalRemote covers S5: pushing to a local-backed remote and
// cloning from it reproduces the committed tree and history.
func TestCloneFromLocalRemote(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "first")

	backing := filepath.Join(t.TempDir(), "backing")
	runCLI(t, dir, "remote", "add", "origin", backing)
	runCLI(t, dir, "remote", "init", "origin")

	dest := filepath.Join(t.TempDir(), "clone")
	runCLI(t, dir, "clone", backing, dest)

	content, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatalf("expected a.txt in cloned tree: %v", err)
	}
	if string(content) != "hi\n" {
		t.Errorf("cloned a.txt content = %q, want %q", content, "hi\n")
	}

	srcLog := runCLI(t, dir, "log")
	cloneLog := runCLI(t, dest, "log")
	if !strings.Contains(srcLog, strings.TrimSpace(strings.SplitN(cloneLog, "\n", 2)[0])) {
		t.Errorf("expected cloned log's first commit line to appear in source log:\nsrc:\n%s\nclone:\n%s", srcLog, cloneLog)
	}
}

// TestCommitWithNoStagedChangesIsANoop exercises the nothing-to-commit
// path the CLI special-cases to an exit code of 0.
func TestCommitWithNoStagedChangesIsANoop(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "hi\n")
	runCLI(t, dir, "add", "a.txt")
	runCLI(t, dir, "commit", "-m", "first")

	out, code := runCLIAllowFail(t, dir, "commit", "-m", "again")
	if code != 0 {
		t.Errorf("expected exit 0 for nothing-to-commit, got %d:\n%s", code, out)
	}
	if !strings.Contains(out, "nothing to commit") {
		t.Errorf("expected 'nothing to commit' message, got:\n%s", out)
	}
}
