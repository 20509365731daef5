package history

import (
	"errors"
	"testing"

	"github.com/aconbere/sssync/internal/sssync/metadb"
)

func commits(hashes ...string) []metadb.Commit {
	var cs []metadb.Commit
	for _, h := range hashes {
		cs = append(cs, metadb.Commit{Hash: h})
	}
	return cs
}

func TestGetSharedParentFindsAgreementPoint(t *testing.T) {
	// newest-first: l = [c4, c3, c1], r = [c5, c1]; shared = c1
	l := commits("c4", "c3", "c1")
	r := commits("c5", "c1")

	shared, err := GetSharedParent(l, r)
	if err != nil {
		t.Fatalf("GetSharedParent: %v", err)
	}
	if shared != "c1" {
		t.Fatalf("GetSharedParent = %s, want c1", shared)
	}
}

func TestGetSharedParentNoneWhenTailsDiffer(t *testing.T) {
	l := commits("c2", "c1")
	r := commits("c3", "c0")

	if _, err := GetSharedParent(l, r); !errors.Is(err, ErrNoSharedParent) {
		t.Fatalf("GetSharedParent = %v, want ErrNoSharedParent", err)
	}
}

func TestCommitsSince(t *testing.T) {
	haystack := commits("c4", "c3", "c2", "c1")
	got := CommitsSince(haystack, "c2")
	if len(got) != 2 || got[0].Hash != "c4" || got[1].Hash != "c3" {
		t.Fatalf("CommitsSince = %+v", got)
	}
}

func TestCommitsSinceNeedleNotFoundReturnsAll(t *testing.T) {
	haystack := commits("c2", "c1")
	got := CommitsSince(haystack, "missing")
	if len(got) != 2 {
		t.Fatalf("CommitsSince = %+v, want full haystack", got)
	}
}

func TestDiffCommitList(t *testing.T) {
	l := commits("c3", "c1")
	r := commits("c4", "c5", "c1")

	div, err := DiffCommitList(l, r)
	if err != nil {
		t.Fatalf("DiffCommitList: %v", err)
	}
	if div.SharedParent != "c1" {
		t.Fatalf("SharedParent = %s, want c1", div.SharedParent)
	}
	if len(div.Left) != 1 || div.Left[0].Hash != "c3" {
		t.Fatalf("Left = %+v", div.Left)
	}
	if len(div.Right) != 2 {
		t.Fatalf("Right = %+v, want 2 entries", div.Right)
	}
}

func TestDiffCommitListLeftFailsWhenNoDifferences(t *testing.T) {
	l := commits("c1")
	r := commits("c1")

	if _, err := DiffCommitListLeft(l, r); err == nil {
		t.Fatal("expected error when both sides are identical")
	}
}

func TestDiffCommitListLeftSucceedsWithRightAhead(t *testing.T) {
	// l is an ancestor of r (fast-forward case): left is empty, right non-empty.
	l := commits("c1")
	r := commits("c2", "c1")

	left, err := DiffCommitListLeft(l, r)
	if err != nil {
		t.Fatalf("DiffCommitListLeft: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("left = %+v, want empty", left)
	}
}

func TestDiffCommitListNoSharedParent(t *testing.T) {
	l := commits("c2", "c1")
	r := commits("c3", "c0")

	if _, err := DiffCommitList(l, r); !errors.Is(err, ErrNoSharedParent) {
		t.Fatalf("DiffCommitList = %v, want ErrNoSharedParent", err)
	}
}
