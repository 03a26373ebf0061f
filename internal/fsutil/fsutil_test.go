package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCleanRelPath(t *testing.T) {
	tests := map[string]string{
		"":           "",
		".":          "",
		"/":          "",
		" a/b ":      "a/b",
		"/a//b/":     "a/b",
		`a\b`:        "a/b",
		"../../etc":  "etc",
		"a/../../b":  "b",
		"a/./b/../c": "a/c",
	}
	for in, want := range tests {
		if got := CleanRelPath(in); got != want {
			t.Errorf("CleanRelPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParentRel(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"a":         "",
		"a/b":       "a",
		"a/b/c.mp3": "a/b",
	}
	for in, want := range tests {
		if got := ParentRel(in); got != want {
			t.Errorf("ParentRel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinWithinRoot(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "music")
	got, err := JoinWithinRoot(root, "rock/a.mp3")
	if err != nil || got != filepath.Join(root, "rock", "a.mp3") {
		t.Fatalf("JoinWithinRoot = %q, %v", got, err)
	}
	if got, _ := JoinWithinRoot(root, "../x"); got != filepath.Join(root, "x") {
		t.Fatalf("dot-dot not confined: %q", got)
	}
	if _, err := JoinWithinRoot(root, "a\x00b"); err == nil {
		t.Fatal("NUL accepted")
	}
}

func TestResolveWithinRootSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := ResolveWithinRoot(root, "escape"); !errors.Is(err, ErrEscape) {
		t.Fatalf("symlink out of root: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "in"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "in"), filepath.Join(root, "alias")); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveWithinRoot(root, "alias"); err != nil {
		t.Fatalf("symlink inside root: %v", err)
	}
	if _, err := ResolveWithinRoot(root, "missing/file"); err != nil {
		t.Fatalf("missing path: %v", err)
	}
}

func TestWithinAndRelToRoot(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "music")
	if !Within(root, root) || !Within(root, filepath.Join(root, "a")) {
		t.Fatal("Within rejects paths below root")
	}
	if Within(root, root+"2") {
		t.Fatal("Within accepts a sibling with a shared prefix")
	}
	if rel, err := RelToRoot(root, filepath.Join(root, "a", "b")); err != nil || rel != "a/b" {
		t.Fatalf("RelToRoot = %q, %v", rel, err)
	}
	if rel, err := RelToRoot(root, root); err != nil || rel != "" {
		t.Fatalf("RelToRoot(root) = %q, %v", rel, err)
	}
	if _, err := RelToRoot(root, filepath.Dir(root)); !errors.Is(err, ErrEscape) {
		t.Fatalf("RelToRoot(parent) = %v", err)
	}
}
