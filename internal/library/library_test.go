package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "rock/a.mp3", "a")
	writeFile(t, root, "rock/b.MP3", "b")
	writeFile(t, root, "rock/notes.txt", "n")
	writeFile(t, root, "jazz/live/c.mp3", "c")
	writeFile(t, root, "Blues/d.ogg", "d")
	writeFile(t, root, "top.mp3", "t")
	lib, err := New(Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	return lib, root
}

func TestList(t *testing.T) {
	lib, _ := newTestLibrary(t)

	got, err := lib.List("")
	if err != nil {
		t.Fatal(err)
	}
	want := Listing{Dirs: []string{"Blues", "jazz", "rock"}, Files: []string{"top.mp3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List(root) = %+v, want %+v", got, want)
	}

	got, err = lib.List("rock")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"rock/a.mp3", "rock/b.MP3"}; !reflect.DeepEqual(got.Files, want) {
		t.Fatalf("List(rock).Files = %v, want %v", got.Files, want)
	}
}

func TestListHidesStateDir(t *testing.T) {
	lib, _ := newTestLibrary(t)
	got, err := lib.List("")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range got.Dirs {
		if strings.HasPrefix(d, ".randomfile") {
			t.Fatalf("state dir listed: %v", got.Dirs)
		}
	}
	if _, err := lib.List(".randomfile"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("List(state dir) err = %v, want ErrOutsideRoot", err)
	}
	if !lib.Hidden(filepath.Join(lib.StateDir(), "blobs")) {
		t.Fatal("blob directory not hidden")
	}
	if lib.Hidden(filepath.Join(lib.Root(), "rock")) {
		t.Fatal("library directory hidden")
	}
}

func TestValidateDir(t *testing.T) {
	lib, _ := newTestLibrary(t)
	tests := []struct {
		rel  string
		want error
	}{
		{"", nil},
		{"rock", nil},
		{"../../etc", ErrNotExist}, // cleaned to "etc" below root
		{"missing", ErrNotExist},
		{"top.mp3", ErrNotDir},
	}
	for _, tt := range tests {
		_, err := lib.ValidateDir(tt.rel)
		if tt.want == nil && err != nil {
			t.Errorf("ValidateDir(%q) = %v, want nil", tt.rel, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("ValidateDir(%q) = %v, want %v", tt.rel, err, tt.want)
		}
	}
}

func TestValidateDirRejectsSymlinkEscape(t *testing.T) {
	lib, root := newTestLibrary(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := lib.ValidateDir("escape"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("ValidateDir(escape) = %v, want ErrOutsideRoot", err)
	}
}

func TestDirectories(t *testing.T) {
	lib, _ := newTestLibrary(t)
	got, err := lib.Directories()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Blues", "jazz", "jazz/live", "rock"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Directories() = %v, want %v", got, want)
	}
}

func TestTreeOrderingAndFilter(t *testing.T) {
	lib, _ := newTestLibrary(t)
	lib.probe = func(string) time.Duration { return 90 * time.Second }

	root, err := lib.Tree("")
	if err != nil {
		t.Fatal(err)
	}
	if root.Name != "Root" || root.Path != "" {
		t.Fatalf("root node = %+v", root)
	}
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	if want := []string{"Blues", "jazz", "rock", "top.mp3"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("children = %v, want %v", names, want)
	}
	blues := root.Children[0]
	if len(blues.Children) != 0 {
		t.Fatalf("ogg file should be filtered out, got %+v", blues.Children)
	}
	top := root.Children[3]
	if top.Type != TypeFile || top.Duration != 90*time.Second {
		t.Fatalf("top.mp3 node = %+v", top)
	}
}

func TestBreadcrumbs(t *testing.T) {
	if got := Breadcrumbs(""); got != nil {
		t.Fatalf("Breadcrumbs(root) = %v", got)
	}
	got := Breadcrumbs("jazz/live")
	want := []Crumb{{Name: "jazz", Path: "jazz"}, {Name: "live", Path: "jazz/live"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Breadcrumbs = %v, want %v", got, want)
	}
}

func TestDelete(t *testing.T) {
	lib, root := newTestLibrary(t)
	if err := lib.Delete("rock/a.mp3"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "rock", "a.mp3")); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := lib.Delete("rock/a.mp3"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("second delete = %v, want ErrNotExist", err)
	}
	if err := lib.Delete("rock"); !errors.Is(err, ErrNotFile) {
		t.Fatalf("delete dir = %v, want ErrNotFile", err)
	}
	if err := lib.Delete(""); !errors.Is(err, ErrNotFile) {
		t.Fatalf("delete root = %v, want ErrNotFile", err)
	}
}

func TestMove(t *testing.T) {
	lib, root := newTestLibrary(t)

	got, err := lib.Move("rock/a.mp3", "jazz/live")
	if err != nil {
		t.Fatal(err)
	}
	if got != "jazz/live/a.mp3" {
		t.Fatalf("Move = %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "jazz", "live", "a.mp3")); err != nil {
		t.Fatal(err)
	}

	got, err = lib.Move("jazz/live/a.mp3", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "a.mp3" {
		t.Fatalf("Move to root = %q", got)
	}

	if _, err := lib.Move("a.mp3", "missing"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("move to missing dir = %v", err)
	}
	if _, err := lib.Move("rock", "jazz"); !errors.Is(err, ErrNotFile) {
		t.Fatalf("move dir = %v", err)
	}
	writeFile(t, root, "jazz/top.mp3", "x")
	if _, err := lib.Move("top.mp3", "jazz"); !errors.Is(err, ErrExist) {
		t.Fatalf("move onto existing = %v", err)
	}
}

func TestMkdir(t *testing.T) {
	lib, root := newTestLibrary(t)
	got, err := lib.Mkdir("rock", "punk")
	if err != nil {
		t.Fatal(err)
	}
	if got != "rock/punk" {
		t.Fatalf("Mkdir = %q", got)
	}
	if st, err := os.Stat(filepath.Join(root, "rock", "punk")); err != nil || !st.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
	if _, err := lib.Mkdir("rock", "punk"); !errors.Is(err, ErrExist) {
		t.Fatalf("duplicate mkdir = %v", err)
	}
	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		if _, err := lib.Mkdir("", bad); !errors.Is(err, ErrBadName) {
			t.Errorf("Mkdir(%q) = %v, want ErrBadName", bad, err)
		}
	}
}

func TestSaveDeduplicates(t *testing.T) {
	lib, root := newTestLibrary(t)
	ctx := context.Background()

	p1, err := lib.Save(ctx, "rock", "new.mp3", strings.NewReader("same bytes"))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := lib.Save(ctx, "jazz", `C:\music\copy.mp3`, strings.NewReader("same bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if p1 != "rock/new.mp3" || p2 != "jazz/copy.mp3" {
		t.Fatalf("Save paths = %q, %q", p1, p2)
	}
	b, err := os.ReadFile(filepath.Join(root, "jazz", "copy.mp3"))
	if err != nil || string(b) != "same bytes" {
		t.Fatalf("content = %q, %v", b, err)
	}
	blobs, err := os.ReadDir(filepath.Join(lib.StateDir(), "blobs"))
	if err != nil {
		t.Fatal(err)
	}
	if len(blobs) != 1 {
		t.Fatalf("expected 1 blob, got %d", len(blobs))
	}
	if _, err := lib.Save(ctx, "missing", "x.mp3", strings.NewReader("x")); !errors.Is(err, ErrNotExist) {
		t.Fatalf("save into missing dir = %v", err)
	}
}

func TestRandom(t *testing.T) {
	lib, root := newTestLibrary(t)
	for i := 0; i < 20; i++ {
		p, err := lib.Random("rock")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(p, filepath.Join(root, "rock")) || !lib.IsAudio(p) {
			t.Fatalf("Random picked %q", p)
		}
	}
	p, err := lib.Random("", ".ogg")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "d.ogg" {
		t.Fatalf("Random(.ogg) = %q", p)
	}
	if _, err := lib.Random("rock", ".flac"); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("no flac = %v", err)
	}
}

func TestAudioFile(t *testing.T) {
	lib, _ := newTestLibrary(t)
	if _, err := lib.AudioFile("rock/a.mp3", ".mp3"); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.AudioFile("rock/notes.txt", ".mp3"); !errors.Is(err, ErrNotAudio) {
		t.Fatalf("txt = %v", err)
	}
	if _, err := lib.AudioFile("rock/zz.mp3", ".mp3"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("missing = %v", err)
	}
}
