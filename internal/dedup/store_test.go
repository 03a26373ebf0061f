package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPutDeduplicates(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, err := s.Put(ctx, strings.NewReader("same bytes"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Put(ctx, strings.NewReader("same bytes"))
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte("same bytes"))
	if a.Sum != hex.EncodeToString(sum[:]) || a.Sum != b.Sum || a.Path != b.Path {
		t.Fatalf("blobs differ: %+v %+v", a, b)
	}
	if a.Size != int64(len("same bytes")) || b.Size != a.Size {
		t.Fatalf("sizes = %d, %d", a.Size, b.Size)
	}
	if ents, _ := os.ReadDir(s.tmp); len(ents) != 0 {
		t.Fatalf("temp files left: %d", len(ents))
	}
}

func TestPutCanceled(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Put = %v", err)
	}
	if ents, _ := os.ReadDir(s.tmp); len(ents) != 0 {
		t.Fatal("temp file left after cancel")
	}
}

func TestLinkOrCopy(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "state"))
	if err != nil {
		t.Fatal(err)
	}
	blob, err := s.Put(context.Background(), strings.NewReader("tune"))
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "lib", "sub", "t.mp3")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LinkOrCopy(blob.Path, dst); err != nil {
		t.Fatal(err)
	}
	if b, err := os.ReadFile(dst); err != nil || string(b) != "tune" {
		t.Fatalf("dst = %q, %v", b, err)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "b")
	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "payload" {
		t.Fatalf("copy = %q", b)
	}
	if err := CopyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Fatal("copying a missing file succeeded")
	}
}
