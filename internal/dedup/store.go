// Package dedup stores uploaded audio once per content. Library files are
// hardlinks to the blobs where the filesystem allows it.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Store struct {
	blobs string
	tmp   string
}

// Blob is one stored content, named by its SHA-256.
type Blob struct {
	Sum  string
	Path string
	Size int64
}

// New opens the store below stateDir, creating blobs/ and tmp/.
func New(stateDir string) (*Store, error) {
	s := &Store{
		blobs: filepath.Join(stateDir, "blobs"),
		tmp:   filepath.Join(stateDir, "tmp"),
	}
	if err := os.MkdirAll(s.blobs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.tmp, 0o755); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) BlobPath(sum string) string {
	return filepath.Join(s.blobs, sum)
}

// Lookup returns the blob with the given sum if it is stored.
func (s *Store) Lookup(sum string) (Blob, bool) {
	p := s.BlobPath(sum)
	st, err := os.Stat(p)
	if err != nil || !st.Mode().IsRegular() {
		return Blob{}, false
	}
	return Blob{Sum: sum, Path: p, Size: st.Size()}, true
}

// Put hashes r into a temp file and files it under its sum. Content that is
// already stored is not written twice. Cancelling ctx aborts the copy.
func (s *Store) Put(ctx context.Context, r io.Reader) (Blob, error) {
	tmp := filepath.Join(s.tmp, "upload-"+uuid.NewString())
	sum, n, err := s.spool(ctx, tmp, r)
	if err != nil {
		_ = os.Remove(tmp)
		return Blob{}, err
	}
	if b, ok := s.Lookup(sum); ok {
		_ = os.Remove(tmp)
		return b, nil
	}
	if err := os.Rename(tmp, s.BlobPath(sum)); err != nil {
		_ = os.Remove(tmp)
		return Blob{}, fmt.Errorf("store blob %s: %w", sum, err)
	}
	return Blob{Sum: sum, Path: s.BlobPath(sum), Size: n}, nil
}

func (s *Store) spool(ctx context.Context, path string, r io.Reader) (string, int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, err
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), readerFunc(func(p []byte) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return r.Read(p)
	}))
	if err = errors.Join(err, f.Close()); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

// CopyFile copies src over dst and syncs it.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// LinkOrCopy places blob at dst, replacing what was there. It hardlinks when
// both live on one filesystem and copies otherwise.
func LinkOrCopy(blob, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if os.Link(blob, dst) == nil {
		return nil
	}
	return CopyFile(blob, dst)
}
