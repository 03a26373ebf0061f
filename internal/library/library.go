// Package library implements the file operations of the music library. Every
// path it accepts is relative to the library root and slash-separated.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"randomfile/internal/dedup"
	"randomfile/internal/fsutil"
)

var (
	ErrOutsideRoot = errors.New("path is outside of allowed directory")
	ErrNotExist    = errors.New("path does not exist")
	ErrNotDir      = errors.New("path is not a directory")
	ErrNotFile     = errors.New("path is not a file")
	ErrExist       = errors.New("already exists")
	ErrBadName     = errors.New("invalid name")
	ErrNotAudio    = errors.New("unsupported file type")
	ErrNoAudio     = errors.New("no audio files found")
)

var validation = []error{ErrOutsideRoot, ErrNotExist, ErrNotDir, ErrNotFile, ErrExist, ErrBadName, ErrNotAudio}

// IsValidation reports whether err is a client mistake rather than an I/O
// failure.
func IsValidation(err error) bool {
	return Reason(err) != ""
}

// Reason returns the message of the validation error wrapped in err, without
// the path it was raised for. It is "" for other errors.
func Reason(err error) string {
	for _, e := range validation {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return ""
}

type Options struct {
	Root      string
	StateDir  string
	AudioExts []string
	// Probe, when set, annotates tree files with their playing time.
	Probe func(absPath string) time.Duration
}

type Library struct {
	root     string
	stateDir string
	exts     map[string]bool
	blobs    *dedup.Store
	probe    func(string) time.Duration
}

func New(opts Options) (*Library, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("library root %s: %w", root, ErrNotDir)
	}
	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(root, ".randomfile")
	}
	stateDir, err = filepath.Abs(stateDir)
	if err != nil {
		return nil, err
	}
	blobs, err := dedup.New(stateDir)
	if err != nil {
		return nil, err
	}
	l := &Library{
		root:     root,
		stateDir: stateDir,
		exts:     map[string]bool{},
		blobs:    blobs,
		probe:    opts.Probe,
	}
	exts := opts.AudioExts
	if len(exts) == 0 {
		exts = []string{".mp3"}
	}
	for _, e := range exts {
		e = strings.ToLower(e)
		l.exts[e] = true
	}
	return l, nil
}

func (l *Library) Root() string     { return l.root }
func (l *Library) StateDir() string { return l.stateDir }

// IsAudio reports whether name has one of the configured audio extensions.
func (l *Library) IsAudio(name string) bool {
	return l.exts[strings.ToLower(filepath.Ext(name))]
}

// resolve maps rel to an absolute path inside the root.
func (l *Library) resolve(rel string) (string, error) {
	abs, err := fsutil.ResolveWithinRoot(l.root, rel)
	if err != nil {
		if errors.Is(err, fsutil.ErrEscape) {
			return "", fmt.Errorf("%q: %w", rel, ErrOutsideRoot)
		}
		return "", err
	}
	if l.Hidden(abs) {
		return "", fmt.Errorf("%q: %w", rel, ErrOutsideRoot)
	}
	return abs, nil
}

// Hidden keeps the state directory out of the library when it lives inside it.
func (l *Library) Hidden(abs string) bool {
	return l.stateDir != l.root && fsutil.Within(l.stateDir, abs)
}

func (l *Library) rel(abs string) string {
	rel, err := fsutil.RelToRoot(l.root, abs)
	if err != nil {
		return ""
	}
	return rel
}

// ValidateDir checks that rel is an existing directory inside the root and
// returns its absolute path.
func (l *Library) ValidateDir(rel string) (string, error) {
	abs, err := l.resolve(rel)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%q: %w", rel, ErrNotExist)
		}
		return "", err
	}
	if !st.IsDir() {
		return "", fmt.Errorf("%q: %w", rel, ErrNotDir)
	}
	return abs, nil
}

// Listing holds the direct children of one directory.
type Listing struct {
	Dirs  []string `json:"dirs"`
	Files []string `json:"files"`
}

// List returns the sub-directories and audio files of a directory.
func (l *Library) List(rel string) (Listing, error) {
	abs, err := l.ValidateDir(rel)
	if err != nil {
		return Listing{}, err
	}
	ents, err := os.ReadDir(abs)
	if err != nil {
		return Listing{}, err
	}
	out := Listing{Dirs: []string{}, Files: []string{}}
	for _, e := range ents {
		childAbs := filepath.Join(abs, e.Name())
		if l.Hidden(childAbs) {
			continue
		}
		switch {
		case e.IsDir():
			out.Dirs = append(out.Dirs, l.rel(childAbs))
		case e.Type().IsRegular() && l.IsAudio(e.Name()):
			out.Files = append(out.Files, l.rel(childAbs))
		}
	}
	sort.Strings(out.Dirs)
	sort.Strings(out.Files)
	return out, nil
}

// Crumb is one breadcrumb segment.
type Crumb struct {
	Name string
	Path string
}

// Breadcrumbs splits rel into navigable segments; the root has none.
func Breadcrumbs(rel string) []Crumb {
	rel = fsutil.CleanRelPath(rel)
	if rel == "" {
		return nil
	}
	parts := strings.Split(rel, "/")
	out := make([]Crumb, 0, len(parts))
	for i, p := range parts {
		out = append(out, Crumb{Name: p, Path: strings.Join(parts[:i+1], "/")})
	}
	return out
}

// Directories returns every directory below the root, sorted, root excluded.
func (l *Library) Directories() ([]string, error) {
	dirs := []string{}
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == l.root {
				return err
			}
			return nil
		}
		if !d.IsDir() || p == l.root {
			return nil
		}
		if l.Hidden(p) {
			return filepath.SkipDir
		}
		dirs = append(dirs, l.rel(p))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Delete removes one regular file.
func (l *Library) Delete(rel string) error {
	abs, err := l.resolve(rel)
	if err != nil {
		return err
	}
	if abs == l.root {
		return fmt.Errorf("%q: %w", rel, ErrNotFile)
	}
	st, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q: %w", rel, ErrNotExist)
		}
		return err
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%q: %w", rel, ErrNotFile)
	}
	return os.Remove(abs)
}

// Move moves a regular file into destDir ("" is the root) and returns its new
// relative path.
func (l *Library) Move(rel, destDir string) (string, error) {
	src, err := l.resolve(rel)
	if err != nil {
		return "", err
	}
	st, err := os.Lstat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%q: %w", rel, ErrNotExist)
		}
		return "", err
	}
	if !st.Mode().IsRegular() {
		return "", fmt.Errorf("%q: %w", rel, ErrNotFile)
	}
	dstDir, err := l.ValidateDir(destDir)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dstDir, filepath.Base(src))
	if dst == src {
		return l.rel(dst), nil
	}
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("%q: %w", l.rel(dst), ErrExist)
	}
	if err := os.Rename(src, dst); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return "", err
		}
		if err := dedup.CopyFile(src, dst); err != nil {
			return "", fmt.Errorf("copy across devices: %w", err)
		}
		if err := os.Remove(src); err != nil {
			return "", fmt.Errorf("copied but failed to remove source: %w", err)
		}
	}
	return l.rel(dst), nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Mkdir creates one directory below parentRel.
func (l *Library) Mkdir(parentRel, name string) (string, error) {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return "", fmt.Errorf("%q: %w", name, ErrBadName)
	}
	parent, err := l.ValidateDir(parentRel)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(parent, name)
	if err := os.Mkdir(abs, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("directory %q: %w", l.rel(abs), ErrExist)
		}
		return "", err
	}
	return l.rel(abs), nil
}

// Save stores an uploaded file in dirRel under its base name. Content goes
// through the blob store so repeated uploads share storage.
func (l *Library) Save(ctx context.Context, dirRel, name string, r io.Reader) (string, error) {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if !validName(name) {
		return "", fmt.Errorf("%q: %w", name, ErrBadName)
	}
	dir, err := l.ValidateDir(dirRel)
	if err != nil {
		return "", err
	}
	blob, err := l.blobs.Put(ctx, r)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	dst := filepath.Join(dir, name)
	if err := dedup.LinkOrCopy(blob.Path, dst); err != nil {
		return "", err
	}
	return l.rel(dst), nil
}

// AudioFile validates a single audio file for direct playback.
func (l *Library) AudioFile(rel string, exts ...string) (string, error) {
	if _, err := l.ValidateDir(fsutil.ParentRel(rel)); err != nil {
		return "", err
	}
	abs, err := l.resolve(rel)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(abs)
	if err != nil || !st.Mode().IsRegular() {
		return "", fmt.Errorf("%q: %w", rel, ErrNotExist)
	}
	if !l.matches(abs, exts) {
		return "", fmt.Errorf("%q: %w", rel, ErrNotAudio)
	}
	return abs, nil
}

func (l *Library) matches(name string, exts []string) bool {
	if len(exts) == 0 {
		return l.IsAudio(name)
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Random picks a file below rel (recursively) uniformly at random. Without
// exts the configured audio extensions apply.
func (l *Library) Random(rel string, exts ...string) (string, error) {
	abs, err := l.ValidateDir(rel)
	if err != nil {
		return "", err
	}
	var files []string
	_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if l.Hidden(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && l.matches(p, exts) {
			files = append(files, p)
		}
		return nil
	})
	if len(files) == 0 {
		return "", ErrNoAudio
	}
	return files[rand.IntN(len(files))], nil
}

// Cover returns a cover image of the directory when one exists.
func (l *Library) Cover(rel string) (string, bool) {
	abs, err := l.ValidateDir(rel)
	if err != nil {
		return "", false
	}
	for _, name := range []string{"cover.jpg", "cover.jpeg", "cover.png", "cover.webp", "folder.jpg", "folder.png"} {
		p := filepath.Join(abs, name)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// Readme returns the README.md of a directory, capped at max bytes.
func (l *Library) Readme(rel string, max int64) ([]byte, bool) {
	abs, err := l.ValidateDir(rel)
	if err != nil {
		return nil, false
	}
	for _, cand := range []string{"README.md", "readme.md"} {
		f, err := os.Open(filepath.Join(abs, cand))
		if err != nil {
			continue
		}
		b, err := io.ReadAll(io.LimitReader(f, max))
		_ = f.Close()
		if err == nil {
			return b, true
		}
	}
	return nil, false
}
