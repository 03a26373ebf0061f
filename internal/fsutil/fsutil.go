package fsutil

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrEscape is returned when a path resolves outside the root.
var ErrEscape = errors.New("path escape")

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b" or "a\b", and
// returns a safe, slash-based, no-leading-slash relative path ("" means root).
func CleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p) // force absolute for stable cleaning
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// ParentRel returns the directory part of a clean relative path.
func ParentRel(rel string) string {
	rel = CleanRelPath(rel)
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return ""
	}
	return rel[:i]
}

// JoinWithinRoot returns an absolute filesystem path under root for a given rel
// path. It rejects escapes (..).
func JoinWithinRoot(rootAbs string, rel string) (string, error) {
	rel = CleanRelPath(rel)
	if rel == "" {
		return filepath.Clean(rootAbs), nil
	}
	if strings.Contains(rel, "\x00") {
		return "", errors.New("invalid path")
	}
	abs := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(rel)))
	if !Within(rootAbs, abs) {
		return "", ErrEscape
	}
	return abs, nil
}

// ResolveWithinRoot is JoinWithinRoot plus symlink resolution: when the path
// exists, its real location must still be inside the real root.
func ResolveWithinRoot(rootAbs string, rel string) (string, error) {
	abs, err := JoinWithinRoot(rootAbs, rel)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abs, nil
		}
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", err
	}
	if !Within(realRoot, real) {
		return "", ErrEscape
	}
	return abs, nil
}

// Within reports whether abs is root or below it.
func Within(root, abs string) bool {
	root = filepath.Clean(root)
	abs = filepath.Clean(abs)
	return abs == root || strings.HasPrefix(abs, root+string(filepath.Separator))
}

// RelToRoot is the inverse of JoinWithinRoot.
func RelToRoot(rootAbs, abs string) (string, error) {
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", ErrEscape
	}
	return rel, nil
}
