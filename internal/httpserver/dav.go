package httpserver

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/webdav"

	"randomfile/internal/auth"
	"randomfile/internal/fsutil"
)

func (s *Server) davHandler() http.Handler {
	hide := ""
	if rel, err := fsutil.RelToRoot(s.cfg.Root, s.cfg.StateDir); err == nil && rel != "" {
		hide = "/" + rel
	}
	dav := &webdav.Handler{
		Prefix:     "/dav",
		FileSystem: libraryFS{Dir: webdav.Dir(s.cfg.Root), hide: hide},
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				s.logger.Printf("dav: %s %s: %v", r.Method, r.URL.Path, err)
			}
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "GET", "HEAD", "OPTIONS", "PROPFIND":
			// read ok
		default:
			if !auth.CanWrite(s.cfg, r) {
				auth.Challenge(w)
				return
			}
			defer s.index.Invalidate()
		}
		dav.ServeHTTP(w, r)
	})
}

// libraryFS is webdav.Dir without the state directory.
type libraryFS struct {
	webdav.Dir
	hide string
}

func (l libraryFS) hidden(name string) bool {
	if l.hide == "" {
		return false
	}
	name = path.Clean("/" + name)
	return name == l.hide || strings.HasPrefix(name, l.hide+"/")
}

func (l libraryFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	if l.hidden(name) {
		return os.ErrPermission
	}
	return l.Dir.Mkdir(ctx, name, perm)
}

func (l libraryFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if l.hidden(name) {
		return nil, os.ErrNotExist
	}
	if flag&os.O_TRUNC != 0 {
		// Uploaded files may be hardlinks into the blob store; a truncating
		// write must get a fresh inode.
		if err := l.unlink(name); err != nil {
			return nil, err
		}
	}
	f, err := l.Dir.OpenFile(ctx, name, flag, perm)
	if err != nil {
		return nil, err
	}
	if l.hide != "" && path.Clean("/"+name) == path.Dir(l.hide) {
		return listingFile{File: f, skip: path.Base(l.hide)}, nil
	}
	return f, nil
}

func (l libraryFS) unlink(name string) error {
	abs := filepath.Join(string(l.Dir), filepath.FromSlash(path.Clean("/"+name)))
	st, err := os.Lstat(abs)
	if err != nil || !st.Mode().IsRegular() {
		return nil
	}
	return os.Remove(abs)
}

func (l libraryFS) RemoveAll(ctx context.Context, name string) error {
	if l.hidden(name) {
		return os.ErrNotExist
	}
	return l.Dir.RemoveAll(ctx, name)
}

func (l libraryFS) Rename(ctx context.Context, oldName, newName string) error {
	if l.hidden(oldName) || l.hidden(newName) {
		return os.ErrPermission
	}
	return l.Dir.Rename(ctx, oldName, newName)
}

func (l libraryFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	if l.hidden(name) {
		return nil, os.ErrNotExist
	}
	return l.Dir.Stat(ctx, name)
}

// listingFile drops one entry from directory listings.
type listingFile struct {
	webdav.File
	skip string
}

func (f listingFile) Readdir(count int) ([]fs.FileInfo, error) {
	infos, err := f.File.Readdir(count)
	out := infos[:0]
	for _, fi := range infos {
		if fi.Name() != f.skip {
			out = append(out, fi)
		}
	}
	return out, err
}
