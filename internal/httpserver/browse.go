package httpserver

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"randomfile/internal/auth"
	"randomfile/internal/flash"
	"randomfile/internal/fsutil"
	"randomfile/internal/library"
)

const (
	maxReadme = 256 << 10
	maxUpload = 1 << 30
)

type browsePage struct {
	CurrentPath string
	Crumbs      []library.Crumb
	Listing     library.Listing
	Tree        *library.Node
	Flashes     []flash.Message
	Readme      template.HTML
	Cover       string
	CanWrite    bool
	ShowLogin   bool
	UI          map[string]string
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	rel := fsutil.CleanRelPath(r.PathValue("subpath"))
	listing, err := s.lib.List(rel)
	if err != nil {
		s.pageError(w, "browse", err)
		return
	}
	tree, err := s.lib.Tree("")
	if err != nil {
		s.pageError(w, "browse", err)
		return
	}
	page := browsePage{
		CurrentPath: rel,
		Crumbs:      library.Breadcrumbs(rel),
		Listing:     listing,
		Tree:        tree,
		CanWrite:    auth.CanWrite(s.cfg, r),
		ShowLogin:   auth.HasAuth(s.cfg) && auth.UserFromContext(r.Context()) == "",
		UI:          s.settings.Attrs(),
	}
	if md, ok := s.lib.Readme(rel, maxReadme); ok {
		html, err := s.renderMarkdown(md)
		if err != nil {
			s.logger.Printf("browse: readme %q: %v", rel, err)
		}
		page.Readme = html
	}
	if _, ok := s.lib.Cover(rel); ok {
		page.Cover = coverURL(rel)
	}
	page.Flashes = flash.Pop(w, r)
	s.pages.render(w, http.StatusOK, "browse.html", page)
}

// pageError answers a browse failure with the HTML error page.
func (s *Server) pageError(w http.ResponseWriter, op string, err error) {
	if library.IsValidation(err) {
		s.pages.renderError(w, http.StatusForbidden, "Forbidden", library.Reason(err))
		return
	}
	s.logger.Printf("%s: %v", op, err)
	s.pages.renderError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
}

// back redirects to the browse page the form was posted from.
func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	target := "/browse/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && strings.HasPrefix(ref.Path, "/browse/") {
		target = ref.EscapedPath()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// done redirects to the browse page of dir.
func (s *Server) done(w http.ResponseWriter, r *http.Request, dir string) {
	http.Redirect(w, r, browseURL(fsutil.CleanRelPath(dir)), http.StatusSeeOther)
}

// failed flashes the outcome of a failed operation. Unexpected errors are
// logged and shown without detail.
func (s *Server) failed(w http.ResponseWriter, r *http.Request, what string, err error) {
	if !library.IsValidation(err) {
		s.logger.Printf("%s: %v", what, err)
	}
	flash.Add(w, r, flash.Error, "Error "+what+": "+describe(err))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimSpace(r.PostFormValue("file_path"))
	if rel == "" {
		flash.Add(w, r, flash.Error, "No file specified")
		s.back(w, r)
		return
	}
	rel = fsutil.CleanRelPath(rel)
	if err := s.lib.Delete(rel); err != nil {
		s.failed(w, r, "deleting file", err)
	} else {
		s.logger.Printf("delete: %s", rel)
		flash.Add(w, r, flash.Success, "File deleted successfully")
	}
	s.done(w, r, fsutil.ParentRel(rel))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	rel := strings.TrimSpace(r.PostForm.Get("file_path"))
	if rel == "" {
		flash.Add(w, r, flash.Error, "No file specified")
		s.back(w, r)
		return
	}
	// An empty destination is the root; a missing one is a broken form.
	dest, ok := r.PostForm["destination"]
	if !ok || len(dest) == 0 {
		flash.Add(w, r, flash.Error, "No destination specified")
		s.back(w, r)
		return
	}
	rel = fsutil.CleanRelPath(rel)
	moved, err := s.lib.Move(rel, fsutil.CleanRelPath(dest[0]))
	if err != nil {
		s.failed(w, r, "moving file", err)
	} else {
		s.logger.Printf("move: %s -> %s", rel, moved)
		flash.Add(w, r, flash.Success, "File moved successfully")
	}
	s.done(w, r, fsutil.ParentRel(rel))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			flash.Add(w, r, flash.Error, "Error uploading file: file too large")
		} else {
			flash.Add(w, r, flash.Error, "No file part")
		}
		s.back(w, r)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		flash.Add(w, r, flash.Error, "No file part")
		s.back(w, r)
		return
	}
	defer file.Close()
	if fh.Filename == "" {
		flash.Add(w, r, flash.Error, "No selected file")
		s.back(w, r)
		return
	}

	dir := fsutil.CleanRelPath(r.FormValue("subpath"))
	saved, err := s.lib.Save(r.Context(), dir, fh.Filename, file)
	if err != nil {
		s.failed(w, r, "uploading file", err)
	} else {
		s.logger.Printf("upload: %s (%d bytes)", saved, fh.Size)
		flash.Add(w, r, flash.Success, "File uploaded successfully")
	}
	s.done(w, r, dir)
}

func (s *Server) handleCreateDirectory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("dir_name"))
	if name == "" {
		flash.Add(w, r, flash.Error, "No directory name specified")
		s.back(w, r)
		return
	}
	parent := fsutil.CleanRelPath(r.PostFormValue("parent_path"))
	created, err := s.lib.Mkdir(parent, name)
	if err != nil {
		s.failed(w, r, "creating directory", err)
	} else {
		s.index.Invalidate()
		s.logger.Printf("mkdir: %s", created)
		flash.Add(w, r, flash.Success, "Directory created successfully")
	}
	s.done(w, r, parent)
}
