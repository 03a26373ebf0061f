package httpserver

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path"
	"strings"

	"randomfile/internal/audio"
	"randomfile/internal/ui"
)

type pages struct {
	tmpl *template.Template
}

type errorPage struct {
	Code        int
	Message     string
	Description string
}

func parsePages(web fs.FS) (*pages, error) {
	funcs := template.FuncMap{
		// every node starts collapsed
		"glyph":     func() string { return ui.Collapsed.Glyph() },
		"clock":     audio.Clock,
		"browseURL": browseURL,
		"staticURL": staticURL,
		"randomURL": func(rel string) string { return pathURL("/audio/", rel) },
		"base":      path.Base,
		"playable":  func(rel string) bool { return strings.EqualFold(path.Ext(rel), ".mp3") },
		"attr":      func(m map[string]string, name string) string { return m[name] },
	}
	tmpl, err := template.New("root").Funcs(funcs).ParseFS(web, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &pages{tmpl: tmpl}, nil
}

// render executes name into a buffer first so a template error never leaves
// a half-written page.
func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("template %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *pages) renderError(w http.ResponseWriter, code int, message, description string) {
	p.render(w, code, "error.html", errorPage{Code: code, Message: message, Description: description})
}
