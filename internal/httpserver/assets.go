package httpserver

import (
	"io/fs"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

// assets serves the embedded stylesheet and loader script, minified once at
// startup. Other names fall through to the optional assets directory, where
// the wasm build output lives.
type assets struct {
	files map[string]asset
	disk  http.Handler
}

type asset struct {
	contentType string
	body        []byte
}

var minifiers = map[string]string{
	".css": "text/css",
	".js":  "application/javascript",
}

func loadAssets(web fs.FS, dir string, logger *log.Logger) (*assets, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	a := &assets{files: map[string]asset{}}
	err := fs.WalkDir(web, "assets", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := fs.ReadFile(web, p)
		if err != nil {
			return err
		}
		a.add(m, strings.TrimPrefix(p, "assets/"), raw, logger)
		return nil
	})
	if err != nil {
		return nil, err
	}
	hl, err := highlightCSS()
	if err != nil {
		return nil, err
	}
	a.add(m, "highlight.css", hl, logger)
	if dir != "" {
		a.disk = http.FileServer(http.Dir(dir))
	}
	return a, nil
}

func (a *assets) add(m *minify.M, name string, raw []byte, logger *log.Logger) {
	ext := strings.ToLower(path.Ext(name))
	ct := mime.TypeByExtension(ext)
	if mt, ok := minifiers[ext]; ok {
		ct = mt + "; charset=utf-8"
		out, err := m.Bytes(mt, raw)
		if err != nil {
			logger.Printf("assets: minify warning: %s: %v (using original)", name, err)
			out = raw
		}
		raw = out
	}
	a.files[name] = asset{contentType: ct, body: raw}
}

func (a *assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if f, ok := a.files[name]; ok {
		if f.contentType != "" {
			w.Header().Set("Content-Type", f.contentType)
		}
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(f.body)
		return
	}
	if a.disk != nil {
		a.disk.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}
