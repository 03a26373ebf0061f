package httpserver

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"randomfile/internal/audio"
	"randomfile/internal/auth"
	"randomfile/internal/config"
	"randomfile/internal/dirindex"
	"randomfile/internal/library"
	"randomfile/internal/ui"
)

type Options struct {
	Config config.Config
	Logger *log.Logger
}

type Server struct {
	cfg       config.Config
	logger    *log.Logger
	lib       *library.Library
	index     *dirindex.Index
	durations *audio.Store
	settings  ui.Settings

	pages    *pages
	assets   *assets
	limiter  *ipLimiter
	markdown goldmark.Markdown

	stop chan struct{}
	wg   sync.WaitGroup
}

//go:embed web/templates/*.html web/assets/*
var embeddedWeb embed.FS

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := opts.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := ui.ParseShowPolicy(cfg.UI.MoveDialog)
	if err != nil {
		return nil, err
	}

	// The duration store lives in the state dir, which the library creates.
	var durations *audio.Cache
	lib, err := library.New(library.Options{
		Root:      cfg.Root,
		StateDir:  cfg.StateDir,
		AudioExts: cfg.AudioExts,
		Probe:     func(p string) time.Duration { return durations.Duration(p) },
	})
	if err != nil {
		return nil, err
	}
	cfg.Root, cfg.StateDir = lib.Root(), lib.StateDir()
	store, err := audio.OpenStore(filepath.Join(cfg.StateDir, "durations.db"))
	if err != nil {
		return nil, fmt.Errorf("open duration store: %w", err)
	}
	durations = audio.NewCache(store, logger)

	web, err := fs.Sub(embeddedWeb, "web")
	if err != nil {
		store.Close()
		return nil, err
	}
	pg, err := parsePages(web)
	if err != nil {
		store.Close()
		return nil, err
	}
	as, err := loadAssets(web, cfg.AssetsDir, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	index, err := dirindex.New(lib, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		lib:       lib,
		index:     index,
		durations: store,
		settings: ui.Settings{
			DismissAfter:   cfg.UI.DismissAfter.Std(),
			MoveDialog:     policy,
			FetchTimeout:   cfg.UI.FetchTimeout.Std(),
			DirectoriesURL: ui.DefaultDirectoriesURL,
		},
		pages:    pg,
		assets:   as,
		limiter:  newIPLimiter(cfg.RateLimit.PerHour, cfg.RateLimit.Burst),
		markdown: newMarkdown(),
		stop:     make(chan struct{}),
	}
	if s.limiter != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.limiter.sweep(10*time.Minute, s.stop)
		}()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.forgetDurations()
	}()
	return s, nil
}

// forgetDurations drops stored durations of files that are gone.
func (s *Server) forgetDurations() {
	n, err := s.durations.Forget(func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})
	if err != nil {
		s.logger.Printf("durations: %v", err)
		return
	}
	if n > 0 {
		s.logger.Printf("durations: forgot %d missing files", n)
	}
}

// Close stops the directory watcher and background sweeps.
func (s *Server) Close() error {
	select {
	case <-s.stop:
		return nil
	default:
		close(s.stop)
	}
	s.wg.Wait()
	return errors.Join(s.index.Close(), s.durations.Close())
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})

	// Login helper for browsers (triggers BasicAuth prompt).
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		if !auth.HasAuth(s.cfg) || auth.UserFromContext(r.Context()) != "" {
			http.Redirect(w, r, "/browse/", http.StatusFound)
			return
		}
		auth.Challenge(w)
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/browse/", http.StatusFound)
	})
	mux.HandleFunc("GET /browse/{subpath...}", s.handleBrowse)
	mux.HandleFunc("GET /directories", s.handleDirectories)

	mux.Handle("POST /delete", s.writes(s.handleDelete))
	mux.Handle("POST /move", s.writes(s.handleMove))
	mux.Handle("POST /upload", s.writes(s.handleUpload))
	mux.Handle("POST /create_directory", s.writes(s.handleCreateDirectory))

	mux.Handle("GET /audio", s.limited(s.handleAudio))
	mux.Handle("GET /audio/{subpath...}", s.limited(s.handleAudio))
	mux.Handle("GET /a", s.limited(s.handleLegacyRandom))
	mux.HandleFunc("GET /cover", s.handleCover)

	mux.Handle("/dav/", s.davHandler())
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", s.assets))

	return withSecurityHeaders(s.cfg, auth.RequireAuth(s.cfg, mux))
}

// writes guards handlers that change the library.
func (s *Server) writes(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.CanWrite(s.cfg, r) {
			auth.Challenge(w)
			return
		}
		if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

func (s *Server) handleDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := s.index.Directories(r.Context())
	if err != nil {
		s.logger.Printf("directories: %v", err)
		writeJSONStatus(w, http.StatusInternalServerError, map[string]any{"error": "Internal server error"})
		return
	}
	writeJSON(w, map[string]any{"directories": dirs})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}

// pathURL escapes every segment of rel below prefix.
func pathURL(prefix, rel string) string {
	if rel == "" {
		return prefix
	}
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return prefix + strings.Join(parts, "/")
}

func browseURL(rel string) string { return pathURL("/browse/", rel) }

func staticURL(rel string) string { return pathURL("/audio/", rel) + "?static=true" }

func coverURL(rel string) string { return "/cover?path=" + url.QueryEscape(rel) }

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}

func contentTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	// mime tables disagree on audio types.
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".aac":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func safeKey(rel string) string {
	rel = strings.ReplaceAll(rel, "/", "_")
	rel = strings.ReplaceAll(rel, "\\", "_")
	rel = strings.ReplaceAll(rel, "..", "_")
	if rel == "" {
		rel = "root"
	}
	return rel
}

// serveFile streams abs with Range support, as an attachment when asked.
func serveFile(w http.ResponseWriter, r *http.Request, abs string, attachment bool) error {
	f, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return errors.New("is a directory")
	}
	if ct := contentTypeForName(st.Name()); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if attachment {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": st.Name()}))
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
	return nil
}

func describe(err error) string {
	if reason := library.Reason(err); reason != "" {
		return reason
	}
	return "unexpected error"
}
