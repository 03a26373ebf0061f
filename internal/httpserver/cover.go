package httpserver

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"randomfile/internal/fsutil"
)

const coverSize = 320

// handleCover serves a scaled JPEG of a directory's cover image, cached in
// the state directory by path and modification time.
func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	rel := fsutil.CleanRelPath(r.URL.Query().Get("path"))
	src, ok := s.lib.Cover(rel)
	if !ok || !isImageExt(strings.ToLower(filepath.Ext(src))) {
		http.NotFound(w, r)
		return
	}
	st, err := os.Stat(src)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	dir := filepath.Join(s.cfg.StateDir, "covers")
	_ = os.MkdirAll(dir, 0o755)
	cached := filepath.Join(dir, fmt.Sprintf("%s-%d.jpg", safeKey(rel), st.ModTime().Unix()))
	if b, err := os.ReadFile(cached); err == nil {
		writeCover(w, b)
		return
	}
	b, err := scaleCover(src, coverSize)
	if err != nil {
		s.logger.Printf("cover %q: %v", rel, err)
		http.NotFound(w, r)
		return
	}
	if err := os.WriteFile(cached, b, 0o644); err != nil {
		s.logger.Printf("cover cache: %v", err)
	}
	writeCover(w, b)
}

func writeCover(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(b)
}

// scaleCover re-encodes a cover as JPEG no larger than a max x max box.
// Smaller images keep their size.
func scaleCover(absPath string, max int) ([]byte, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, os.ErrInvalid
	}

	w, h := fitBox(src.Bounds().Dx(), src.Bounds().Dy(), max)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// fitBox scales w x h down along its longer side to max, never below 1px.
func fitBox(w, h, max int) (int, int) {
	if max <= 0 {
		max = coverSize
	}
	long := w
	if h > long {
		long = h
	}
	if long <= max {
		return w, h
	}
	scale := float64(max) / float64(long)
	return max1(int(float64(w)*scale)), max1(int(float64(h)*scale))
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
