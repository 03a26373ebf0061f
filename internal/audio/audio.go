// Package audio reads stream headers of library files.
package audio

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

var ErrUnsupported = errors.New("unsupported audio format")

var supported = map[string]bool{
	".mp3":  true,
	".ogg":  true,
	".wav":  true,
	".flac": true,
	".aac":  true,
	".m4a":  true,
}

// Supported reports whether ext is a known audio format.
func Supported(ext string) bool {
	return supported[strings.ToLower(ext)]
}

type Info struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Probe decodes the header of an mp3 or wav file.
func Probe(path string) (Info, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" && ext != ".wav" {
		return Info{}, fmt.Errorf("%s: %w", ext, ErrUnsupported)
	}
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	if ext == ".mp3" {
		s, format, err = mp3.Decode(f)
	} else {
		s, format, err = wav.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return Info{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	defer s.Close()

	return Info{
		Duration:   format.SampleRate.D(s.Len()),
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}, nil
}

// Cache memoizes Probe by path, size and modification time. With a Store,
// results also survive restarts.
type Cache struct {
	mu sync.Mutex
	m  map[string]cacheEntry

	store  *Store
	logger *log.Logger
}

type cacheEntry struct {
	size int64
	mod  time.Time
	dur  time.Duration
}

// NewCache returns an in-memory cache backed by store when it is non-nil.
func NewCache(store *Store, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{m: map[string]cacheEntry{}, store: store, logger: logger}
}

// Duration returns the playing time of path, or 0 when it cannot be probed.
func (c *Cache) Duration(path string) time.Duration {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	c.mu.Lock()
	e, ok := c.m[path]
	c.mu.Unlock()
	if ok && e.size == st.Size() && e.mod.Equal(st.ModTime()) {
		return e.dur
	}

	var dur time.Duration
	found := false
	if c.store != nil {
		dur, found, err = c.store.Lookup(path, st.Size(), st.ModTime())
		if err != nil {
			c.logger.Printf("audio: duration lookup %s: %v", path, err)
		}
	}
	if !found {
		info, _ := Probe(path)
		dur = info.Duration
		if c.store != nil {
			if err := c.store.Save(path, st.Size(), st.ModTime(), dur); err != nil {
				c.logger.Printf("audio: duration save %s: %v", path, err)
			}
		}
	}
	c.mu.Lock()
	c.m[path] = cacheEntry{size: st.Size(), mod: st.ModTime(), dur: dur}
	c.mu.Unlock()
	return dur
}

// Clock formats d as m:ss or h:mm:ss.
func Clock(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	s := int(d.Round(time.Second) / time.Second)
	h, m, sec := s/3600, (s/60)%60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
