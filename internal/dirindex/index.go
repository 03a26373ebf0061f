// Package dirindex keeps the list of library directories that backs the move
// dialog, rescanning only after the filesystem reports a change.
package dirindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Source produces the full directory list. Hidden reports absolute paths
// that are not part of the library; they are never watched.
type Source interface {
	Root() string
	Directories() ([]string, error)
	Hidden(abs string) bool
}

type Index struct {
	src     Source
	logger  *log.Logger
	watcher *fsnotify.Watcher

	mu sync.Mutex
	// version counts invalidations; scanned is the version the cached list
	// was taken at. An event landing during a scan keeps the list stale.
	dirs    []string
	version uint64
	scanned uint64
	scans   int

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// New scans the source once and starts watching every directory of it.
func New(src Source, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	x := &Index{
		src:     src,
		logger:  logger,
		watcher: watcher,
		version: 1,
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	dirs, err := x.rescan()
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(src.Root()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch root: %w", err)
	}
	for _, d := range dirs {
		x.watch(filepath.Join(src.Root(), filepath.FromSlash(d)))
	}
	go x.watchLoop()
	return x, nil
}

func (x *Index) watch(dir string) {
	if err := x.watcher.Add(dir); err != nil {
		x.logger.Printf("dirindex: watch %s: %v", dir, err)
	}
}

// watchTree watches dir and every directory below it. A tree moved into the
// library arrives as a single Create event.
func (x *Index) watchTree(dir string) {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if x.src.Hidden(p) {
			return filepath.SkipDir
		}
		x.watch(p)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		x.logger.Printf("dirindex: walk %s: %v", dir, err)
	}
}

func (x *Index) rescan() ([]string, error) {
	x.mu.Lock()
	v := x.version
	x.mu.Unlock()
	dirs, err := x.src.Directories()
	if err != nil {
		return nil, fmt.Errorf("scan directories: %w", err)
	}
	x.mu.Lock()
	x.dirs = dirs
	x.scanned = v
	x.scans++
	x.mu.Unlock()
	return dirs, nil
}

// Directories returns a copy of the current list, rescanning first when the
// tree changed since the last scan.
func (x *Index) Directories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.Lock()
	stale := x.scanned != x.version
	dirs := x.dirs
	x.mu.Unlock()
	if stale {
		var err error
		if dirs, err = x.rescan(); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), dirs...), nil
}

// Invalidate forces a rescan on the next read. Handlers that change the tree
// call it without waiting for the watcher event.
func (x *Index) Invalidate() {
	x.mu.Lock()
	x.version++
	x.mu.Unlock()
}

// Scans reports how many full scans ran.
func (x *Index) Scans() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.scans
}

func (x *Index) watchLoop() {
	defer close(x.done)
	for {
		select {
		case <-x.closed:
			return
		case event, ok := <-x.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if x.src.Hidden(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					x.watchTree(event.Name)
				}
			}
			x.Invalidate()
		case err, ok := <-x.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				x.Invalidate()
			}
			x.logger.Printf("dirindex: watcher error: %v", err)
		}
	}
}

func (x *Index) Close() error {
	var err error
	x.closeOnce.Do(func() {
		close(x.closed)
		err = x.watcher.Close()
		<-x.done
	})
	return err
}
