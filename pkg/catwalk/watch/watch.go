// Package watch keeps a cataloged root under observation between
// sessions. Filesystem events are coalesced into a dirty set of
// directories; after a quiet period the set is handed to the caller,
// which typically runs a delta session to fold the changes in. Event
// storms (large copies, unpacking archives) collapse into one rescan.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fairweather/catwalk/pkg/catwalk/logging"
)

// DefaultDebounce is how long the tree must stay quiet before the dirty
// set is flushed.
const DefaultDebounce = 2 * time.Second

// Watcher observes one root recursively.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *logging.Logger

	mu     sync.Mutex
	paths  map[string]bool
	dirty  map[string]struct{}
	closed bool
}

// New creates a watcher. A non-positive debounce uses the default.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logging.Get("watch"),
		paths:    make(map[string]bool),
		dirty:    make(map[string]struct{}),
	}, nil
}

// Watch registers root and every directory below it. Symlinked
// directories are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable subtrees are simply not watched
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			w.addWatch(path)
		}
		return nil
	})
}

func (w *Watcher) addWatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("failed to add watch", "path", path, "error", err)
		return
	}
	w.paths[path] = true
}

// Run blocks until ctx is cancelled, calling onDirty with the dirty
// directory set each time the tree has been quiet for the debounce
// window. The set passed to onDirty is owned by the callee.
func (w *Watcher) Run(ctx context.Context, onDirty func(dirs []string)) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handleEvent(event) {
				if armed && !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
				armed = true
			}

		case <-timer.C:
			armed = false
			if dirs := w.takeDirty(); len(dirs) > 0 && onDirty != nil {
				onDirty(dirs)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// handleEvent folds one event into the dirty set. Returns true when the
// event marks something dirty and the debounce timer should restart.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(event.Name)
	case event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0:
		// Dirty handling below covers all three.
	default:
		// Chmod alone never changes content.
		return false
	}

	w.markDirty(filepath.Dir(event.Name))
	return true
}

// handleCreate picks up directories created under a watched tree so
// their contents keep generating events.
func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() || info.Mode()&fs.ModeSymlink != 0 {
		return
	}

	w.addWatch(path)

	// Directories created in one burst (archive unpack, recursive copy)
	// may already hold a subtree; watch all of it.
	_ = filepath.WalkDir(path, func(subpath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() && subpath != path {
			w.addWatch(subpath)
		}
		return nil
	})
}

func (w *Watcher) markDirty(dir string) {
	w.mu.Lock()
	w.dirty[dir] = struct{}{}
	w.mu.Unlock()
}

// takeDirty drains the dirty set, pruning directories whose ancestor is
// also dirty.
func (w *Watcher) takeDirty() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.dirty) == 0 {
		return nil
	}

	dirs := make([]string, 0, len(w.dirty))
	for dir := range w.dirty {
		covered := false
		for ancestor := filepath.Dir(dir); ; ancestor = filepath.Dir(ancestor) {
			if _, ok := w.dirty[ancestor]; ok {
				covered = true
				break
			}
			if ancestor == filepath.Dir(ancestor) {
				break
			}
		}
		if !covered {
			dirs = append(dirs, dir)
		}
	}

	w.dirty = make(map[string]struct{})
	return dirs
}

// DirtyCount returns the current size of the dirty set.
func (w *Watcher) DirtyCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirty)
}

// Close stops the watcher and releases its watches.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.fsw.Close()
}
