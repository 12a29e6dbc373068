// Package enumerate walks a directory tree with an explicit work list, so
// traversal depth is never bounded by the process stack. Children of each
// directory are listed through the transient-fault executor, sorted
// byte-wise, and filtered (hidden, glob-ignore, symlink policy) before
// being emitted into the backpressure queue as FileEntry values.
//
// The walk visits entries in the total order defined by types.PathCompare,
// which makes it restartable: given a resume-after path, every entry that
// sorts at or before it is skipped, and whole directories whose subtree
// sorts before it are pruned without listing.
package enumerate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/fairweather/catwalk/pkg/catwalk/fault"
	"github.com/fairweather/catwalk/pkg/catwalk/logging"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// Symlink policies.
const (
	SymlinkIgnore = "ignore"
	SymlinkFollow = "follow"
)

// Long-path policies.
const (
	LongPathNever = "never"
	LongPathAuto  = "auto"
	LongPathForce = "force"
)

// systemNames are volume-management directories skipped alongside hidden
// entries.
var systemNames = map[string]bool{
	"System Volume Information": true,
	"$RECYCLE.BIN":              true,
	"lost+found":                true,
}

// Options configures an enumeration pass.
type Options struct {
	// Root is the directory to walk.
	Root string

	// SkipHidden skips dotfiles and system directories.
	SkipHidden bool

	// IgnoreGlobs are glob patterns matched against the full path.
	IgnoreGlobs []string

	// ExcludePaths are absolute path prefixes never entered.
	ExcludePaths []string

	// Symlinks is the symlink policy. Default is SymlinkIgnore.
	Symlinks string

	// LongPaths is the long-path policy. Default is LongPathAuto.
	LongPaths string

	// ResumeAfter skips every entry sorting at or before this path under
	// the traversal order. Empty means a fresh walk.
	ResumeAfter string

	// OnEmit, when set, observes every emitted path in traversal order,
	// before the entry enters the queue. The checkpoint manager uses it to
	// learn the enumeration sequence.
	OnEmit func(path string)

	// Executor wraps directory listings and stats. Required.
	Executor *fault.Executor
}

// devIno identifies a filesystem object for cycle detection.
type devIno struct {
	dev uint64
	ino uint64
}

// Enumerator walks one tree. It is single-goroutine; counters need no
// synchronization until Run returns.
type Enumerator struct {
	opts   Options
	globs  []glob.Glob
	exec   *fault.Executor
	logger *logging.Logger

	counters types.SkipCounters

	// visited holds (device, inode) pairs of directories already entered
	// in this traversal; a repeat means a symlink cycle.
	visited map[devIno]struct{}
	warned  map[devIno]struct{}
}

// New creates an enumerator, compiling ignore globs up front.
func New(opts Options) (*Enumerator, error) {
	if opts.Executor == nil {
		opts.Executor = fault.New(fault.DefaultOptions())
	}
	if opts.Symlinks == "" {
		opts.Symlinks = SymlinkIgnore
	}
	if opts.LongPaths == "" {
		opts.LongPaths = LongPathAuto
	}

	globs := make([]glob.Glob, 0, len(opts.IgnoreGlobs))
	for _, pattern := range opts.IgnoreGlobs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	return &Enumerator{
		opts:    opts,
		globs:   globs,
		exec:    opts.Executor,
		logger:  logging.Get("enumerate"),
		visited: make(map[devIno]struct{}),
		warned:  make(map[devIno]struct{}),
	}, nil
}

// Counters returns a snapshot of the skip counters. Valid after Run
// returns.
func (e *Enumerator) Counters() types.SkipCounters {
	return e.counters
}

// workItem is one pending traversal step on the explicit stack.
type workItem struct {
	path      string
	depth     int
	isDir     bool
	isSymlink bool
}

// Run walks the tree, emitting file entries into out. It returns only on
// root failure or cancellation; per-entry failures are counted and
// skipped. The caller closes the queue.
func (e *Enumerator) Run(ctx context.Context, out *Queue) error {
	root, err := filepath.Abs(e.opts.Root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	rootInfo, err := e.exec.Stat(ctx, root)
	if err != nil {
		return fmt.Errorf("stat root %s: %w", root, err)
	}
	if !rootInfo.IsDir() {
		return fmt.Errorf("root %s: %w", root, os.ErrInvalid)
	}

	if e.opts.Symlinks == SymlinkFollow {
		if di, ok := sysDevIno(rootInfo); ok {
			e.visited[di] = struct{}{}
		}
	}

	// Explicit LIFO stack. Children are pushed in reverse sorted order so
	// they pop in sorted order, giving depth-first preorder.
	stack := []workItem{{path: root, depth: 0, isDir: true}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.isDir {
			stack = e.enterDirectory(ctx, item, stack)
			continue
		}

		if err := e.emitFile(ctx, item, out); err != nil {
			return err
		}
	}

	return nil
}

// enterDirectory lists a directory and pushes its filtered children.
func (e *Enumerator) enterDirectory(ctx context.Context, dir workItem, stack []workItem) []workItem {
	listPath := e.opPath(dir.path)

	entries, err := e.exec.ReadDir(ctx, listPath)
	if err != nil {
		e.countFailure(dir.path, err)
		return stack
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	// Reverse push so the byte-wise smallest child pops first.
	for i := len(entries) - 1; i >= 0; i-- {
		child, ok := e.filterChild(ctx, dir, entries[i])
		if ok {
			stack = append(stack, child)
		}
	}

	return stack
}

// filterChild applies the filter chain to one directory entry, in order:
// hidden/system, glob ignore, resume pruning, long-path policy, symlink
// policy.
func (e *Enumerator) filterChild(ctx context.Context, dir workItem, entry os.DirEntry) (workItem, bool) {
	name := entry.Name()
	path := filepath.Join(dir.path, name)

	if e.opts.SkipHidden && (strings.HasPrefix(name, ".") || systemNames[name]) {
		return workItem{}, false
	}

	if e.isIgnored(path) {
		e.counters.Ignored++
		return workItem{}, false
	}

	if !e.withinResume(path, entry.IsDir() || entry.Type()&fs.ModeSymlink != 0) {
		return workItem{}, false
	}

	if e.opts.LongPaths == LongPathNever && len(path) > conventionalPathLimit {
		e.counters.LongPath++
		return workItem{}, false
	}

	item := workItem{path: path, depth: dir.depth + 1}

	switch {
	case entry.Type()&fs.ModeSymlink != 0:
		return e.resolveSymlink(ctx, item)
	case entry.IsDir():
		item.isDir = true
		if !e.admitDirectory(ctx, item) {
			return workItem{}, false
		}
		return item, true
	case entry.Type().IsRegular():
		return item, true
	default:
		// Sockets, devices and pipes have no cataloguable content.
		return workItem{}, false
	}
}

// resolveSymlink applies the symlink policy to a link entry.
func (e *Enumerator) resolveSymlink(ctx context.Context, item workItem) (workItem, bool) {
	if e.opts.Symlinks != SymlinkFollow {
		return workItem{}, false
	}

	info, err := e.exec.Stat(ctx, e.opPath(item.path))
	if err != nil {
		e.countFailure(item.path, err)
		return workItem{}, false
	}

	item.isSymlink = true
	if info.IsDir() {
		item.isDir = true
		if !e.admitDirectory(ctx, item) {
			return workItem{}, false
		}
		return item, true
	}
	if info.Mode().IsRegular() {
		return item, true
	}
	return workItem{}, false
}

// admitDirectory performs cycle detection for a directory about to be
// entered. Only active when following symlinks; a repeated (device, inode)
// pair prunes the branch with a one-time warning.
func (e *Enumerator) admitDirectory(ctx context.Context, item workItem) bool {
	if e.opts.Symlinks != SymlinkFollow {
		return true
	}

	info, err := e.exec.Stat(ctx, e.opPath(item.path))
	if err != nil {
		e.countFailure(item.path, err)
		return false
	}

	di, ok := sysDevIno(info)
	if !ok {
		return true
	}

	if _, seen := e.visited[di]; seen {
		e.counters.Cycles++
		if _, w := e.warned[di]; !w {
			e.warned[di] = struct{}{}
			e.logger.Warn("symlink cycle pruned", "path", item.path)
		}
		return false
	}

	e.visited[di] = struct{}{}
	return true
}

// emitFile stats a file and pushes its entry into the queue.
func (e *Enumerator) emitFile(ctx context.Context, item workItem, out *Queue) error {
	statFn := e.exec.Lstat
	if item.isSymlink {
		statFn = e.exec.Stat
	}

	info, err := statFn(ctx, e.opPath(item.path))
	if err != nil {
		e.countFailure(item.path, err)
		return nil
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	entry := types.FileEntry{
		Path:      item.path,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		IsSymlink: item.isSymlink,
		Depth:     item.depth,
	}
	if di, ok := sysDevIno(info); ok {
		entry.Device = di.dev
		entry.Inode = di.ino
	}

	if e.opts.OnEmit != nil {
		e.opts.OnEmit(entry.Path)
	}

	return out.Push(ctx, entry)
}

// withinResume reports whether an entry is still ahead of the resume
// cursor. Directories that are ancestors of the cursor must be entered so
// the walk can reach the first unprocessed path; any other subtree sorting
// at or before the cursor is pruned whole.
func (e *Enumerator) withinResume(path string, isDir bool) bool {
	if e.opts.ResumeAfter == "" {
		return true
	}

	cmp := types.PathCompare(path, e.opts.ResumeAfter)
	if cmp > 0 {
		return true
	}

	if isDir && strings.HasPrefix(e.opts.ResumeAfter, path+string(filepath.Separator)) {
		return true
	}

	return false
}

// isIgnored checks exclude prefixes and compiled ignore globs.
func (e *Enumerator) isIgnored(path string) bool {
	for _, prefix := range e.opts.ExcludePaths {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}

	for _, g := range e.globs {
		if g.Match(path) {
			return true
		}
	}

	return false
}

// countFailure buckets a per-entry failure into the skip counters.
func (e *Enumerator) countFailure(path string, err error) {
	switch fault.Classify(err) {
	case fault.ClassPermission:
		e.counters.Permission++
		e.logger.Debug("permission denied", "path", path)
	case fault.ClassPathTooLong:
		e.counters.LongPath++
		e.logger.Debug("path too long", "path", path)
	default:
		e.counters.ReadFailed++
		e.logger.Warn("entry skipped", "path", path, "err", err)
	}
}

// opPath returns the path form to hand to filesystem operations under the
// long-path policy.
func (e *Enumerator) opPath(path string) string {
	switch e.opts.LongPaths {
	case LongPathForce:
		return extendedPath(path)
	case LongPathAuto:
		if len(path) > conventionalPathLimit {
			return extendedPath(path)
		}
	}
	return path
}
