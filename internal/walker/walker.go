// Package walker performs the parallel filesystem walk that seeds a
// fresh index: it descends a root directory, sorts each directory's
// children by name for a deterministic lexicographic preorder, and
// hands the result to internal/indextree as a plain, unindexed tree.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/logx"
	"github.com/fsindex/fsindex/internal/slab"
	"golang.org/x/sync/errgroup"
)

// Options configures a single walk.
type Options struct {
	// RootPath is the directory to walk; it becomes the logical root
	// of the returned tree once ancestor-wrapped back to "/".
	RootPath string
	// IgnoreDirectories lists absolute paths to skip entirely
	// (node_modules, .git, and similar noise directories a caller
	// opts out of).
	IgnoreDirectories []string
	// SkipHidden, when true, skips entries whose own name starts
	// with '.'. The default is to index hidden entries and let the
	// search engine gate them per query.
	SkipHidden bool
	// Progress is called opportunistically as files/directories are
	// counted; it may be called from multiple goroutines and must be
	// safe for concurrent use.
	Progress func(numFiles, numDirs int64)
}

type counters struct {
	numFiles int64
	numDirs  int64
}

// walkState is the per-walk shared state threaded through the
// recursion: progress counters, the error tally, and the semaphore
// bounding how many walker goroutines are live at once. Without the
// bound, one goroutine per directory entry over a multi-million-entry
// tree means a multi-million-goroutine walk.
type walkState struct {
	counters counters
	errCount int64
	sem      chan struct{}
}

// Result is what a walk returns: the wrapped tree ready for
// indextree.FromWalk, plus the count of paths that could not be
// stat'd or read.
type Result struct {
	Root   indextree.WalkedNode
	Errors int
}

// Walk descends opts.RootPath and returns an ancestor-wrapped tree
// rooted at "/": even a walk of
// "/home/user/Documents" produces a tree whose root is "/", with
// synthetic single-child directory nodes for "home" and "user" along
// the way, so the resulting tree always composes with any other
// root's tree under a shared "/" namespace.
func Walk(ctx context.Context, opts Options) Result {
	st := &walkState{sem: make(chan struct{}, 4*runtime.GOMAXPROCS(0))}

	root := filepath.Clean(opts.RootPath)
	node, present := walkPath(ctx, root, opts, st)
	if !present {
		node = indextree.WalkedNode{
			Name:     filepath.Base(root),
			Metadata: slab.NewMetadata(slab.FileTypeDir, 0, 0, 0),
		}
	}
	return Result{Root: wrapAncestors(root, node), Errors: int(st.errCount)}
}

func shouldIgnore(p string, ignore []string) bool {
	for _, ig := range ignore {
		if p == ig || strings.HasPrefix(p, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func metadataFromInfo(fi os.FileInfo) slab.Metadata {
	return MetadataFromInfo(fi)
}

// MetadataFromInfo converts an os.FileInfo (from Lstat, so symlinks are
// reported as themselves) into slab Metadata. Exported so the watcher's
// incremental updater can build metadata for a single changed path the
// same way a fresh walk would, without re-running a walk.
func MetadataFromInfo(fi os.FileInfo) slab.Metadata {
	ctime, mtime := timesFromInfo(fi)
	var ft slab.FileType
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		ft = slab.FileTypeSymlink
	case fi.IsDir():
		ft = slab.FileTypeDir
	default:
		ft = slab.FileTypeFile
	}
	var size uint64
	if ft == slab.FileTypeFile {
		size = uint64(fi.Size())
	}
	return slab.NewMetadata(ft, size, ctime, mtime)
}

// walkPath walks a single path, returning (node, true) if it produced
// an entry, or (zero, false) if the path was cancelled, ignored, or
// unreadable and so contributes nothing to the parent's children.
func walkPath(ctx context.Context, p string, opts Options, st *walkState) (indextree.WalkedNode, bool) {
	if ctx.Err() != nil {
		return indextree.WalkedNode{}, false
	}
	if shouldIgnore(p, opts.IgnoreDirectories) {
		return indextree.WalkedNode{}, false
	}

	name := filepath.Base(p)
	if opts.SkipHidden && isHidden(name) {
		return indextree.WalkedNode{}, false
	}

	info, err := os.Lstat(p)
	if err != nil {
		atomic.AddInt64(&st.errCount, 1)
		logx.Debugf(nil, "walker: stat %s: %v", p, err)
		return indextree.WalkedNode{}, false
	}
	meta := metadataFromInfo(info)

	if !info.IsDir() {
		atomic.AddInt64(&st.counters.numFiles, 1)
		reportProgress(opts, &st.counters)
		return indextree.WalkedNode{Name: name, Metadata: meta}, true
	}

	atomic.AddInt64(&st.counters.numDirs, 1)
	reportProgress(opts, &st.counters)

	entries, err := os.ReadDir(p)
	if err != nil {
		atomic.AddInt64(&st.errCount, 1)
		logx.Debugf(nil, "walker: readdir %s: %v", p, err)
		return indextree.WalkedNode{Name: name, Metadata: meta}, true
	}

	children := make([]indextree.WalkedNode, len(entries))
	present := make([]bool, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		childPath := filepath.Join(p, e.Name())
		// Spawn only while a semaphore slot is free; otherwise recurse
		// on this goroutine. Waiting for a slot here would deadlock
		// once every slot is held by an ancestor blocked in Wait.
		select {
		case st.sem <- struct{}{}:
			g.Go(func() error {
				defer func() { <-st.sem }()
				child, ok := walkPath(gctx, childPath, opts, st)
				children[i] = child
				present[i] = ok
				return nil
			})
		default:
			child, ok := walkPath(gctx, childPath, opts, st)
			children[i] = child
			present[i] = ok
		}
	}
	_ = g.Wait() // walkPath never returns an error; ctx cancellation is read via gctx.Err()

	kept := children[:0]
	for i, ok := range present {
		if ok {
			kept = append(kept, children[i])
		}
	}
	// Sorting here, after the parallel fan-out, is what guarantees the
	// resulting tree is in lexicographic preorder regardless of the
	// order goroutines happened to finish in.
	sort.Slice(kept, func(a, b int) bool { return kept[a].Name < kept[b].Name })

	return indextree.WalkedNode{Name: name, Metadata: meta, Children: append([]indextree.WalkedNode(nil), kept...)}, true
}

func reportProgress(opts Options, c *counters) {
	if opts.Progress == nil {
		return
	}
	opts.Progress(atomic.LoadInt64(&c.numFiles), atomic.LoadInt64(&c.numDirs))
}

// wrapAncestors builds the synthetic ancestor chain from "/" down to
// root's parent, with node as the deepest child, so every walked tree
// shares the same logical root regardless of where on disk it started.
func wrapAncestors(root string, node indextree.WalkedNode) indextree.WalkedNode {
	root = filepath.Clean(root)
	dirMeta := slab.NewMetadata(slab.FileTypeDir, 0, 0, 0)

	if root == "/" || root == "." {
		node.Name = "/"
		return node
	}

	node.Name = filepath.Base(root)
	cur := node
	for dir := filepath.Dir(root); ; dir = filepath.Dir(dir) {
		if dir == "/" || dir == "." || dir == string(filepath.Separator) {
			break
		}
		cur = indextree.WalkedNode{
			Name:     filepath.Base(dir),
			Metadata: dirMeta,
			Children: []indextree.WalkedNode{cur},
		}
	}
	return indextree.WalkedNode{
		Name:     "/",
		Metadata: dirMeta,
		Children: []indextree.WalkedNode{cur},
	}
}
