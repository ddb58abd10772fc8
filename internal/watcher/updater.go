package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/logx"
	"github.com/fsindex/fsindex/internal/walker"
)

// ApplyPathChange resolves changedPath against the indexed root,
// rejecting it outright if it falls outside the root or under an
// ignored path, then upserts or removes the corresponding tree entry
// depending on whether the path still exists. The caller (the index
// actor) serializes every call against both searches and other
// mutations; this function itself is not safe for concurrent use on
// the same tree.
func ApplyPathChange(tree *indextree.Tree, root string, ignorePaths []string, changedPath string) {
	if !isUnderRoot(root, changedPath) {
		return
	}
	if isIgnored(changedPath, ignorePaths) {
		return
	}

	// The tree is ancestor-wrapped back to "/" (the walker's stable
	// shape), so tree paths are the absolute path minus the leading
	// slash, not paths relative to the indexed root.
	treePath := treePathFor(changedPath)

	info, err := os.Lstat(changedPath)
	if err != nil {
		if tree.RemoveEntry(treePath) {
			logx.Debugf(nil, "watcher: removed %s", changedPath)
		}
		return
	}

	restateEntry(tree, treePath, info)

	if info.IsDir() {
		reconcileChildren(tree, ignorePaths, treePath, changedPath)
	}
}

// restateEntry brings the node at treePath in line with info. An entry
// that is still the same kind of thing keeps its node (and, for a
// directory, the whole subtree below it) and only has its metadata
// replaced; a kind change or a brand-new path goes through UpsertEntry,
// which drops any stale subtree and creates missing parents.
func restateEntry(tree *indextree.Tree, treePath string, info os.FileInfo) {
	meta := walker.MetadataFromInfo(info)
	if idx, ok := tree.NodeIndexForPath(treePath, true); ok {
		if node, found := tree.GetNode(idx); found && node.IsDir() == info.IsDir() {
			tree.SetNodeMetadata(idx, meta)
			return
		}
	}
	tree.UpsertEntry(treePath, meta)
}

// reconcileChildren restates changedPath's immediate children against
// the directory's current contents: children now on disk are upserted
// (already-present descendants keep their nodes), and tree children
// that no longer exist on disk are removed. A change notification at
// directory granularity may stand in for any number of child
// creations and deletions, including ones whose own events were
// coalesced into this ancestor.
func reconcileChildren(tree *indextree.Tree, ignorePaths []string, treePath, absPath string) {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		logx.Debugf(nil, "watcher: readdir %s: %v", absPath, err)
		return
	}

	onDisk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		childAbs := filepath.Join(absPath, e.Name())
		if isIgnored(childAbs, ignorePaths) {
			continue
		}
		onDisk[e.Name()] = struct{}{}
		info, err := os.Lstat(childAbs)
		if err != nil {
			logx.Debugf(nil, "watcher: stat %s: %v", childAbs, err)
			continue
		}
		restateEntry(tree, treePathFor(childAbs), info)
	}

	dirIdx, ok := tree.NodeIndexForPath(treePath, true)
	if !ok {
		return
	}
	dirNode, ok := tree.GetNode(dirIdx)
	if !ok {
		return
	}
	var stale []string
	for _, c := range dirNode.Children {
		if cn, found := tree.GetNode(c); found {
			if _, present := onDisk[cn.Name()]; !present {
				stale = append(stale, cn.Name())
			}
		}
	}
	for _, name := range stale {
		tree.RemoveEntry(treePath + "/" + name)
	}
}

// treePathFor maps an absolute filesystem path to its location in the
// ancestor-wrapped tree: slash-separated, no leading slash.
func treePathFor(absPath string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(absPath)), "/")
}

// isUnderRoot reports whether path is root itself or falls under it.
func isUnderRoot(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	prefix := root
	if prefix != string(filepath.Separator) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// isIgnored reports whether path equals, or falls under, one of
// ignorePaths, the same ancestor-prefix rule the walker applies.
func isIgnored(path string, ignorePaths []string) bool {
	for _, ig := range ignorePaths {
		if path == ig || strings.HasPrefix(path, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
