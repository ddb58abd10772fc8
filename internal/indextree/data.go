// Package indextree holds the hierarchical tree plus secondary name
// index that a single filesystem root is indexed into: a slab of
// nodes reachable both by parent/child links and by name.
package indextree

import (
	"strings"

	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/slab"
)

// Tree is the per-root index: a node arena, the root node's index
// within it, and the name index over every node currently present.
// Mutation is not internally synchronized; callers serialize writes
// (the index actor owns exactly one Tree and only it mutates it).
type Tree struct {
	pool      *namepool.Pool
	arena     *slab.Arena
	root      slab.Index
	nameIndex *NameIndex
	errors    int
}

// New creates an empty tree with no root node yet.
func New(pool *namepool.Pool) *Tree {
	return &Tree{
		pool:      pool,
		arena:     slab.NewArena(),
		root:      slab.NoIndex,
		nameIndex: newNameIndex(),
	}
}

// NewFromParts assembles a Tree directly from an already-populated
// arena, used by the snapshot codec when reloading a saved index: the
// arena's slots and the name index postings are reconstructed
// separately from the serialized stream, then wired together here
// rather than replayed through a walk.
func NewFromParts(pool *namepool.Pool, arena *slab.Arena, root slab.Index, errorCount int) *Tree {
	return &Tree{
		pool:      pool,
		arena:     arena,
		root:      root,
		nameIndex: newNameIndex(),
		errors:    errorCount,
	}
}

// Arena exposes the backing node store, e.g. for the snapshot codec.
func (t *Tree) Arena() *slab.Arena { return t.arena }

// NameIndex exposes the secondary index, e.g. for search prefiltering.
func (t *Tree) NameIndex() *NameIndex { return t.nameIndex }

// Root returns the root node's index. Absent (slab.NoIndex) until the
// tree has been populated by FromWalk or an UpsertEntry call.
func (t *Tree) Root() slab.Index { return t.root }

// Errors returns the count of walk errors recorded when this tree was
// built (permission denials, broken symlinks encountered mid-walk).
func (t *Tree) Errors() int { return t.errors }

// Len returns the number of nodes currently in the tree.
func (t *Tree) Len() int { return t.arena.Len() }

func (t *Tree) IsEmpty() bool { return t.arena.IsEmpty() }

// GetNode returns a copy of the node at idx.
func (t *Tree) GetNode(idx slab.Index) (slab.Node, bool) {
	return t.arena.Get(idx)
}

// IndicesForName returns every node currently holding this exact name.
func (t *Tree) IndicesForName(name string) []slab.Index {
	return t.nameIndex.IndicesForName(name)
}

// NodePath reconstructs idx's path by walking parent links to the
// root, the inverse of NodeIndexForPath.
func (t *Tree) NodePath(idx slab.Index) (string, bool) {
	var segs []string
	cur := idx
	for {
		n, ok := t.arena.Get(cur)
		if !ok {
			return "", false
		}
		if cur == t.root {
			break
		}
		segs = append(segs, n.Name())
		parent, ok := n.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, "/"), true
}

// NodeIndexForPath resolves a slash-separated relative path to its
// node index. When caseSensitive is false, each segment is matched via
// strings.EqualFold instead of exact comparison, the fallback needed
// on case-insensitive filesystems; this is an O(depth * children)
// scan, deliberately not backed by a second path index.
func (t *Tree) NodeIndexForPath(p string, caseSensitive bool) (slab.Index, bool) {
	if t.root == slab.NoIndex {
		return slab.NoIndex, false
	}
	segs := splitPath(p)
	cur := t.root
	for _, seg := range segs {
		node, ok := t.arena.Get(cur)
		if !ok {
			return slab.NoIndex, false
		}
		found := slab.NoIndex
		for _, c := range node.Children {
			cn, ok := t.arena.Get(c)
			if !ok {
				continue
			}
			if caseSensitive {
				if cn.Name() == seg {
					found = c
					break
				}
			} else if strings.EqualFold(cn.Name(), seg) {
				found = c
				break
			}
		}
		if found == slab.NoIndex {
			return slab.NoIndex, false
		}
		cur = found
	}
	return cur, true
}

// FileIDs returns every file-kind node, computed on demand by a full
// arena scan rather than a maintained type index.
func (t *Tree) FileIDs() []slab.Index {
	var out []slab.Index
	t.arena.Range(func(idx slab.Index, n slab.Node) bool {
		if n.IsFile() {
			out = append(out, idx)
		}
		return true
	})
	return out
}

// DirectoryIDs returns every directory-kind node, computed on demand.
func (t *Tree) DirectoryIDs() []slab.Index {
	var out []slab.Index
	t.arena.Range(func(idx slab.Index, n slab.Node) bool {
		if n.IsDir() {
			out = append(out, idx)
		}
		return true
	})
	return out
}

// IndicesForExtension returns every node whose extension matches ext
// (case-insensitively), computed on demand.
func (t *Tree) IndicesForExtension(ext string) []slab.Index {
	var out []slab.Index
	t.arena.Range(func(idx slab.Index, n slab.Node) bool {
		if e, ok := n.Extension(); ok && strings.EqualFold(e, ext) {
			out = append(out, idx)
		}
		return true
	})
	return out
}

// ensureParent returns the index of the directory node at path p,
// creating any missing intermediate directories (and the root, if
// absent) along the way. Newly created directories get zeroed
// metadata; a later walk or watcher event backfills their real stat.
func (t *Tree) ensureParent(p string) slab.Index {
	if t.root == slab.NoIndex {
		name := t.pool.Intern("/")
		node := slab.NewNode(slab.NoIndex, name, slab.NewMetadata(slab.FileTypeDir, 0, 0, 0))
		t.root = t.arena.Insert(node)
		t.nameIndex.Insert(name, t.root)
	}
	if p == "" {
		return t.root
	}
	cur := t.root
	for _, seg := range splitPath(p) {
		node, _ := t.arena.Get(cur)
		found := slab.NoIndex
		for _, c := range node.Children {
			cn, ok := t.arena.Get(c)
			if ok && cn.Name() == seg {
				found = c
				break
			}
		}
		if found == slab.NoIndex {
			name := t.pool.Intern(seg)
			dir := slab.NewNode(cur, name, slab.NewMetadata(slab.FileTypeDir, 0, 0, 0))
			found = t.arena.Insert(dir)
			t.arena.AddChild(cur, found)
			t.nameIndex.Insert(name, found)
		}
		cur = found
	}
	return cur
}

// UpsertEntry inserts or replaces the node at path p with the given
// metadata, creating any missing parent directories. If a node already
// exists at p (including its whole subtree, for a directory-to-file
// replacement), it is removed first.
func (t *Tree) UpsertEntry(p string, metadata slab.Metadata) slab.Index {
	if existing, ok := t.NodeIndexForPath(p, true); ok {
		t.removeNode(existing)
	}
	parent := t.ensureParent(parentOf(p))
	name := t.pool.Intern(baseName(p))
	node := slab.NewNode(parent, name, metadata)
	idx := t.arena.Insert(node)
	t.arena.AddChild(parent, idx)
	t.nameIndex.Insert(name, idx)
	return idx
}

// SetNodeMetadata replaces the metadata of the node at idx in place,
// leaving its name, children and name-index postings untouched. Used
// when a change event restates an entry that is still the same kind
// of thing at the same path, where a remove-and-reinsert would
// needlessly drop the subtree below it.
func (t *Tree) SetNodeMetadata(idx slab.Index, m slab.Metadata) bool {
	return t.arena.SetMetadata(idx, m)
}

// RemoveEntry deletes the node at path p and its whole subtree,
// reporting whether anything was found to remove.
func (t *Tree) RemoveEntry(p string) bool {
	idx, ok := t.NodeIndexForPath(p, true)
	if !ok {
		return false
	}
	t.removeNode(idx)
	return true
}

func (t *Tree) removeNode(idx slab.Index) {
	node, ok := t.arena.Get(idx)
	if !ok {
		return
	}
	for _, c := range append([]slab.Index(nil), node.Children...) {
		t.removeNode(c)
	}
	if parent, hasParent := node.Parent(); hasParent {
		t.arena.RemoveChild(parent, idx)
	}
	t.nameIndex.Remove(node.Name(), idx)
	t.arena.TryRemove(idx)
	if idx == t.root {
		t.root = slab.NoIndex
	}
}
