package indextree

import (
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/slab"
)

// WalkedNode is the shape a directory walk hands to this package: an
// unindexed, GC-plain tree of names and metadata. internal/walker
// produces trees of this shape; this package's job starts where the
// walk ends, converting that intermediate tree into a Tree with a
// stable-indexed arena and a populated name index.
type WalkedNode struct {
	Name     string
	Metadata slab.Metadata
	Children []WalkedNode
}

// FromWalk converts a freshly walked tree into a Tree, interning every
// name through pool and inserting nodes into both the arena and the
// name index in a single preorder pass. errorCount carries forward the
// walk's own count of paths it could not stat or read.
func FromWalk(root WalkedNode, pool *namepool.Pool, errorCount int) *Tree {
	t := New(pool)
	t.errors = errorCount
	t.root = t.insertSubtree(slab.NoIndex, root)
	return t
}

func (t *Tree) insertSubtree(parent slab.Index, w WalkedNode) slab.Index {
	name := t.pool.Intern(w.Name)
	node := slab.NewNode(parent, name, w.Metadata)
	idx := t.arena.Insert(node)
	t.nameIndex.Insert(name, idx)
	if parent != slab.NoIndex {
		t.arena.AddChild(parent, idx)
	}
	for _, c := range w.Children {
		t.insertSubtree(idx, c)
	}
	return idx
}
