package indextree

import (
	"testing"

	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/slab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSample() *Tree {
	pool := namepool.New()
	w := WalkedNode{
		Name:     "/",
		Metadata: slab.NewMetadata(slab.FileTypeDir, 0, 0, 0),
		Children: []WalkedNode{
			{
				Name:     "dir",
				Metadata: slab.NewMetadata(slab.FileTypeDir, 0, 0, 0),
				Children: []WalkedNode{
					{Name: "a.txt", Metadata: slab.NewMetadata(slab.FileTypeFile, 10, 1, 2)},
					{Name: "b.txt", Metadata: slab.NewMetadata(slab.FileTypeFile, 20, 1, 2)},
				},
			},
			{Name: "README.md", Metadata: slab.NewMetadata(slab.FileTypeFile, 5, 1, 2)},
		},
	}
	return FromWalk(w, pool, 0)
}

func TestFromWalkBuildsTreeAndNameIndex(t *testing.T) {
	tr := buildSample()
	assert.Equal(t, 5, tr.Len())

	idx, ok := tr.NodeIndexForPath("dir/a.txt", true)
	require.True(t, ok)
	n, ok := tr.GetNode(idx)
	require.True(t, ok)
	assert.Equal(t, "a.txt", n.Name())

	path, ok := tr.NodePath(idx)
	require.True(t, ok)
	assert.Equal(t, "dir/a.txt", path)

	ids := tr.IndicesForName("a.txt")
	require.Len(t, ids, 1)
	assert.Equal(t, idx, ids[0])
}

func TestFileAndDirectoryIDs(t *testing.T) {
	tr := buildSample()
	assert.Len(t, tr.FileIDs(), 3)
	assert.Len(t, tr.DirectoryIDs(), 1)
}

func TestIndicesForExtension(t *testing.T) {
	tr := buildSample()
	ids := tr.IndicesForExtension("txt")
	assert.Len(t, ids, 2)
	ids = tr.IndicesForExtension("TXT")
	assert.Len(t, ids, 2, "extension match should be case-insensitive")
}

func TestUpsertEntryCreatesMissingParents(t *testing.T) {
	tr := buildSample()
	idx := tr.UpsertEntry("newdir/newsub/new.txt", slab.NewMetadata(slab.FileTypeFile, 1, 0, 0))

	path, ok := tr.NodePath(idx)
	require.True(t, ok)
	assert.Equal(t, "newdir/newsub/new.txt", path)

	parentIdx, ok := tr.NodeIndexForPath("newdir/newsub", true)
	require.True(t, ok)
	parent, _ := tr.GetNode(parentIdx)
	assert.True(t, parent.IsDir())
}

func TestUpsertEntryReplacesExisting(t *testing.T) {
	tr := buildSample()
	oldIdx, ok := tr.NodeIndexForPath("dir/a.txt", true)
	require.True(t, ok)

	newIdx := tr.UpsertEntry("dir/a.txt", slab.NewMetadata(slab.FileTypeFile, 999, 0, 0))
	assert.NotEqual(t, oldIdx, newIdx, "replace removes the old slot and inserts fresh")

	_, stillThere := tr.GetNode(oldIdx)
	assert.False(t, stillThere)

	n, ok := tr.GetNode(newIdx)
	require.True(t, ok)
	size, _ := n.Size()
	assert.Equal(t, uint64(999), size)
}

func TestRemoveEntryRemovesSubtree(t *testing.T) {
	tr := buildSample()
	before := tr.Len()

	removed := tr.RemoveEntry("dir")
	assert.True(t, removed)
	assert.Equal(t, before-3, tr.Len(), "removing dir should drop it and its two children")

	_, ok := tr.NodeIndexForPath("dir/a.txt", true)
	assert.False(t, ok)
	assert.Empty(t, tr.IndicesForName("a.txt"))
}

func TestRemoveEntryMissingPathReportsFalse(t *testing.T) {
	tr := buildSample()
	assert.False(t, tr.RemoveEntry("does/not/exist"))
}

func TestNodeIndexForPathCaseInsensitive(t *testing.T) {
	tr := buildSample()
	_, ok := tr.NodeIndexForPath("DIR/A.TXT", true)
	assert.False(t, ok)

	idx, ok := tr.NodeIndexForPath("DIR/A.TXT", false)
	require.True(t, ok)
	n, _ := tr.GetNode(idx)
	assert.Equal(t, "a.txt", n.Name())
}
