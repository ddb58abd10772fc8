package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treePath maps an absolute fixture path to its ancestor-wrapped tree
// location, the same way ApplyPathChange does internally.
func treePath(abs string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(abs)), "/")
}

func TestApplyPathChangeUpsertsNewFile(t *testing.T) {
	root := t.TempDir()
	tree := indextree.New(namepool.New())

	newFile := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(newFile, []byte("hi"), 0o644))

	ApplyPathChange(tree, root, nil, newFile)

	idx, ok := tree.NodeIndexForPath(treePath(newFile), true)
	require.True(t, ok)
	n, ok := tree.GetNode(idx)
	require.True(t, ok)
	assert.True(t, n.IsFile())
}

func TestApplyPathChangeRemovesDeletedFile(t *testing.T) {
	root := t.TempDir()
	tree := indextree.New(namepool.New())

	gone := filepath.Join(root, "gone.txt")
	require.NoError(t, os.WriteFile(gone, []byte("x"), 0o644))
	ApplyPathChange(tree, root, nil, gone)
	_, ok := tree.NodeIndexForPath(treePath(gone), true)
	require.True(t, ok)

	require.NoError(t, os.Remove(gone))
	ApplyPathChange(tree, root, nil, gone)

	_, ok = tree.NodeIndexForPath(treePath(gone), true)
	assert.False(t, ok)
}

func TestApplyPathChangeOutsideRootIsIgnored(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	tree := indextree.New(namepool.New())

	outside := filepath.Join(other, "f.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	ApplyPathChange(tree, root, nil, outside)

	assert.True(t, tree.IsEmpty())
}

func TestApplyPathChangeIgnoredPathSkipped(t *testing.T) {
	root := t.TempDir()
	tree := indextree.New(namepool.New())

	ignoredDir := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(ignoredDir, 0o755))
	f := filepath.Join(ignoredDir, "pkg.json")
	require.NoError(t, os.WriteFile(f, []byte("{}"), 0o644))

	ApplyPathChange(tree, root, []string{ignoredDir}, f)

	assert.True(t, tree.IsEmpty())
}

func TestApplyPathChangeDirectoryEventKeepsDeepDescendants(t *testing.T) {
	root := t.TempDir()
	tree := indextree.New(namepool.New())

	deep := filepath.Join(root, "src", "pkg", "deep.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(deep), 0o755))
	require.NoError(t, os.WriteFile(deep, []byte("x"), 0o644))

	ApplyPathChange(tree, root, nil, filepath.Join(root, "src"))
	ApplyPathChange(tree, root, nil, filepath.Join(root, "src", "pkg"))
	_, ok := tree.NodeIndexForPath(treePath(deep), true)
	require.True(t, ok)

	// A later event on the ancestor directory must not drop the
	// grandchildren it is not restating.
	ApplyPathChange(tree, root, nil, filepath.Join(root, "src"))
	_, ok = tree.NodeIndexForPath(treePath(deep), true)
	assert.True(t, ok)
}

func TestApplyPathChangeDirectoryEventRemovesVanishedChildren(t *testing.T) {
	root := t.TempDir()
	tree := indextree.New(namepool.New())

	gone := filepath.Join(root, "gone.txt")
	require.NoError(t, os.WriteFile(gone, []byte("x"), 0o644))
	ApplyPathChange(tree, root, nil, gone)
	_, ok := tree.NodeIndexForPath(treePath(gone), true)
	require.True(t, ok)

	// The deletion's own event was coalesced into its parent; the
	// directory-level reconcile must still notice it.
	require.NoError(t, os.Remove(gone))
	ApplyPathChange(tree, root, nil, root)

	_, ok = tree.NodeIndexForPath(treePath(gone), true)
	assert.False(t, ok)
}

func TestApplyPathChangeDirectoryRewalksChildren(t *testing.T) {
	root := t.TempDir()
	tree := indextree.New(namepool.New())

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "one.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "two.txt"), []byte("2"), 0o644))

	ApplyPathChange(tree, root, nil, sub)

	_, ok := tree.NodeIndexForPath(treePath(filepath.Join(sub, "one.txt")), true)
	assert.True(t, ok)
	_, ok = tree.NodeIndexForPath(treePath(filepath.Join(sub, "two.txt")), true)
	assert.True(t, ok)
}
