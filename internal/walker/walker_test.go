package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findNode locates the node reached by following diskPath's segments
// down from the ancestor-wrapped root, so tests can assert on the
// walked subtree without hardcoding how deep "/" wrapping nests it.
func findNode(t *testing.T, root indextree.WalkedNode, diskPath string) *indextree.WalkedNode {
	t.Helper()
	segs := splitClean(diskPath)
	cur := root
	for _, seg := range segs {
		found := false
		for _, c := range cur.Children {
			if c.Name == seg {
				cur = c
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return &cur
}

func splitClean(p string) []string {
	p = filepath.Clean(p)
	if p == "/" || p == "." {
		return nil
	}
	var segs []string
	for {
		dir, file := filepath.Split(p)
		segs = append([]string{file}, segs...)
		dir = filepath.Clean(dir)
		if dir == "/" || dir == "." {
			break
		}
		p = dir
	}
	return segs
}

func TestWalkEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	res := Walk(context.Background(), Options{RootPath: dir})
	assert.Equal(t, 0, res.Errors)

	leaf := findNode(t, res.Root, dir)
	require.NotNil(t, leaf)
	assert.Empty(t, leaf.Children)
}

func TestWalkChildrenSortedAlphabetically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zebra.txt", "apple.txt", "mango.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	res := Walk(context.Background(), Options{RootPath: dir})
	leaf := findNode(t, res.Root, dir)
	require.NotNil(t, leaf)

	var got []string
	for _, c := range leaf.Children {
		got = append(got, c.Name)
	}
	assert.Equal(t, []string{"apple.txt", "mango.txt", "zebra.txt"}, got)
}

func TestWalkWithSubdirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "f.txt"), []byte("x"), 0o644))

	res := Walk(context.Background(), Options{RootPath: dir})
	leaf := findNode(t, res.Root, dir)
	require.NotNil(t, leaf)
	require.Len(t, leaf.Children, 1)
	assert.Equal(t, "sub", leaf.Children[0].Name)
	assert.True(t, leaf.Children[0].Metadata.IsDir())
	require.Len(t, leaf.Children[0].Children, 1)
	assert.Equal(t, "f.txt", leaf.Children[0].Children[0].Name)
}

func TestWalkIgnoresPaths(t *testing.T) {
	dir := t.TempDir()
	ignored := filepath.Join(dir, "ignored")
	require.NoError(t, os.Mkdir(ignored, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ignored, "f.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.txt"), []byte("x"), 0o644))

	res := Walk(context.Background(), Options{RootPath: dir, IgnoreDirectories: []string{ignored}})
	leaf := findNode(t, res.Root, dir)
	require.NotNil(t, leaf)
	require.Len(t, leaf.Children, 1)
	assert.Equal(t, "kept.txt", leaf.Children[0].Name)
}

func TestWalkCancellationPreCancelledReturnsRootOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Walk(ctx, Options{RootPath: dir})
	// walkPath's ctx.Err() guard fires on the root call itself, so Walk
	// substitutes its fallback synthetic root node, which has no
	// children.
	leaf := findNode(t, res.Root, dir)
	require.NotNil(t, leaf)
	assert.Empty(t, leaf.Children)
}

func TestWalkSkipsHiddenWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0o644))

	res := Walk(context.Background(), Options{RootPath: dir, SkipHidden: true})
	leaf := findNode(t, res.Root, dir)
	require.NotNil(t, leaf)
	require.Len(t, leaf.Children, 1)
	assert.Equal(t, "visible.txt", leaf.Children[0].Name)
}

func TestWalkWrapsAncestorsToRoot(t *testing.T) {
	dir := t.TempDir()
	res := Walk(context.Background(), Options{RootPath: dir})
	assert.Equal(t, "/", res.Root.Name)
}
