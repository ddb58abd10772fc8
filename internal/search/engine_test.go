package search

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/ferrors"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/slab"
	"github.com/fsindex/fsindex/internal/walker"
)

func dirMeta() slab.Metadata  { return slab.NewMetadata(slab.FileTypeDir, 0, 0, 0) }
func fileMeta() slab.Metadata { return slab.NewMetadata(slab.FileTypeFile, 1, 1000, 2000) }

// fixtureTree builds the tree of spec-style fixtures synthetically:
//
//	/fixture/a/foo.txt
//	/fixture/a/bar.md
//	/fixture/b/foobar.txt
//	/fixture/c/foo.log
//	/fixture/d/nested/foo.txt
//	/fixture/.hid/secret.txt
//	/fixture/.dotfile
func fixtureTree(t *testing.T) *indextree.Tree {
	t.Helper()
	w := indextree.WalkedNode{
		Name:     "/",
		Metadata: dirMeta(),
		Children: []indextree.WalkedNode{{
			Name:     "fixture",
			Metadata: dirMeta(),
			Children: []indextree.WalkedNode{
				{Name: ".dotfile", Metadata: fileMeta()},
				{Name: ".hid", Metadata: dirMeta(), Children: []indextree.WalkedNode{
					{Name: "secret.txt", Metadata: fileMeta()},
				}},
				{Name: "a", Metadata: dirMeta(), Children: []indextree.WalkedNode{
					{Name: "bar.md", Metadata: fileMeta()},
					{Name: "foo.txt", Metadata: fileMeta()},
				}},
				{Name: "b", Metadata: dirMeta(), Children: []indextree.WalkedNode{
					{Name: "foobar.txt", Metadata: fileMeta()},
				}},
				{Name: "c", Metadata: dirMeta(), Children: []indextree.WalkedNode{
					{Name: "foo.log", Metadata: fileMeta()},
				}},
				{Name: "d", Metadata: dirMeta(), Children: []indextree.WalkedNode{
					{Name: "nested", Metadata: dirMeta(), Children: []indextree.WalkedNode{
						{Name: "foo.txt", Metadata: fileMeta()},
					}},
				}},
			},
		}},
	}
	return indextree.FromWalk(w, namepool.New(), 0)
}

func liveToken() cancel.Token {
	tr := cancel.NewTracker()
	return tr.TokenForVersion(tr.NextVersion())
}

func runQuery(t *testing.T, tree *indextree.Tree, req Request) *Result {
	t.Helper()
	if req.Root == "" {
		req.Root = "/fixture"
	}
	if req.MaxResults == 0 {
		req.MaxResults = 100
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = -1
	}
	res, err := Search(tree, req, liveToken())
	require.NoError(t, err)
	return res
}

func entryNames(r *Result) []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Name)
	}
	return names
}

func TestSearchBasicSubstring(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "foo AND ext:txt"})
	assert.Equal(t, []string{"foo.txt", "foo.txt", "foobar.txt"}, entryNames(res))

	// The canonical three-file fixture: only a/, b/ in scope. The
	// groups matter: OR binds tighter than the implied AND.
	res = runQuery(t, tree, Request{Query: "(in:/fixture/a foo) | (in:/fixture/b foo)"})
	assert.Equal(t, []string{"foo.txt", "foobar.txt"}, entryNames(res))
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.Truncated)
}

func TestSearchExtensionFilter(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "ext:md"})
	assert.Equal(t, []string{"bar.md"}, entryNames(res))
	assert.Equal(t, 1, res.Count)
}

func TestSearchBooleanAndNot(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "foo AND NOT ext:log"})
	assert.Equal(t, []string{"foo.txt", "foo.txt", "foobar.txt"}, entryNames(res))
}

func TestSearchPathScoping(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "in:/fixture/a foo"})
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "/fixture/a/foo.txt", res.Entries[0].Path)
}

func TestSearchParentFilter(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "parent:/fixture/a"})
	assert.Equal(t, []string{"bar.md", "foo.txt"}, entryNames(res))
}

func TestSearchNoSubfoldersFilter(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "nosubfolders:/fixture/d"})
	// The folder itself plus immediate file children only; "nested" is
	// a directory, and nested/foo.txt is out of reach.
	assert.Equal(t, []string{"d"}, entryNames(res))
}

func TestSearchDateRange(t *testing.T) {
	// 2020-01-01 and 2024-06-01 midnight UTC.
	const oldMtime, newMtime = 1577836800, 1717200000
	w := indextree.WalkedNode{
		Name:     "/",
		Metadata: dirMeta(),
		Children: []indextree.WalkedNode{{
			Name:     "dates",
			Metadata: dirMeta(),
			Children: []indextree.WalkedNode{
				{Name: "new.txt", Metadata: slab.NewMetadata(slab.FileTypeFile, 1, newMtime, newMtime)},
				{Name: "old.txt", Metadata: slab.NewMetadata(slab.FileTypeFile, 1, oldMtime, oldMtime)},
			},
		}},
	}
	tree := indextree.FromWalk(w, namepool.New(), 0)

	res := runQuery(t, tree, Request{Root: "/dates", Query: "dm:>2024-01-01"})
	assert.Equal(t, []string{"new.txt"}, entryNames(res))
}

func TestSearchKindFilter(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "foo", Kind: KindDirectories})
	assert.Empty(t, res.Entries, "no directory is named *foo*")

	res = runQuery(t, tree, Request{Query: "a", Kind: KindDirectories})
	assert.Contains(t, entryNames(res), "a")
}

func TestSearchHiddenGating(t *testing.T) {
	tree := fixtureTree(t)

	res := runQuery(t, tree, Request{Query: "secret"})
	assert.Empty(t, res.Entries, "hidden-ancestor files stay out by default")

	res = runQuery(t, tree, Request{Query: "dotfile"})
	assert.Empty(t, res.Entries, "dotfiles stay out by default")

	res = runQuery(t, tree, Request{Query: "secret", IncludeHidden: true})
	assert.Equal(t, []string{"secret.txt"}, entryNames(res))

	res = runQuery(t, tree, Request{Query: "dotfile", IncludeHidden: true})
	assert.Equal(t, []string{".dotfile"}, entryNames(res))
}

func TestSearchMaxDepthZeroReturnsAtMostRoot(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "fixture", MaxDepth: -2})
	require.NotEmpty(t, res.Entries)

	res2, err := Search(tree, Request{
		Root: "/fixture", Query: "fixture", MaxResults: 100, MaxDepth: 0,
	}, liveToken())
	require.NoError(t, err)
	assert.Equal(t, []string{"fixture"}, entryNames(res2))
}

func TestSearchMaxResultsTruncates(t *testing.T) {
	tree := fixtureTree(t)
	res, err := Search(tree, Request{
		Root: "/fixture", Query: "foo", MaxResults: 1, MaxDepth: -1,
	}, liveToken())
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)
	assert.True(t, res.Truncated)
}

func TestSearchEmptyPrefilterShortCircuits(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "zzznothere"})
	assert.Zero(t, res.Count)
	assert.Empty(t, res.Entries)
}

func TestSearchCaseSensitivity(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "FOO"})
	assert.NotEmpty(t, res.Entries, "default matching is case-insensitive")

	res = runQuery(t, tree, Request{Query: "FOO", CaseSensitive: true})
	assert.Empty(t, res.Entries)
}

func TestSearchCancelledTokenReturnsNoResult(t *testing.T) {
	tree := fixtureTree(t)
	tr := cancel.NewTracker()
	token := tr.TokenForVersion(tr.NextVersion())
	tr.NextVersion() // supersede

	_, err := Search(tree, Request{Root: "/fixture", Query: "foo", MaxResults: 100, MaxDepth: -1}, token)
	require.Error(t, err)
	assert.Equal(t, ferrors.KindCancelled, ferrors.KindOf(err))
}

func TestSearchSupersededThenFreshTokenCompletes(t *testing.T) {
	tree := fixtureTree(t)
	tr := cancel.NewTracker()
	stale := tr.TokenForVersion(tr.NextVersion())
	fresh := tr.TokenForVersion(tr.NextVersion())

	_, err := Search(tree, Request{Root: "/fixture", Query: "foo", MaxResults: 100, MaxDepth: -1}, stale)
	require.Error(t, err)

	res, err := Search(tree, Request{Root: "/fixture", Query: "foo", MaxResults: 100, MaxDepth: -1}, fresh)
	require.NoError(t, err)
	names := entryNames(res)
	assert.True(t, sort.StringsAreSorted(names), "results come back name-sorted")
	assert.NotEmpty(t, names)
}

func TestSearchHighlightTerms(t *testing.T) {
	tree := fixtureTree(t)
	res := runQuery(t, tree, Request{Query: "foo AND NOT bar"})
	assert.Equal(t, []string{"foo"}, res.HighlightTerms)
}

func TestSearchContentFilterOverRealFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hit.txt"), []byte("alpha NEEDLE omega"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "miss.txt"), []byte("nothing here"), 0o644))

	result := walkFixture(t, root)
	res, err := Search(result, Request{
		Root: root, Query: "content:needle", MaxResults: 100, MaxDepth: -1,
	}, liveToken())
	require.NoError(t, err)
	assert.Equal(t, []string{"hit.txt"}, entryNames(res))

	res, err = Search(result, Request{
		Root: root, Query: "content:NEEDLE", CaseSensitive: true, MaxResults: 100, MaxDepth: -1,
	}, liveToken())
	require.NoError(t, err)
	assert.Equal(t, []string{"hit.txt"}, entryNames(res))
}

func walkFixture(t *testing.T, root string) *indextree.Tree {
	t.Helper()
	res := walker.Walk(context.Background(), walker.Options{RootPath: root})
	return indextree.FromWalk(res.Root, namepool.New(), res.Errors)
}
