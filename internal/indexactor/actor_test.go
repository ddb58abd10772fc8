package indexactor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/search"
)

func waitForReady(t *testing.T, a *Actor) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if a.Status().State == StateReady.String() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("actor never became ready (state=%s)", a.Status().State)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func newTestActor(t *testing.T, root string) *Actor {
	t.Helper()
	cfg := Config{
		Root:      root,
		RootIsDir: true,
		CachePath: filepath.Join(t.TempDir(), "cache.bin.zst"),
	}
	a, err := New(cfg, namepool.New(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestActorBuildsAndSearches(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "beta.txt"), []byte("y"), 0o644))

	a := newTestActor(t, root)
	waitForReady(t, a)

	tr := cancel.NewTracker()
	result, err := a.Search(SearchParams{
		Query:      "*.txt",
		Kind:       search.KindAny,
		MaxResults: 10,
		MaxDepth:   -1,
		Token:      tr.TokenForVersion(tr.NextVersion()),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
}

func TestActorRescanReflectsNewFiles(t *testing.T) {
	root := t.TempDir()
	a := newTestActor(t, root)
	waitForReady(t, a)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("x"), 0o644))

	status, err := a.Rescan()
	require.NoError(t, err)
	assert.Equal(t, StateReady.String(), status.State)
	assert.GreaterOrEqual(t, status.IndexedEntries, 1)
}

func TestActorSearchBeforeReadyReturnsEmptyAnnotated(t *testing.T) {
	root := t.TempDir()
	cfg := Config{
		Root:      root,
		RootIsDir: true,
		CachePath: filepath.Join(t.TempDir(), "cache.bin.zst"),
	}
	a, err := New(cfg, namepool.New(), nil)
	require.NoError(t, err)
	defer a.Close()

	tr := cancel.NewTracker()
	result, err := a.Search(SearchParams{
		Query:      "*",
		Kind:       search.KindAny,
		MaxResults: 10,
		MaxDepth:   -1,
		Token:      tr.TokenForVersion(tr.NextVersion()),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.IndexState)
}

func TestActorSnapshotReflectsTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "file.txt"), []byte("x"), 0o644))

	a := newTestActor(t, root)
	waitForReady(t, a)

	node, err := a.Snapshot(0)
	require.NoError(t, err)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "sub", node.Children[0].Name)
	assert.True(t, node.Children[0].IsDir)
	require.Len(t, node.Children[0].Children, 1)
	assert.Equal(t, "file.txt", node.Children[0].Children[0].Name)
}
