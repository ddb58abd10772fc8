package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsHistoryDoneThenPathsChanged(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil)
	require.NoError(t, err)
	defer w.Close()

	select {
	case ev := <-w.Events():
		assert.Equal(t, EventHistoryDone, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for HistoryDone")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("hi"), 0o644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Kind == EventPathsChanged {
				require.NotEmpty(t, ev.Paths)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for PathsChanged")
		}
	}
}

func TestWatcherWatchesNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil)
	require.NoError(t, err)
	defer w.Close()

	<-w.Events() // HistoryDone

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Give the watcher time to notice and add a watch on sub before
	// writing into it; otherwise the write race is inherent to any
	// recursive-watch facility and isn't what this test is checking.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "inner.txt"), []byte("x"), 0o644))

	found := false
	deadline := time.After(3 * time.Second)
	for !found {
		select {
		case ev := <-w.Events():
			if ev.Kind == EventPathsChanged {
				found = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for PathsChanged from new subdirectory")
		}
	}
	assert.True(t, found)
}
