package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesceEventPathsDropsDescendantsOfAnAncestor(t *testing.T) {
	got := CoalesceEventPaths([]string{"/a/b/c", "/a/b", "/a/b/d", "/x/y"})
	assert.ElementsMatch(t, []string{"/a/b", "/x/y"}, got)
}

func TestCoalesceEventPathsDedupes(t *testing.T) {
	got := CoalesceEventPaths([]string{"/a", "/a", "/a/"})
	assert.Equal(t, []string{"/a"}, got)
}

func TestCoalesceEventPathsKeepsUnrelatedPaths(t *testing.T) {
	got := CoalesceEventPaths([]string{"/a/b", "/a/c", "/a/d"})
	assert.ElementsMatch(t, []string{"/a/b", "/a/c", "/a/d"}, got)
}

func TestCoalesceEventPathsEmpty(t *testing.T) {
	assert.Nil(t, CoalesceEventPaths(nil))
}

func TestIsAncestorSlashPathRoot(t *testing.T) {
	assert.True(t, isAncestorSlashPath("/", "/a"))
	assert.True(t, isAncestorSlashPath("/", "/"))
}
