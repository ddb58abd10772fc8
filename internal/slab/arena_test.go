package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaInsertGet(t *testing.T) {
	a := NewArena()
	defer a.Close()

	meta := NewMetadata(FileTypeFile, 42, 100, 200)
	n := NewNode(NoIndex, "foo.txt", meta)
	idx := a.Insert(n)

	got, ok := a.Get(idx)
	require.True(t, ok)
	assert.Equal(t, "foo.txt", got.Name())
	size, ok := got.Size()
	require.True(t, ok)
	assert.Equal(t, uint64(42), size)
	assert.Equal(t, 1, a.Len())
}

func TestArenaRemoveAndReuse(t *testing.T) {
	a := NewArena()
	defer a.Close()

	idx1 := a.Insert(NewNode(NoIndex, "a", NewMetadata(FileTypeFile, 1, 0, 0)))
	removed, ok := a.TryRemove(idx1)
	require.True(t, ok)
	assert.Equal(t, "a", removed.Name())
	assert.Equal(t, 0, a.Len())

	idx2 := a.Insert(NewNode(NoIndex, "b", NewMetadata(FileTypeFile, 2, 0, 0)))
	assert.Equal(t, idx1, idx2, "freed slot should be reused by the next insert")
	assert.Equal(t, 1, a.Len())

	_, ok = a.TryRemove(idx1)
	require.True(t, ok)
	_, ok = a.TryRemove(idx1)
	assert.False(t, ok, "double remove should report absent")
}

func TestArenaAddRemoveChild(t *testing.T) {
	a := NewArena()
	defer a.Close()

	parent := a.Insert(NewNode(NoIndex, "dir", NewMetadata(FileTypeDir, 0, 0, 0)))
	child := a.Insert(NewNode(parent, "file.txt", NewMetadata(FileTypeFile, 1, 0, 0)))

	require.True(t, a.AddChild(parent, child))
	require.True(t, a.AddChild(parent, child), "adding twice should stay idempotent")

	n, ok := a.Get(parent)
	require.True(t, ok)
	assert.Equal(t, []Index{child}, n.Children)

	require.True(t, a.RemoveChild(parent, child))
	n, _ = a.Get(parent)
	assert.Empty(t, n.Children)
	assert.False(t, a.RemoveChild(parent, child))
}

func TestArenaGrowsBeyondInitialCapacity(t *testing.T) {
	a := NewArena()
	defer a.Close()

	var last Index
	for i := 0; i < initialSlots*2+5; i++ {
		last = a.Insert(NewNode(NoIndex, "x", NewMetadata(FileTypeFile, uint64(i), 0, 0)))
	}
	assert.Equal(t, initialSlots*2+5, a.Len())

	got, ok := a.Get(last)
	require.True(t, ok)
	size, _ := got.Size()
	assert.Equal(t, uint64(initialSlots*2+4), size)
}

func TestArenaRangeAscendingOccupiedOnly(t *testing.T) {
	a := NewArena()
	defer a.Close()

	i0 := a.Insert(NewNode(NoIndex, "0", Metadata{}))
	i1 := a.Insert(NewNode(NoIndex, "1", Metadata{}))
	i2 := a.Insert(NewNode(NoIndex, "2", Metadata{}))
	_, _ = a.TryRemove(i1)

	var seen []Index
	a.Range(func(idx Index, n Node) bool {
		seen = append(seen, idx)
		return true
	})
	assert.Equal(t, []Index{i0, i2}, seen)
}

func TestArenaBuilderReloadRoundTrip(t *testing.T) {
	src := NewArena()
	defer src.Close()

	i0 := src.Insert(NewNode(NoIndex, "keep0", NewMetadata(FileTypeFile, 1, 0, 0)))
	i1 := src.Insert(NewNode(NoIndex, "gone", NewMetadata(FileTypeFile, 2, 0, 0)))
	i2 := src.Insert(NewNode(NoIndex, "keep2", NewMetadata(FileTypeFile, 3, 0, 0)))
	_, _ = src.TryRemove(i1)

	dst := &Arena{freeHead: NoIndex}
	dst.ReserveSlots(src.EntriesLen())

	n0, _ := src.Get(i0)
	dst.PlaceOccupied(i0, n0)
	n2, _ := src.Get(i2)
	dst.PlaceOccupied(i2, n2)
	dst.RebuildFreelist()
	defer dst.Close()

	assert.Equal(t, 2, dst.Len())
	got, ok := dst.Get(i0)
	require.True(t, ok)
	assert.Equal(t, "keep0", got.Name())

	reused := dst.Insert(NewNode(NoIndex, "newguy", Metadata{}))
	assert.Equal(t, i1, reused, "reload should reuse the index vacated before save")
}

func TestArenaSetMetadata(t *testing.T) {
	a := NewArena()
	defer a.Close()

	idx := a.Insert(NewNode(NoIndex, "f", NewMetadata(FileTypeFile, 1, 0, 0)))
	require.True(t, a.SetMetadata(idx, NewMetadata(FileTypeFile, 99, 10, 20)))

	got, _ := a.Get(idx)
	size, _ := got.Size()
	assert.Equal(t, uint64(99), size)
}
