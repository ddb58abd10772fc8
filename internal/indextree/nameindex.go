package indextree

import (
	"sort"

	"github.com/fsindex/fsindex/internal/slab"
)

// NameIndexEntry is one name's posting list: every slab index currently
// holding that exact name, anywhere in the tree, sorted ascending so
// the search engine can sorted-merge-intersect postings across terms.
type NameIndexEntry struct {
	Name    string
	Indices []slab.Index
}

// NameIndex is the secondary name -> []Index lookup. It exists
// because a name can legitimately appear at many unrelated
// paths ("README.md" under a hundred different directories), so a
// single name cannot map to a single node.
type NameIndex struct {
	entries []NameIndexEntry // sorted by Name
}

func newNameIndex() *NameIndex {
	return &NameIndex{}
}

func (ni *NameIndex) find(name string) (int, bool) {
	i := sort.Search(len(ni.entries), func(i int) bool { return ni.entries[i].Name >= name })
	if i < len(ni.entries) && ni.entries[i].Name == name {
		return i, true
	}
	return i, false
}

// Insert adds idx to name's posting list, creating the entry if this
// is the first occurrence of name. Idempotent: inserting the same pair
// twice is a no-op.
func (ni *NameIndex) Insert(name string, idx slab.Index) {
	i, found := ni.find(name)
	if found {
		entry := &ni.entries[i]
		j := sort.Search(len(entry.Indices), func(k int) bool { return entry.Indices[k] >= idx })
		if j < len(entry.Indices) && entry.Indices[j] == idx {
			return
		}
		entry.Indices = append(entry.Indices, 0)
		copy(entry.Indices[j+1:], entry.Indices[j:])
		entry.Indices[j] = idx
		return
	}
	ni.entries = append(ni.entries, NameIndexEntry{})
	copy(ni.entries[i+1:], ni.entries[i:])
	ni.entries[i] = NameIndexEntry{Name: name, Indices: []slab.Index{idx}}
}

// Remove deletes idx from name's posting list, dropping the entry
// entirely once its list empties.
func (ni *NameIndex) Remove(name string, idx slab.Index) {
	i, found := ni.find(name)
	if !found {
		return
	}
	entry := &ni.entries[i]
	j := sort.Search(len(entry.Indices), func(k int) bool { return entry.Indices[k] >= idx })
	if j >= len(entry.Indices) || entry.Indices[j] != idx {
		return
	}
	entry.Indices = append(entry.Indices[:j], entry.Indices[j+1:]...)
	if len(entry.Indices) == 0 {
		ni.entries = append(ni.entries[:i], ni.entries[i+1:]...)
	}
}

// IndicesForName returns the posting list for an exact name match.
// The returned slice is owned by the index; callers must not mutate it.
func (ni *NameIndex) IndicesForName(name string) []slab.Index {
	i, found := ni.find(name)
	if !found {
		return nil
	}
	return ni.entries[i].Indices
}

// Entries returns every posting list, sorted by name, for substring
// prefilter scans over the whole index.
func (ni *NameIndex) Entries() []NameIndexEntry {
	return ni.entries
}

// Len reports the number of distinct names currently indexed.
func (ni *NameIndex) Len() int {
	return len(ni.entries)
}
