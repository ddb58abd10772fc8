package search

import (
	"github.com/fsindex/fsindex/internal/slab"
)

// idSet is the Go stand-in for the evaluator's BTreeSet<SlabIndex>
// universes: membership only matters during evaluation, and the final
// result list is re-sorted by name regardless, so a plain map serves
// every intersection/union/difference the expression evaluator needs.
type idSet map[slab.Index]struct{}

func newIDSet(ids ...slab.Index) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) contains(id slab.Index) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) add(id slab.Index) {
	s[id] = struct{}{}
}

func (s idSet) union(other idSet) idSet {
	out := make(idSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

func (s idSet) intersect(other idSet) idSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(idSet, len(small))
	for id := range small {
		if _, ok := large[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s idSet) difference(other idSet) idSet {
	out := make(idSet, len(s))
	for id := range s {
		if _, ok := other[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}
