package search

import (
	"sort"
	"strings"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/query"
	"github.com/fsindex/fsindex/internal/slab"
)

// candidate is the minimal per-result handle the walk accumulates:
// only the node id, so the walk never pays for path reconstruction
// until a node actually survives to the final result list.
type candidate struct {
	id slab.Index
}

// candidateNodeIDsForTerms narrows the search to the node ids that
// could possibly satisfy every required text term (the prefilter seed
// from query.Matcher.RequiredNameTerms), via a name-index substring
// scan per term and a sorted-merge intersection across terms.
// constrained == false means "no prefilter": every node is a candidate.
// constrained == true with empty ids means some required term matched
// nothing, so the whole search is known to match nothing. ok == false
// means cancelled.
func candidateNodeIDsForTerms(tree *indextree.Tree, requiredTerms []string, caseSensitive bool, token cancel.Token) (ids []slab.Index, constrained bool, ok bool) {
	if len(requiredTerms) == 0 {
		return nil, false, true
	}

	var intersection []slab.Index
	haveIntersection := false
	entries := tree.NameIndex().Entries()

	for _, term := range requiredTerms {
		var matched []slab.Index
		for i, entry := range entries {
			if !token.AliveSparse(i) {
				return nil, true, false
			}
			var hit bool
			if caseSensitive {
				hit = strings.Contains(entry.Name, term)
			} else {
				hit = containsASCIICaseInsensitive(entry.Name, term)
			}
			if hit {
				matched = append(matched, entry.Indices...)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
		matched = dedupSorted(matched)

		if len(matched) == 0 {
			return []slab.Index{}, true, true
		}

		if !haveIntersection {
			intersection = matched
			haveIntersection = true
			continue
		}
		var cancelled bool
		intersection, cancelled = intersectSortedIDs(intersection, matched, token)
		if cancelled {
			return intersection, true, false
		}
	}
	return intersection, true, true
}

// containsASCIICaseInsensitive reports whether needle occurs anywhere
// in haystack, comparing byte-for-byte with ASCII case folded (the
// same limitation query.asciiLower documents elsewhere).
func containsASCIICaseInsensitive(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	h := query.ASCIILower(haystack)
	n := query.ASCIILower(needle)
	return strings.Contains(h, n)
}

// intersectSortedIDs merges two sorted, deduplicated id lists,
// reporting a partial result and cancelled=true if the token dies
// mid-merge.
func intersectSortedIDs(left, right []slab.Index, token cancel.Token) (result []slab.Index, cancelled bool) {
	i, j, counter := 0, 0, 0
	for i < len(left) && j < len(right) {
		if !token.AliveSparse(counter) {
			return result, true
		}
		counter++
		switch {
		case left[i] == right[j]:
			result = append(result, left[i])
			i++
			j++
		case left[i] < right[j]:
			i++
		default:
			j++
		}
	}
	return result, false
}

func dedupSorted(ids []slab.Index) []slab.Index {
	if len(ids) == 0 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// allIndexedIDs returns every node id the name index knows about,
// i.e. every node currently in the tree (the "no constraint yet"
// universe a bare "*"/"**" term expands to).
func allIndexedIDs(tree *indextree.Tree, token cancel.Token) (ids []slab.Index, ok bool) {
	for i, entry := range tree.NameIndex().Entries() {
		if !token.AliveSparse(i) {
			return nil, false
		}
		ids = append(ids, entry.Indices...)
	}
	return ids, true
}
