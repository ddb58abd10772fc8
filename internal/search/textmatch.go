package search

import (
	"sort"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/query"
	"github.com/fsindex/fsindex/internal/slab"
)

// evaluateTextTermSet matches a text term against the tree, then
// restricts the result to the candidates already admitted by the
// walk (universe).
func evaluateTextTermSet(tree *indextree.Tree, value string, isPhrase, caseSensitive bool, universe idSet, token cancel.Token) (idSet, bool) {
	segments := query.SegmentQueryText(value, isPhrase)
	if len(segments) == 0 {
		return idSet{}, true
	}
	matched, ok := executeTextSegments(tree, segments, caseSensitive, token)
	if !ok {
		return nil, false
	}
	out := make(idSet, len(matched))
	for _, id := range matched {
		if universe.contains(id) {
			out[id] = struct{}{}
		}
	}
	return out, true
}

// executeTextSegments walks the tree segment by segment: a bare "*"
// widens to direct children (or all descendants if a pending "**"
// preceded it), a concrete segment narrows by name match at the same
// scope, and a trailing "**" widens to every remaining descendant.
func executeTextSegments(tree *indextree.Tree, segments []query.TextQuerySegment, caseSensitive bool, token cancel.Token) ([]slab.Index, bool) {
	var nodeSet []slab.Index
	haveNodeSet := false
	pendingGlobstar := false
	sawMatcher := false
	sawGlobstar := false

	for _, seg := range segments {
		switch seg.Kind {
		case query.SegmentGlobStar:
			sawGlobstar = true
			pendingGlobstar = true
		case query.SegmentStar:
			sawMatcher = true
			var next []slab.Index
			var ok bool
			if haveNodeSet {
				if pendingGlobstar {
					next, ok = allDescendantSegments(tree, nodeSet, token)
				} else {
					next, ok = allDirectChildren(tree, nodeSet, token)
				}
			} else {
				next, ok = allIndexedIDs(tree, token)
			}
			if !ok {
				return nil, false
			}
			nodeSet, haveNodeSet = next, true
			pendingGlobstar = false
		case query.SegmentConcrete:
			sawMatcher = true
			var next []slab.Index
			var ok bool
			if haveNodeSet {
				if pendingGlobstar {
					next, ok = matchDescendantSegments(tree, nodeSet, seg.Matcher, caseSensitive, token)
				} else {
					next, ok = matchDirectChildSegments(tree, nodeSet, seg.Matcher, caseSensitive, token)
				}
			} else {
				next, ok = matchInitialSegment(tree, seg.Matcher, caseSensitive, token)
			}
			if !ok {
				return nil, false
			}
			nodeSet, haveNodeSet = next, true
			pendingGlobstar = false
		}
	}

	var result []slab.Index
	var ok bool
	switch {
	case pendingGlobstar:
		if haveNodeSet {
			result, ok = allDescendantSegments(tree, nodeSet, token)
		} else {
			result, ok = allIndexedIDs(tree, token)
		}
	case sawMatcher:
		result, ok = nodeSet, true
	default:
		result, ok = allIndexedIDs(tree, token)
	}
	if !ok {
		return nil, false
	}

	// "**" can revisit the same descendant through more than one
	// branch; collapse duplicates only when both a globstar and a
	// matching segment ('*' or a concrete name) were actually exercised.
	if sawGlobstar && sawMatcher {
		result = dedupIndicesInPlace(result)
	}
	return result, true
}

func matchInitialSegment(tree *indextree.Tree, matcher query.ConcreteMatcher, caseSensitive bool, token cancel.Token) ([]slab.Index, bool) {
	var nodes []slab.Index
	for i, entry := range tree.NameIndex().Entries() {
		if !token.AliveSparse(i) {
			return nil, false
		}
		if matcher.Matches(entry.Name, caseSensitive) {
			nodes = append(nodes, entry.Indices...)
		}
	}
	return nodes, true
}

type namedChild struct {
	name string
	id   slab.Index
}

func matchDirectChildSegments(tree *indextree.Tree, parents []slab.Index, matcher query.ConcreteMatcher, caseSensitive bool, token cancel.Token) ([]slab.Index, bool) {
	var out []slab.Index
	for i, parent := range parents {
		if !token.AliveSparse(i) {
			return nil, false
		}
		node, ok := tree.GetNode(parent)
		if !ok {
			continue
		}
		var matched []namedChild
		for _, c := range node.Children {
			cn, ok := tree.GetNode(c)
			if !ok {
				continue
			}
			if matcher.Matches(cn.Name(), caseSensitive) {
				matched = append(matched, namedChild{cn.Name(), c})
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].name < matched[j].name })
		for _, m := range matched {
			out = append(out, m.id)
		}
	}
	return out, true
}

func allDirectChildren(tree *indextree.Tree, parents []slab.Index, token cancel.Token) ([]slab.Index, bool) {
	var out []slab.Index
	for i, parent := range parents {
		if !token.AliveSparse(i) {
			return nil, false
		}
		node, ok := tree.GetNode(parent)
		if !ok {
			continue
		}
		var matched []namedChild
		for _, c := range node.Children {
			cn, ok := tree.GetNode(c)
			if !ok {
				continue
			}
			matched = append(matched, namedChild{cn.Name(), c})
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].name < matched[j].name })
		for _, m := range matched {
			out = append(out, m.id)
		}
	}
	return out, true
}

func matchDescendantSegments(tree *indextree.Tree, parents []slab.Index, matcher query.ConcreteMatcher, caseSensitive bool, token cancel.Token) ([]slab.Index, bool) {
	var matched []namedChild
	visited := 0
	for _, parent := range parents {
		if !token.AliveSparse(visited) {
			return nil, false
		}
		descendants, ok := allSubnodes(tree, parent, token)
		if !ok {
			return nil, false
		}
		for _, d := range descendants {
			if !token.AliveSparse(visited) {
				return nil, false
			}
			visited++
			dn, ok := tree.GetNode(d)
			if !ok {
				continue
			}
			if matcher.Matches(dn.Name(), caseSensitive) {
				matched = append(matched, namedChild{dn.Name(), d})
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].name < matched[j].name })
	out := make([]slab.Index, len(matched))
	for i, m := range matched {
		out[i] = m.id
	}
	return out, true
}

func allDescendantSegments(tree *indextree.Tree, parents []slab.Index, token cancel.Token) ([]slab.Index, bool) {
	var matched []namedChild
	visited := 0
	for _, parent := range parents {
		if !token.AliveSparse(visited) {
			return nil, false
		}
		descendants, ok := allSubnodes(tree, parent, token)
		if !ok {
			return nil, false
		}
		for _, d := range descendants {
			if !token.AliveSparse(visited) {
				return nil, false
			}
			visited++
			dn, ok := tree.GetNode(d)
			if !ok {
				continue
			}
			matched = append(matched, namedChild{dn.Name(), d})
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].name < matched[j].name })
	out := make([]slab.Index, len(matched))
	for i, m := range matched {
		out[i] = m.id
	}
	return out, true
}

// allSubnodes does an iterative (explicit-stack) collection of every
// descendant of index, not including index itself.
func allSubnodes(tree *indextree.Tree, index slab.Index, token cancel.Token) ([]slab.Index, bool) {
	var result []slab.Index
	var stack []slab.Index
	if node, ok := tree.GetNode(index); ok {
		stack = append(stack, node.Children...)
	}
	i := 0
	for len(stack) > 0 {
		if !token.AliveSparse(i) {
			return nil, false
		}
		i++
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, cur)
		if node, ok := tree.GetNode(cur); ok {
			stack = append(stack, node.Children...)
		}
	}
	return result, true
}

func dedupIndicesInPlace(ids []slab.Index) []slab.Index {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return dedupSorted(ids)
}
