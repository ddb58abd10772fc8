package search

import (
	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/query"
	"github.com/fsindex/fsindex/internal/slab"
)

// structuralFilterSet answers parent:/in:(infolder:)/nosubfolders:
// directly from the tree's parent/child links rather than per-node
// re-checking. applies is false for "not a structural filter"; an
// absent scope path matches nothing.
func structuralFilterSet(tree *indextree.Tree, filter query.Filter, caseSensitive bool, universe idSet, token cancel.Token) (result idSet, applies bool, ok bool) {
	switch filter.Kind {
	case query.FilterParent:
		id, found := tree.NodeIndexForPath(filter.Path, caseSensitive)
		if !found {
			return idSet{}, true, true
		}
		node, found := tree.GetNode(id)
		if !found {
			return idSet{}, true, true
		}
		out := make(idSet)
		for _, c := range node.Children {
			if universe.contains(c) {
				out.add(c)
			}
		}
		return out, true, true

	case query.FilterInFolder:
		folderID, found := tree.NodeIndexForPath(filter.Path, caseSensitive)
		if !found {
			return idSet{}, true, true
		}
		out := make(idSet)
		stack := []slab.Index{folderID}
		counter := 0
		for len(stack) > 0 {
			if !token.AliveSparse(counter) {
				return out, true, false
			}
			counter++
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			node, found := tree.GetNode(cur)
			if !found {
				continue
			}
			for _, c := range node.Children {
				if universe.contains(c) {
					out.add(c)
				}
				stack = append(stack, c)
			}
		}
		return out, true, true

	case query.FilterNoSubfolders:
		folderID, found := tree.NodeIndexForPath(filter.Path, caseSensitive)
		if !found {
			return idSet{}, true, true
		}
		node, found := tree.GetNode(folderID)
		if !found {
			return idSet{}, true, true
		}
		out := make(idSet)
		if universe.contains(folderID) {
			out.add(folderID)
		}
		for _, c := range node.Children {
			cn, found := tree.GetNode(c)
			if found && cn.IsFile() && universe.contains(c) {
				out.add(c)
			}
		}
		return out, true, true

	default:
		return nil, false, true
	}
}
