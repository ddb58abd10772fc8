package search

import (
	"strings"

	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/query"
	"github.com/fsindex/fsindex/internal/slab"
)

// matchesTermWithPath resolves id to its node and path, then re-checks
// term against that single candidate. Used only where a bulk answer
// isn't available: the per-candidate recheck after a non-exact
// prefilter narrowing, and the final fallback for term kinds no
// earlier stage of evaluateTermSet already handled in bulk (size:,
// dm:, dc:).
func matchesTermWithPath(tree *indextree.Tree, term query.Term, id slab.Index, caseSensitive bool) bool {
	node, ok := tree.GetNode(id)
	if !ok {
		return false
	}
	path, ok := tree.NodePath(id)
	if !ok {
		return false
	}
	return matchesNodeTerm(term, node, "/"+path, caseSensitive)
}

// matchesNodeTerm is the single-node counterpart of the tree-wide
// evaluators in textmatch.go/prefilter.go/structural.go: given a term
// and one concrete node (plus its full path), report whether the term
// matches it directly, with no set-based shortcuts available.
func matchesNodeTerm(term query.Term, node slab.Node, path string, caseSensitive bool) bool {
	switch term.Kind {
	case query.TermText:
		return query.MatchesSingleSegmentName(term, node.Name(), caseSensitive)
	case query.TermFilter:
		return matchesFilterNode(term.Filter, node, path, caseSensitive)
	default:
		return false
	}
}

func matchesFilterNode(filter query.Filter, node slab.Node, path string, caseSensitive bool) bool {
	switch filter.Kind {
	case query.FilterExtension:
		ext, ok := node.Extension()
		if !ok {
			return false
		}
		for _, e := range filter.Extensions {
			if strings.EqualFold(e, ext) {
				return true
			}
		}
		return false

	case query.FilterType:
		return matchesTypeTarget(filter.Type, node)

	case query.FilterTypeMacro:
		if !matchesTypeTarget(filter.Type, node) {
			return false
		}
		if !filter.HasMacroArg {
			return true
		}
		return query.MatchesSingleSegmentName(query.Term{Kind: query.TermText, Text: filter.MacroArgument}, node.Name(), caseSensitive)

	case query.FilterSize:
		size, ok := node.Size()
		if !ok {
			return false
		}
		return filter.Size.Matches(size)

	case query.FilterFile:
		if !node.IsFile() {
			return false
		}
		if !filter.HasArgument {
			return true
		}
		return query.MatchesSingleSegmentName(query.Term{Kind: query.TermText, Text: filter.Argument}, node.Name(), caseSensitive)

	case query.FilterFolder:
		if !node.IsDir() {
			return false
		}
		if !filter.HasArgument {
			return true
		}
		return query.MatchesSingleSegmentName(query.Term{Kind: query.TermText, Text: filter.Argument}, node.Name(), caseSensitive)

	case query.FilterParent:
		return pathEquals(parentOfPath(path), "/"+filter.Path, caseSensitive)

	case query.FilterInFolder:
		return isAncestorPath("/"+filter.Path, path, caseSensitive)

	case query.FilterNoSubfolders:
		folder := "/" + filter.Path
		if pathEquals(path, folder, caseSensitive) {
			return node.IsDir()
		}
		return node.IsFile() && pathEquals(parentOfPath(path), folder, caseSensitive)

	case query.FilterDateModified:
		ts, ok := node.ModifiedAt()
		if !ok {
			return false
		}
		return filter.Date.Matches(int64(ts))

	case query.FilterDateCreated:
		ts, ok := node.CreatedAt()
		if !ok {
			return false
		}
		return filter.Date.Matches(int64(ts))

	default:
		// FilterContent and FilterTag are always resolved by
		// evaluateTermSet before reaching a per-node recheck.
		return false
	}
}

func matchesTypeTarget(target query.TypeFilterTarget, node slab.Node) bool {
	switch target.Kind {
	case query.TypeTargetFile:
		return node.IsFile()
	case query.TypeTargetFolder:
		return node.IsDir()
	default:
		ext, ok := node.Extension()
		if !ok {
			return false
		}
		for _, e := range target.Extensions {
			if strings.EqualFold(e, ext) {
				return true
			}
		}
		return false
	}
}

func parentOfPath(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	i := strings.LastIndex(trimmed, "/")
	if i <= 0 {
		return "/"
	}
	return trimmed[:i]
}

func pathEquals(a, b string, caseSensitive bool) bool {
	a = strings.TrimSuffix(a, "/")
	b = strings.TrimSuffix(b, "/")
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// isAncestorPath reports whether folder is path itself or a path
// component prefix of it.
func isAncestorPath(folder, path string, caseSensitive bool) bool {
	folder = strings.TrimSuffix(folder, "/")
	if pathEquals(folder, path, caseSensitive) {
		return true
	}
	prefix := folder + "/"
	if caseSensitive {
		return strings.HasPrefix(path, prefix)
	}
	return len(path) >= len(prefix) && strings.EqualFold(path[:len(prefix)], prefix)
}
