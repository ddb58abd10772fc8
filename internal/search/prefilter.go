package search

import (
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/query"
)

// collectExtensionIDs unions the node ids for every extension in the
// list (an ext: filter can name more than one, semicolon-separated).
func collectExtensionIDs(tree *indextree.Tree, extensions []string) idSet {
	out := make(idSet)
	for _, ext := range extensions {
		for _, id := range tree.IndicesForExtension(ext) {
			out.add(id)
		}
	}
	return out
}

// typeTargetIDs resolves a TypeFilterTarget (file/folder/a named
// extension group) to the node ids it covers.
func typeTargetIDs(tree *indextree.Tree, target query.TypeFilterTarget) idSet {
	switch target.Kind {
	case query.TypeTargetFile:
		return newIDSet(tree.FileIDs()...)
	case query.TypeTargetFolder:
		return newIDSet(tree.DirectoryIDs()...)
	default:
		return collectExtensionIDs(tree, target.Extensions)
	}
}

// prefilterSetForFilter returns the prefilter universe a filter can be
// narrowed to before any per-node re-check, or ok=false if the filter
// isn't one of the kinds a bulk index lookup can answer.
func prefilterSetForFilter(tree *indextree.Tree, filter query.Filter) (idSet, bool) {
	switch filter.Kind {
	case query.FilterExtension:
		return collectExtensionIDs(tree, filter.Extensions), true
	case query.FilterType:
		return typeTargetIDs(tree, filter.Type), true
	case query.FilterTypeMacro:
		return typeTargetIDs(tree, filter.Type), true
	case query.FilterFile:
		return newIDSet(tree.FileIDs()...), true
	case query.FilterFolder:
		return newIDSet(tree.DirectoryIDs()...), true
	default:
		return nil, false
	}
}

// isExactPrefilterFilter reports whether the bulk prefilter set
// already is the final answer for this filter, with no further
// per-node re-check needed (true for ext:/type: always, and for
// type-macro/file:/folder: only when they carry no extra name
// argument to re-match against).
func isExactPrefilterFilter(filter query.Filter) bool {
	switch filter.Kind {
	case query.FilterExtension, query.FilterType:
		return true
	case query.FilterTypeMacro:
		return !filter.HasMacroArg
	case query.FilterFile, query.FilterFolder:
		return !filter.HasArgument
	default:
		return false
	}
}
