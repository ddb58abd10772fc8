package search

import (
	"os"
	"sort"
	"strings"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/ferrors"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/query"
	"github.com/fsindex/fsindex/internal/slab"
)

// Search compiles req.Query and evaluates it against tree. token
// lets an in-flight search be abandoned as soon as a newer one
// supersedes it: every stage checks it and returns a KindCancelled
// error the moment it reads as dead, rather than finishing stale work.
func Search(tree *indextree.Tree, req Request, token cancel.Token) (*Result, error) {
	matcher, err := query.CompileQuery(req.Query, req.CaseSensitive)
	if err != nil {
		return nil, err
	}

	requiredTerms := matcher.RequiredNameTerms()
	candidateIDs, constrained, ok := candidateNodeIDsForTerms(tree, requiredTerms, req.CaseSensitive, token)
	if !ok {
		return nil, ferrors.Cancelled("search cancelled during term prefiltering")
	}

	var prefiltered idSet
	if constrained {
		prefiltered = newIDSet(candidateIDs...)
	}

	rootRel := strings.TrimPrefix(req.Root, "/")
	rootID, found := tree.NodeIndexForPath(rootRel, req.CaseSensitive)
	if !found {
		return emptyResult(req, tree.Errors(), matcher.HighlightTerms()), nil
	}

	// MaxDepth 0 is a real bound (the root alone); only a negative
	// value means unlimited.
	maxDepth := req.MaxDepth
	if maxDepth < 0 {
		maxDepth = int(^uint(0) >> 1)
	}

	type frame struct {
		id            slab.Index
		depth         int
		hiddenInChain bool
	}
	var candidates []candidate
	stack := []frame{{id: rootID}}
	counter := 0
	for len(stack) > 0 {
		if !token.AliveSparse(counter) {
			return nil, ferrors.Cancelled("search cancelled during candidate walk")
		}
		counter++

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > maxDepth {
			continue
		}
		node, ok := tree.GetNode(f.id)
		if !ok {
			continue
		}

		hiddenForThis := f.hiddenInChain || (f.depth > 0 && node.IsHidden())
		if !req.IncludeHidden && hiddenForThis {
			continue
		}

		if prefiltered == nil || prefiltered.contains(f.id) {
			candidates = append(candidates, candidate{id: f.id})
		}

		if f.depth == maxDepth {
			continue
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: node.Children[i], depth: f.depth + 1, hiddenInChain: hiddenForThis})
		}
	}

	if !token.Alive() {
		return nil, ferrors.Cancelled("search cancelled before expression evaluation")
	}

	universe := make(idSet, len(candidates))
	for _, c := range candidates {
		universe.add(c.id)
	}

	matchedIDs, ok := evaluateExpressionSet(tree, matcher, matcher.Expr, candidates, universe, token)
	if !ok {
		return nil, ferrors.Cancelled("search cancelled during expression evaluation")
	}
	scanned := len(candidates)

	if !token.Alive() {
		return nil, ferrors.Cancelled("search cancelled before building results")
	}

	type matchedNode struct {
		name       string
		fileType   FileType
		id         slab.Index
		size       *uint64
		modifiedAt *uint64
	}
	var matchedNodes []matchedNode
	for i, c := range candidates {
		if !token.AliveSparse(i) {
			return nil, ferrors.Cancelled("search cancelled while building results")
		}
		if !matchedIDs.contains(c.id) {
			continue
		}
		node, ok := tree.GetNode(c.id)
		if !ok {
			continue
		}
		fileType := fileTypeFromSlab(node.FileType())
		if !req.Kind.Matches(fileType) {
			continue
		}
		var size, modifiedAt *uint64
		if s, ok := node.Size(); ok {
			size = &s
		}
		if m, ok := node.ModifiedAt(); ok {
			modifiedAt = &m
		}
		matchedNodes = append(matchedNodes, matchedNode{node.Name(), fileType, c.id, size, modifiedAt})
	}

	sort.Slice(matchedNodes, func(i, j int) bool { return matchedNodes[i].name < matchedNodes[j].name })
	truncated := false
	if req.MaxResults > 0 && len(matchedNodes) > req.MaxResults {
		truncated = true
		matchedNodes = matchedNodes[:req.MaxResults]
	}

	entries := make([]FileEntry, 0, len(matchedNodes))
	for i, m := range matchedNodes {
		if !token.AliveSparse(i) {
			return nil, ferrors.Cancelled("search cancelled while materializing entries")
		}
		relPath, ok := tree.NodePath(m.id)
		if !ok {
			continue
		}
		path := "/" + relPath

		size, modifiedAt := m.size, m.modifiedAt
		if modifiedAt == nil && (m.fileType == FileTypeFile || m.fileType == FileTypeSymlink) {
			if fi, err := os.Stat(path); err == nil {
				s := uint64(fi.Size())
				size = &s
				mt := uint64(fi.ModTime().Unix())
				modifiedAt = &mt
			}
		}

		entries = append(entries, FileEntry{
			Path:       path,
			Name:       m.name,
			FileType:   m.fileType,
			Size:       size,
			ModifiedAt: modifiedAt,
		})
	}

	return &Result{
		Query:             req.Query,
		Root:              req.Root,
		Entries:           entries,
		Count:             len(entries),
		Truncated:         truncated,
		Scanned:           scanned,
		Errors:            tree.Errors(),
		IndexState:        req.IndexState,
		IndexScannedFiles: req.IndexScannedFiles,
		IndexScannedDirs:  req.IndexScannedDirs,
		IndexStartedAt:    req.IndexStartedAt,
		IndexLastUpdateAt: req.IndexLastUpdateAt,
		IndexFinishedAt:   req.IndexFinishedAt,
		HighlightTerms:    matcher.HighlightTerms(),
	}, nil
}

// evaluateTermSet dispatches a single query term to whichever
// evaluator can answer it most cheaply: a tree-wide text match, the
// parallel content/tag filters, a structural parent/folder lookup, a
// bulk index prefilter (narrowed further per-candidate only when the
// prefilter isn't already the exact answer), or, for everything
// else, a per-candidate recheck.
func evaluateTermSet(tree *indextree.Tree, matcher *query.Matcher, term query.Term, candidates []candidate, universe idSet, token cancel.Token) (idSet, bool) {
	if term.Kind == query.TermText {
		return evaluateTextTermSet(tree, term.Text, term.IsPhrase, matcher.CaseSensitive, universe, token)
	}

	filter := term.Filter
	switch filter.Kind {
	case query.FilterContent:
		needle := filter.Needle
		if !matcher.CaseSensitive {
			needle = query.ASCIILower(needle)
		}
		return evaluateContentFilter(tree, needle, candidates, universe, !matcher.CaseSensitive, token)
	case query.FilterTag:
		return evaluateTagFilter(tree, filter.Tags, candidates, universe, !matcher.CaseSensitive, token)
	}

	if set, applies, ok := structuralFilterSet(tree, filter, matcher.CaseSensitive, universe, token); applies {
		if !ok {
			return nil, false
		}
		return set, true
	}

	if prefilter, ok := prefilterSetForFilter(tree, filter); ok {
		narrowed := prefilter.intersect(universe)
		if isExactPrefilterFilter(filter) {
			return narrowed, true
		}
		result := make(idSet)
		for i, c := range candidates {
			if !token.AliveSparse(i) {
				return nil, false
			}
			if !narrowed.contains(c.id) {
				continue
			}
			if matchesTermWithPath(tree, term, c.id, matcher.CaseSensitive) {
				result.add(c.id)
			}
		}
		return result, true
	}

	result := make(idSet)
	for i, c := range candidates {
		if !token.AliveSparse(i) {
			return nil, false
		}
		if matchesTermWithPath(tree, term, c.id, matcher.CaseSensitive) {
			result.add(c.id)
		}
	}
	return result, true
}

// evaluateExpressionSet recursively evaluates expr against candidates,
// checking cancellation at entry and between each And/Or part so a
// cancelled search unwinds promptly instead of finishing every branch.
func evaluateExpressionSet(tree *indextree.Tree, matcher *query.Matcher, expr query.Expr, candidates []candidate, universe idSet, token cancel.Token) (idSet, bool) {
	if !token.Alive() {
		return nil, false
	}

	switch e := expr.(type) {
	case query.TermExpr:
		return evaluateTermSet(tree, matcher, e.Term, candidates, universe, token)

	case query.NotExpr:
		inner, ok := evaluateExpressionSet(tree, matcher, e.Inner, candidates, universe, token)
		if !ok {
			return nil, false
		}
		return universe.difference(inner), true

	case query.AndExpr:
		if len(e.Parts) == 0 {
			return universe, true
		}
		set, ok := evaluateExpressionSet(tree, matcher, e.Parts[0], candidates, universe, token)
		if !ok {
			return nil, false
		}
		for _, part := range e.Parts[1:] {
			if !token.Alive() {
				return nil, false
			}
			other, ok := evaluateExpressionSet(tree, matcher, part, candidates, universe, token)
			if !ok {
				return nil, false
			}
			set = set.intersect(other)
			if len(set) == 0 {
				break
			}
		}
		return set, true

	case query.OrExpr:
		set := make(idSet)
		for _, part := range e.Parts {
			if !token.Alive() {
				return nil, false
			}
			other, ok := evaluateExpressionSet(tree, matcher, part, candidates, universe, token)
			if !ok {
				return nil, false
			}
			set = set.union(other)
		}
		return set, true

	default:
		return idSet{}, true
	}
}
