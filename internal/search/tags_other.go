//go:build !darwin

package search

import "github.com/fsindex/fsindex/internal/cancel"

// evaluateTagFilterViaMdfind has no Spotlight to call on this
// platform; tags themselves are a macOS Finder concept, so every
// non-macOS tag: query falls through to the (empty-result) xattr
// path rather than failing.
func evaluateTagFilterViaMdfind(files []tagFileCandidate, tags []string, caseInsensitive bool, token cancel.Token) (idSet, bool) {
	return evaluateTagFilterViaXattr(files, tags, caseInsensitive, token)
}
