package search

import (
	"runtime"
	"strings"

	"github.com/pkg/xattr"
	"howett.net/plist"

	"golang.org/x/sync/errgroup"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/ferrors"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/slab"
)

// errForbiddenTagChar reports a tag name that can't be embedded safely
// in an mdfind query string.
func errForbiddenTagChar(tag string, c byte) error {
	return ferrors.InvalidInput("tag filter contains unsupported character %q: %s", string(c), tag)
}

// userTagXattr is the extended attribute macOS Finder stores user tags
// under. Reading it on a platform that doesn't populate it (or doesn't
// support xattrs at all) simply yields no tags, same as a file that was
// never tagged.
const userTagXattr = "com.apple.metadata:_kMDItemUserTags"

// tagFilterMdfindThreshold is the candidate-set size above which
// shelling out to Spotlight's mdfind is cheaper than reading xattr
// metadata file by file.
const tagFilterMdfindThreshold = 10000

// readTagsFromPath reads the Finder tag list from path, returning nil
// if the file has no tags, doesn't exist, or the attribute can't be
// read. Tags are stored as a binary plist array of strings, each
// optionally suffixed with "\nN" encoding the tag's color.
func readTagsFromPath(path string, caseInsensitive bool) []string {
	raw, err := xattr.Get(path, userTagXattr)
	if err != nil || len(raw) == 0 {
		return nil
	}
	return parseTags(raw, caseInsensitive)
}

func parseTags(raw []byte, caseInsensitive bool) []string {
	var items []any
	if _, err := plist.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		out = append(out, stripTagSuffix(s, caseInsensitive))
	}
	return out
}

// stripTagSuffix extracts the tag name from "Name\nN", discarding the
// Finder color index, optionally ASCII-lowercasing the result.
func stripTagSuffix(value string, caseInsensitive bool) string {
	name := value
	if i := strings.IndexByte(value, '\n'); i >= 0 {
		name = value[:i]
	}
	if caseInsensitive {
		return asciiLowerTag(name)
	}
	return name
}

func asciiLowerTag(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}

// fileHasAnyTag reports whether path carries at least one of tags.
func fileHasAnyTag(path string, tags []string, caseInsensitive bool) bool {
	fileTags := readTagsFromPath(path, caseInsensitive)
	if len(fileTags) == 0 || len(tags) == 0 {
		return false
	}
	if caseInsensitive {
		for _, ft := range fileTags {
			for _, t := range tags {
				if ft == asciiLowerTag(t) {
					return true
				}
			}
		}
		return false
	}
	for _, ft := range fileTags {
		for _, t := range tags {
			if ft == t {
				return true
			}
		}
	}
	return false
}

// tagHasForbiddenChar returns the first Spotlight-unsafe character in
// tag, if any: a quote, backslash or glob star could otherwise inject
// into the mdfind query string built from it.
func tagHasForbiddenChar(tag string) (byte, bool) {
	for i := 0; i < len(tag); i++ {
		switch tag[i] {
		case '\'', '\\', '*':
			return tag[i], true
		}
	}
	return 0, false
}

// tagFileCandidate is a candidate already known to exist, with its
// full path resolved, ready for either tag-evaluation strategy.
type tagFileCandidate struct {
	id   slab.Index
	path string
}

// evaluateTagFilter runs a tag: filter over every file candidate in
// universe, picking xattr or mdfind per tagFilterMdfindThreshold.
func evaluateTagFilter(tree *indextree.Tree, tags []string, candidates []candidate, universe idSet, caseInsensitive bool, token cancel.Token) (idSet, bool) {
	if !token.Alive() {
		return nil, false
	}
	if len(tags) == 0 {
		return idSet{}, true
	}

	var files []tagFileCandidate
	for _, c := range candidates {
		if !universe.contains(c.id) {
			continue
		}
		if node, ok := tree.GetNode(c.id); !ok || !node.IsFile() {
			continue
		}
		path, ok := tree.NodePath(c.id)
		if !ok {
			continue
		}
		files = append(files, tagFileCandidate{c.id, "/" + path})
	}

	if !token.Alive() {
		return nil, false
	}

	if len(files) <= tagFilterMdfindThreshold {
		return evaluateTagFilterViaXattr(files, tags, caseInsensitive, token)
	}
	return evaluateTagFilterViaMdfind(files, tags, caseInsensitive, token)
}

func evaluateTagFilterViaXattr(files []tagFileCandidate, tags []string, caseInsensitive bool, token cancel.Token) (idSet, bool) {
	results := make([]bool, len(files))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var g errgroup.Group
	for i, f := range files {
		i, f := i, f
		if !token.Alive() {
			break
		}
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if fileHasAnyTag(f.path, tags, caseInsensitive) {
				results[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	if !token.Alive() {
		return nil, false
	}
	out := make(idSet)
	for i, matched := range results {
		if matched {
			out.add(files[i].id)
		}
	}
	return out, true
}
