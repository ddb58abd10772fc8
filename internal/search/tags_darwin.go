//go:build darwin

package search

import (
	"os/exec"
	"strings"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/logx"
)

// evaluateTagFilterViaMdfind shells out to Spotlight for candidate
// sets too large to stat one xattr read at a time, then intersects the
// results it returns with our own candidate set. Falls back to the
// xattr strategy if mdfind itself fails (forbidden characters in a
// tag, or the binary missing).
func evaluateTagFilterViaMdfind(files []tagFileCandidate, tags []string, caseInsensitive bool, token cancel.Token) (idSet, bool) {
	if !token.Alive() {
		return nil, false
	}

	paths, err := searchTagsMdfind(tags, caseInsensitive)
	if err != nil {
		logx.Debugf(nil, "search: mdfind failed, falling back to xattr: %v", err)
		return evaluateTagFilterViaXattr(files, tags, caseInsensitive, token)
	}

	if !token.Alive() {
		return nil, false
	}

	spotlight := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		spotlight[p] = struct{}{}
	}

	out := make(idSet)
	for _, f := range files {
		if _, ok := spotlight[f.path]; ok {
			out.add(f.id)
		}
	}
	return out, true
}

// searchTagsMdfind runs mdfind over every requested tag (OR semantics)
// and returns the matching absolute paths.
func searchTagsMdfind(tags []string, caseInsensitive bool) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	for _, tag := range tags {
		if c, bad := tagHasForbiddenChar(tag); bad {
			return nil, errForbiddenTagChar(tag, c)
		}
	}

	modifier := ""
	if caseInsensitive {
		modifier = "c"
	}
	clauses := make([]string, len(tags))
	for i, tag := range tags {
		clauses[i] = "kMDItemUserTags == '*" + tag + "*'" + modifier
	}
	query := strings.Join(clauses, " || ")

	out, err := exec.Command("mdfind", query).Output()
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	paths := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			paths = append(paths, l)
		}
	}
	return paths, nil
}
