package query

import (
	"strings"

	"github.com/fsindex/fsindex/internal/ferrors"
)

// normalizeScopeFilterPath validates and normalizes the path argument
// of "parent:", "in:"/"infolder:" and "nosubfolders:": it must be
// non-empty, backslashes are treated as path separators the same as
// forward slashes, and the result carries no leading or trailing
// slash so it compares directly against indextree's slash-joined
// relative paths.
func normalizeScopeFilterPath(argument, filterName string) (string, error) {
	trimmed := strings.TrimSpace(argument)
	if trimmed == "" {
		return "", ferrors.InvalidInput("%s: requires a path argument", filterName)
	}
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", ferrors.InvalidInput("%s: path argument must not be only slashes", filterName)
	}
	return trimmed, nil
}
