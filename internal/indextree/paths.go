package indextree

import "strings"

// splitPath breaks a slash-separated relative path into its non-empty
// segments. "" and "/" both yield nil (the root itself).
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// parentOf returns the parent path of p, or "" if p names a root-level
// entry.
func parentOf(p string) string {
	p = strings.Trim(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// baseName returns the final segment of p.
func baseName(p string) string {
	p = strings.Trim(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return p
	}
	return p[i+1:]
}
