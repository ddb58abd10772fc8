// Package search evaluates a compiled query against a single root's
// index tree, returning the matching entries.
package search

import (
	"github.com/fsindex/fsindex/internal/slab"
)

// FileType is the result-facing file kind, distinct from slab.FileType
// only in spelling: Symlink and Other are surfaced separately so a
// caller never has to import internal/slab to read a SearchResult.
type FileType int

const (
	FileTypeFile FileType = iota
	FileTypeDirectory
	FileTypeSymlink
	FileTypeOther
)

func fileTypeFromSlab(ft slab.FileType) FileType {
	switch ft {
	case slab.FileTypeFile:
		return FileTypeFile
	case slab.FileTypeDir:
		return FileTypeDirectory
	case slab.FileTypeSymlink:
		return FileTypeSymlink
	default:
		return FileTypeOther
	}
}

// KindFilter restricts results to files, directories, or both.
type KindFilter int

const (
	KindAny KindFilter = iota
	KindFiles
	KindDirectories
)

// Matches reports whether ft satisfies this filter.
func (k KindFilter) Matches(ft FileType) bool {
	switch k {
	case KindFiles:
		return ft == FileTypeFile || ft == FileTypeSymlink
	case KindDirectories:
		return ft == FileTypeDirectory
	default:
		return true
	}
}

// FileEntry is one matched result.
type FileEntry struct {
	Path       string
	Name       string
	FileType   FileType
	Size       *uint64
	ModifiedAt *uint64
}

// Request bundles the parameters of a search_index_data-equivalent
// call: the query itself plus the knobs governing which part of the
// tree gets walked and how the result is shaped.
type Request struct {
	Root          string // the indexed root's absolute path
	Query         string
	Kind          KindFilter
	IncludeHidden bool
	CaseSensitive bool
	MaxResults    int
	// MaxDepth bounds how many levels below Root the candidate walk
	// descends: 0 admits the root alone, negative means unlimited.
	MaxDepth int

	IndexState        string
	IndexScannedFiles int
	IndexScannedDirs  int
	IndexStartedAt    *uint64
	IndexLastUpdateAt *uint64
	IndexFinishedAt   *uint64
}

// Result is the full response of a search, including the index-state
// fields a UI displays alongside the matches themselves.
type Result struct {
	Query     string
	Root      string
	Entries   []FileEntry
	Count     int
	Truncated bool
	Scanned   int
	Errors    int

	IndexState        string
	IndexScannedFiles int
	IndexScannedDirs  int
	IndexStartedAt    *uint64
	IndexLastUpdateAt *uint64
	IndexFinishedAt   *uint64

	HighlightTerms []string
}

func emptyResult(req Request, errors int, highlightTerms []string) *Result {
	return &Result{
		Query:             req.Query,
		Root:              req.Root,
		Entries:           nil,
		Count:             0,
		Truncated:         false,
		Scanned:           0,
		Errors:            errors,
		IndexState:        req.IndexState,
		IndexScannedFiles: req.IndexScannedFiles,
		IndexScannedDirs:  req.IndexScannedDirs,
		IndexStartedAt:    req.IndexStartedAt,
		IndexLastUpdateAt: req.IndexLastUpdateAt,
		IndexFinishedAt:   req.IndexFinishedAt,
		HighlightTerms:    highlightTerms,
	}
}
