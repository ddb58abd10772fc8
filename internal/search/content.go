package search

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/query"
	"github.com/fsindex/fsindex/internal/slab"
)

// contentScanChunk is the read-buffer size for the streaming substring
// scan: large enough to amortize syscalls, small enough that a single
// huge file doesn't balloon memory the way a whole-file read would.
const contentScanChunk = 256 * 1024

// evaluateContentFilter runs a content: filter over every file
// candidate already admitted to universe, in parallel, via a
// streaming byte-substring scan of each file. needle must already be
// ASCII-lowered by the caller when the search is case-insensitive.
func evaluateContentFilter(tree *indextree.Tree, needle string, candidates []candidate, universe idSet, caseInsensitive bool, token cancel.Token) (idSet, bool) {
	if !token.Alive() {
		return nil, false
	}
	needleBytes := []byte(needle)
	if len(needleBytes) == 0 {
		return idSet{}, true
	}

	type fileCandidate struct {
		id   slab.Index
		path string
	}
	var files []fileCandidate
	for _, c := range candidates {
		if !universe.contains(c.id) {
			continue
		}
		node, ok := tree.GetNode(c.id)
		if !ok || !node.IsFile() {
			continue
		}
		path, ok := tree.NodePath(c.id)
		if !ok {
			continue
		}
		files = append(files, fileCandidate{c.id, "/" + path})
	}

	results := make([]bool, len(files))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var g errgroup.Group
	for i, f := range files {
		i, f := i, f
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			matched, ok := fileContentMatches(f.path, needleBytes, caseInsensitive, token)
			if ok && matched {
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

// fileContentMatches streams path looking for needle (already lowered
// if caseInsensitive), never holding more than two chunks in memory at
// once so a match spanning a chunk boundary is still found. ok is
// false on an unreadable file (permission denied, since-deleted path),
// which the caller treats as "no match" rather than an error.
func fileContentMatches(path string, needle []byte, caseInsensitive bool, token cancel.Token) (matched bool, ok bool) {
	if !token.Alive() {
		return false, false
	}
	f, err := os.Open(path)
	if err != nil {
		return false, false
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, contentScanChunk)
	overlap := len(needle) - 1
	if overlap < 0 {
		overlap = 0
	}
	var tail []byte
	buf := make([]byte, contentScanChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			haystack := append(append([]byte(nil), tail...), chunk...)
			if caseInsensitive {
				haystack = []byte(query.ASCIILower(string(haystack)))
			}
			if bytes.Contains(haystack, needle) {
				return true, true
			}
			// Keep the last overlap bytes so a match spanning the chunk
			// boundary is still found; a short first read can leave
			// fewer than overlap bytes total.
			keep := len(haystack) - overlap
			if keep < 0 {
				keep = 0
			}
			tail = append(tail[:0], haystack[keep:]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, true
		}
	}
	return false, true
}
