// Package snapshot implements the on-disk cache format that lets an
// index be reloaded without a full re-walk: a custom fixed-layout
// binary encoding of the slab and name index, framed by zstd
// compression and written atomically via a temp-file-then-rename.
package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/logx"
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/klauspost/compress/zstd"
)

// MaxAge is the staleness threshold for platforms without an event-log
// replay mechanism to bring an old cache up to date incrementally.
const MaxAge = 60 * 60 * time.Second

// Save writes storage to path atomically: encoded and zstd-compressed
// into a ".tmp" sibling, then renamed into place so a reader never
// observes a partially written cache file.
func Save(path string, s Storage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create cache dir: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("snapshot: create temp cache file: %w", err)
	}

	threads := runtime.GOMAXPROCS(0)
	enc, err := zstd.NewWriter(f,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(6)),
		zstd.WithEncoderConcurrency(threads),
	)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: create zstd encoder: %w", err)
	}

	if err := encode(enc, s); err != nil {
		enc.Close()
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: flush zstd encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename cache file into place: %w", err)
	}

	logx.Debugf(nil, "snapshot: wrote cache to %s (%d entries)", path, s.EntriesLen)
	return nil
}

// LoadResult is what Load returns on a cache hit.
type LoadResult struct {
	Tree        *indextree.Tree
	LastEventID uint64
	SavedAt     uint64
	RescanCount uint64
}

// Load reads, decompresses, decodes and validates the cache at path
// against the expected root identity. It returns (nil result, false)
// on any miss: file absent, corrupt, version mismatch, identity
// mismatch, or staleness. A miss always means "fall back to a fresh
// walk", never an error the caller must handle specially.
// trustEventReplay should be true on platforms whose watcher can
// replay events since a saved cursor (FSEvents on macOS); there, a
// nonzero LastEventID means the cache can be trusted regardless of
// age, since missed events will be replayed incrementally. Elsewhere
// this should be false, falling back to the TTL + root-mtime check.
func Load(path string, root string, rootIsDir bool, ignorePaths []string, pool *namepool.Pool, trustEventReplay bool) (LoadResult, bool) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, false
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		logx.Debugf(nil, "snapshot: decompress %s: %v", path, err)
		return LoadResult{}, false
	}
	defer dec.Close()

	s, err := decode(dec)
	if err != nil {
		logx.Debugf(nil, "snapshot: decode %s: %v", path, err)
		return LoadResult{}, false
	}

	if s.Version != Version {
		logx.Debugf(nil, "snapshot: version mismatch %d != %d", s.Version, Version)
		return LoadResult{}, false
	}
	if s.Path != root {
		logx.Debugf(nil, "snapshot: root mismatch %s != %s", s.Path, root)
		return LoadResult{}, false
	}
	if s.RootIsDir != rootIsDir {
		return LoadResult{}, false
	}
	if !stringSlicesEqual(s.IgnorePaths, ignorePaths) {
		return LoadResult{}, false
	}

	needsStalenessCheck := !trustEventReplay || s.LastEventID == 0
	if needsStalenessCheck && cacheIsStale(root, s.SavedAt) {
		logx.Debugf(nil, "snapshot: cache at %s considered stale", path)
		return LoadResult{}, false
	}

	tree := s.ToTree(pool)
	logx.Debugf(nil, "snapshot: loaded cache from %s (%d nodes, event_id=%d)", path, tree.Len(), s.LastEventID)

	return LoadResult{Tree: tree, LastEventID: s.LastEventID, SavedAt: s.SavedAt, RescanCount: s.RescanCount}, true
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cacheIsStale(root string, savedAt uint64) bool {
	now := uint64(time.Now().Unix())
	if now > savedAt && now-savedAt > uint64(MaxAge.Seconds()) {
		return true
	}
	info, err := os.Lstat(root)
	if err != nil {
		return true
	}
	modified := uint64(info.ModTime().Unix())
	return modified > savedAt
}

// EncodeToBytes is a test/debugging helper exposing the raw
// uncompressed wire bytes without going through a file.
func EncodeToBytes(s Storage) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFromBytes is the inverse of EncodeToBytes.
func DecodeFromBytes(b []byte) (Storage, error) {
	return decode(bytes.NewReader(b))
}
