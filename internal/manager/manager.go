// Package manager routes external calls to per-root index actors: a
// root-index-key to actor map, creation collapsing so only one caller
// pays the cache-load cost per key, and the two independent
// search-version trackers (versioned and unversioned) that back every
// cancellation decision.
package manager

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/ferrors"
	"github.com/fsindex/fsindex/internal/indexactor"
	"github.com/fsindex/fsindex/internal/metrics"
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/search"
	"github.com/fsindex/fsindex/internal/snapshot"
)

// Manager creates and looks up one Actor per (root, ignore set) and
// owns the two global search-version trackers.
type Manager struct {
	cacheDir string
	pool     *namepool.Pool
	metrics  *metrics.Recorder
	sidecar  *sidecar

	mu     sync.Mutex
	actors map[string]*indexactor.Actor
	keys   map[string]snapshot.Key
	group  singleflight.Group

	versioned   *cancel.Tracker
	unversioned *cancel.Tracker
}

// New creates a Manager whose caches and sidecar database live under
// cacheDir.
func New(cacheDir string) (*Manager, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, ferrors.Internal(err, "create cache dir %s", cacheDir)
	}
	sc, err := openSidecar(filepath.Join(cacheDir, "fsindex-sidecar.bolt"))
	if err != nil {
		return nil, ferrors.Internal(err, "open sidecar store")
	}
	return &Manager{
		cacheDir:    cacheDir,
		pool:        namepool.New(),
		metrics:     metrics.NewRecorder(),
		sidecar:     sc,
		actors:      make(map[string]*indexactor.Actor),
		keys:        make(map[string]snapshot.Key),
		versioned:   cancel.NewTracker(),
		unversioned: cancel.NewTracker(),
	}, nil
}

// NextSearchVersion advances and returns the versioned tracker's
// active version, immediately cancelling any search still in flight
// under an older one.
func (m *Manager) NextSearchVersion() uint64 {
	return m.versioned.NextVersion()
}

// Close stops every actor's run loop and closes the sidecar database.
func (m *Manager) Close() error {
	m.mu.Lock()
	actors := make([]*indexactor.Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.mu.Unlock()

	for _, a := range actors {
		_ = a.Close()
	}
	return m.sidecar.Close()
}

// canonicalizeExistingPath resolves symlinks and relative components
// so two callers naming the same directory differently
// (relative vs absolute, through vs around a symlink) resolve to the
// same root-index key.
func canonicalizeExistingPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return resolved, nil
}

func (m *Manager) buildKey(root string, ignorePaths []string) (snapshot.Key, error) {
	if _, err := os.Lstat(root); err != nil {
		return snapshot.Key{}, ferrors.InvalidInput("root path does not exist: %s", root)
	}
	canonicalRoot, err := canonicalizeExistingPath(root)
	if err != nil {
		return snapshot.Key{}, ferrors.InvalidInput("unable to resolve root path %s: %v", root, err)
	}
	canonicalIgnored := make([]string, 0, len(ignorePaths))
	for _, p := range ignorePaths {
		if resolved, err := canonicalizeExistingPath(p); err == nil {
			canonicalIgnored = append(canonicalIgnored, resolved)
		}
	}
	sort.Strings(canonicalIgnored)
	return snapshot.NewKey(canonicalRoot, canonicalIgnored), nil
}

// getOrCreate returns the actor for key, creating it if necessary.
// singleflight.Group collapses concurrent creation requests for the
// same key into a single construction, so no two callers race to
// load the same cache or spawn duplicate watchers.
func (m *Manager) getOrCreate(key snapshot.Key) (*indexactor.Actor, error) {
	fp := key.Fingerprint()

	m.mu.Lock()
	if a, ok := m.actors[fp]; ok {
		m.mu.Unlock()
		return a, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(fp, func() (any, error) {
		m.mu.Lock()
		if a, ok := m.actors[fp]; ok {
			m.mu.Unlock()
			return a, nil
		}
		m.mu.Unlock()

		info, err := os.Lstat(key.Root)
		if err != nil {
			return nil, ferrors.InvalidInput("unable to access root path %s: %v", key.Root, err)
		}
		cfg := indexactor.Config{
			Root:        key.Root,
			RootIsDir:   info.IsDir(),
			IgnorePaths: key.IgnoredRoots,
			CachePath:   key.CachePath(m.cacheDir),
		}
		a, err := indexactor.New(cfg, m.pool, m.metrics)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.actors[fp] = a
		m.keys[fp] = key
		m.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*indexactor.Actor), nil
}

// Search resolves (root, ignorePaths) to an actor, mints or activates a
// cancellation token, and blocks for the actor's reply. version, when
// non-nil, ties this search to the Manager-wide versioned tracker
// (advancing its watermark to at least *version if the caller raced
// ahead of a NextSearchVersion call); nil falls back to an independent
// unversioned tracker, so unversioned searches never cancel, or get
// cancelled by, versioned ones.
func (m *Manager) Search(root, query string, kind search.KindFilter, includeHidden, caseSensitive bool, maxResults, maxDepth int, ignorePaths []string, version *uint64) (*search.Result, error) {
	if maxResults < 1 || maxResults > 500 {
		return nil, ferrors.InvalidInput("max_results must be between 1 and 500, got %d", maxResults)
	}

	key, err := m.buildKey(root, ignorePaths)
	if err != nil {
		return nil, err
	}
	actor, err := m.getOrCreate(key)
	if err != nil {
		return nil, err
	}

	var token cancel.Token
	if version != nil {
		m.versioned.ActivateVersion(*version)
		token = m.versioned.TokenForVersion(*version)
	} else {
		v := m.unversioned.NextVersion()
		token = m.unversioned.TokenForVersion(v)
	}

	return actor.Search(indexactor.SearchParams{
		Query:         query,
		Kind:          kind,
		IncludeHidden: includeHidden,
		CaseSensitive: caseSensitive,
		MaxResults:    maxResults,
		MaxDepth:      maxDepth,
		Token:         token,
	})
}

// IndexStatus is the core API's index_status operation: a lock-free
// read of the actor's atomics, triggering actor creation (and
// therefore a background build) if this root has never been seen.
func (m *Manager) IndexStatus(root string, ignorePaths []string) (indexactor.IndexStatus, error) {
	key, err := m.buildKey(root, ignorePaths)
	if err != nil {
		return indexactor.IndexStatus{}, err
	}
	actor, err := m.getOrCreate(key)
	if err != nil {
		return indexactor.IndexStatus{}, err
	}
	return actor.Status(), nil
}

// Rescan is the core API's rescan operation: it blocks until the
// triggered (or already in-flight) build completes, then records the
// outcome into the sidecar store before returning.
func (m *Manager) Rescan(root string, ignorePaths []string) (indexactor.IndexStatus, error) {
	key, err := m.buildKey(root, ignorePaths)
	if err != nil {
		return indexactor.IndexStatus{}, err
	}
	actor, err := m.getOrCreate(key)
	if err != nil {
		return indexactor.IndexStatus{}, err
	}

	status, err := actor.Rescan()
	if err != nil {
		return indexactor.IndexStatus{}, err
	}

	rec := sidecarRecord{
		LastRescanAt: status.FinishedAtOrZero(),
		RescanCount:  status.RescanCount,
		LastError:    status.LastError,
	}
	_ = m.sidecar.record(key.Fingerprint(), rec)

	return status, nil
}

// Tree returns a deep-copied snapshot of the indexed tree rooted at
// root, for the tree CLI subcommand.
func (m *Manager) Tree(root string, ignorePaths []string, maxDepth int) (indexactor.TreeNode, error) {
	key, err := m.buildKey(root, ignorePaths)
	if err != nil {
		return indexactor.TreeNode{}, err
	}
	actor, err := m.getOrCreate(key)
	if err != nil {
		return indexactor.TreeNode{}, err
	}
	return actor.Snapshot(maxDepth)
}

// SidecarLookup returns whatever the sidecar remembers about
// (root, ignorePaths) from a prior process's rescans, if anything.
func (m *Manager) SidecarLookup(root string, ignorePaths []string) (lastRescanAt uint64, rescanCount uint64, lastError string, ok bool) {
	key, err := m.buildKey(root, ignorePaths)
	if err != nil {
		return 0, 0, "", false
	}
	rec, found := m.sidecar.lookup(key.Fingerprint())
	if !found {
		return 0, 0, "", false
	}
	return rec.LastRescanAt, rec.RescanCount, rec.LastError, true
}
