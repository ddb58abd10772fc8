package indexactor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsindex/fsindex/internal/cancel"
	"github.com/fsindex/fsindex/internal/ferrors"
	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/logx"
	"github.com/fsindex/fsindex/internal/metrics"
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/search"
	"github.com/fsindex/fsindex/internal/snapshot"
	"github.com/fsindex/fsindex/internal/walker"
	"github.com/fsindex/fsindex/internal/watcher"
)

// SearchParams bundles one search request's knobs as they cross the
// channel boundary into the actor.
type SearchParams struct {
	Query         string
	Kind          search.KindFilter
	IncludeHidden bool
	CaseSensitive bool
	MaxResults    int
	MaxDepth      int
	Token         cancel.Token
}

type searchJob struct {
	params SearchParams
	reply  chan searchReply
}

type searchReply struct {
	result *search.Result
	err    error
}

type rescanJob struct {
	reply chan rescanReply
}

type rescanReply struct {
	status IndexStatus
	err    error
}

type buildResult struct {
	tree *indextree.Tree
}

// Actor owns exactly one *indextree.Tree for one indexed root and
// serializes every mutation and search against it through run's
// select loop. External callers never touch the tree directly; they
// send jobs on searchCh/rescanCh and read the lock-free atomics via
// Status.
type Actor struct {
	pool    *namepool.Pool
	config  Config
	metrics *metrics.Recorder

	tree *indextree.Tree // owned exclusively by the run goroutine

	searchCh   chan searchJob
	rescanCh   chan rescanJob
	snapshotCh chan snapshotJob
	stopCh     chan struct{}
	doneCh     chan struct{}

	wh *watcher.Watcher // nil if the watcher failed to start

	buildState     atomic.Int32
	indexedEntries atomic.Int64
	errorsCount    atomic.Int64
	rescanCount    atomic.Uint64
	lastEventID    atomic.Uint64
	watcherEnabled atomic.Bool

	progress progress

	lastErrMu sync.Mutex
	lastErr   string
}

// New constructs an Actor for root: it attempts to load a cached
// snapshot from config.CachePath, starts a watcher, and spawns the
// run loop, triggering a background build only if no snapshot was
// loaded.
func New(config Config, pool *namepool.Pool, rec *metrics.Recorder) (*Actor, error) {
	a := &Actor{
		pool:       pool,
		config:     config,
		metrics:    rec,
		searchCh:   make(chan searchJob),
		rescanCh:   make(chan rescanJob),
		snapshotCh: make(chan snapshotJob),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	loaded, ok := snapshot.Load(config.CachePath, config.Root, config.RootIsDir, config.IgnorePaths, pool, false)
	if ok {
		a.tree = loaded.Tree
		a.buildState.Store(int32(StateReady))
		a.indexedEntries.Store(int64(loaded.Tree.Len()))
		a.errorsCount.Store(int64(loaded.Tree.Errors()))
		a.lastEventID.Store(loaded.LastEventID)
		a.rescanCount.Store(loaded.RescanCount)
		a.progress.readyAt(int64(loaded.SavedAt))
	} else {
		a.tree = indextree.New(pool)
		a.buildState.Store(int32(StateIdle))
	}

	if w, err := watcher.New(config.Root, config.IgnorePaths); err != nil {
		logx.Debugf(nil, "indexactor: watcher disabled for %s: %v", config.Root, err)
		a.setLastError(err.Error())
	} else {
		a.wh = w
		a.watcherEnabled.Store(true)
	}

	go a.run()
	return a, nil
}

// Search submits params to the actor and blocks for its reply. It
// returns a KindCancelled error (never a partial result) if params.Token
// is already dead by the time the actor services the job.
func (a *Actor) Search(params SearchParams) (*search.Result, error) {
	reply := make(chan searchReply, 1)
	select {
	case a.searchCh <- searchJob{params: params, reply: reply}:
	case <-a.doneCh:
		return nil, ferrors.Internal(nil, "index actor for %s has shut down", a.config.Root)
	}
	r := <-reply
	return r.result, r.err
}

// Rescan triggers a rebuild (or joins one already in flight) and
// blocks until it completes, returning the resulting status.
func (a *Actor) Rescan() (IndexStatus, error) {
	reply := make(chan rescanReply, 1)
	select {
	case a.rescanCh <- rescanJob{reply: reply}:
	case <-a.doneCh:
		return IndexStatus{}, ferrors.Internal(nil, "index actor for %s has shut down", a.config.Root)
	}
	r := <-reply
	return r.status, r.err
}

// Status reads every field lock-free: no message crosses the channel
// boundary, so a status poll never queues behind a running search.
func (a *Actor) Status() IndexStatus {
	p := a.progress.snapshot()
	return IndexStatus{
		State:          BuildState(a.buildState.Load()).String(),
		Root:           a.config.Root,
		IgnorePaths:    a.config.IgnorePaths,
		IndexedEntries: int(a.indexedEntries.Load()),
		ScannedFiles:   p.ScannedFiles,
		ScannedDirs:    p.ScannedDirs,
		StartedAt:      p.StartedAt,
		LastUpdateAt:   p.LastUpdateAt,
		FinishedAt:     p.FinishedAt,
		Errors:         int(a.errorsCount.Load()),
		WatcherEnabled: a.watcherEnabled.Load(),
		CachePath:      a.config.CachePath,
		RescanCount:    a.rescanCount.Load(),
		LastError:      a.lastError(),
	}
}

// Close stops the run loop and releases the watcher's OS resources.
func (a *Actor) Close() error {
	close(a.stopCh)
	<-a.doneCh
	if a.wh != nil {
		return a.wh.Close()
	}
	return nil
}

func (a *Actor) setLastError(msg string) {
	a.lastErrMu.Lock()
	a.lastErr = msg
	a.lastErrMu.Unlock()
}

func (a *Actor) clearLastError() {
	a.lastErrMu.Lock()
	a.lastErr = ""
	a.lastErrMu.Unlock()
}

func (a *Actor) lastError() string {
	a.lastErrMu.Lock()
	defer a.lastErrMu.Unlock()
	return a.lastErr
}

func nowUnix() int64 { return time.Now().Unix() }

// run is the actor's sole goroutine: the single owner of a.tree. It
// multiplexes search/rescan jobs, build completions, watcher events
// and the flush ticker in one select loop.
func (a *Actor) run() {
	defer close(a.doneCh)

	buildDone := make(chan buildResult, 1)
	if BuildState(a.buildState.Load()) == StateIdle {
		a.startBuild(buildDone)
	}

	var watchEvents <-chan watcher.Event
	if a.wh != nil {
		watchEvents = a.wh.Events()
	}

	flushTicker := time.NewTicker(flushPollInterval)
	defer flushTicker.Stop()

	var dirty bool
	var firstDirtyAt time.Time
	var lastSearchAt time.Time
	var pendingDuringBuild []string
	var pendingRescanReplies []chan rescanReply

	markDirty := func() {
		if !dirty {
			firstDirtyAt = time.Now()
		}
		dirty = true
	}

	for {
		select {
		case <-a.stopCh:
			// Last chance to persist: a short-lived process (the CLI)
			// is usually gone before the ticker's idle window elapses.
			if dirty {
				a.flush()
			}
			return

		case job := <-a.searchCh:
			lastSearchAt = time.Now()
			started := time.Now()
			result, err := a.executeSearch(job.params)
			if a.metrics != nil {
				a.metrics.ObserveSearch(a.config.Root, time.Since(started))
			}
			job.reply <- searchReply{result: result, err: err}

		case job := <-a.snapshotCh:
			job.reply <- a.executeSnapshot(job)

		case job := <-a.rescanCh:
			if BuildState(a.buildState.Load()) == StateBuilding {
				pendingRescanReplies = append(pendingRescanReplies, job.reply)
			} else {
				a.startBuild(buildDone)
				pendingRescanReplies = append(pendingRescanReplies, job.reply)
			}

		case res := <-buildDone:
			if res.tree != nil {
				a.tree = res.tree
				a.indexedEntries.Store(int64(a.tree.Len()))
				a.errorsCount.Store(int64(a.tree.Errors()))
				finishedAt := nowUnix()
				a.progress.finishedAt.Store(finishedAt)
				a.progress.lastUpdateAt.Store(finishedAt)
				a.buildState.Store(int32(StateReady))
				// A fresh tree is unflushed state like any other
				// mutation; without this a quiet root would never get
				// its snapshot written.
				markDirty()
				if a.metrics != nil {
					started := a.progress.startedAt.Load()
					a.metrics.ObserveBuild(a.config.Root, time.Duration(finishedAt-started)*time.Second, a.tree.Len())
				}
				logx.Infof(nil, "indexactor: build complete root=%s entries=%d", a.config.Root, a.tree.Len())
			} else {
				a.buildState.Store(int32(StateError))
				a.setLastError("index build was unexpectedly cancelled")
			}

			drainPendingPaths(watchEvents, &pendingDuringBuild)
			if len(pendingDuringBuild) > 0 {
				for _, p := range watcher.CoalesceEventPaths(pendingDuringBuild) {
					watcher.ApplyPathChange(a.tree, a.config.Root, a.config.IgnorePaths, p)
				}
				pendingDuringBuild = nil
				a.indexedEntries.Store(int64(a.tree.Len()))
				markDirty()
			}

			for _, reply := range pendingRescanReplies {
				reply <- rescanReply{status: a.Status()}
			}
			pendingRescanReplies = nil

		case ev, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			switch ev.Kind {
			case watcher.EventPathsChanged:
				if BuildState(a.buildState.Load()) == StateBuilding {
					pendingDuringBuild = append(pendingDuringBuild, ev.Paths...)
				} else {
					for _, p := range watcher.CoalesceEventPaths(ev.Paths) {
						watcher.ApplyPathChange(a.tree, a.config.Root, a.config.IgnorePaths, p)
					}
					a.indexedEntries.Store(int64(a.tree.Len()))
					markDirty()
				}
			case watcher.EventRescanRequired:
				a.rescanCount.Add(1)
				if BuildState(a.buildState.Load()) != StateBuilding {
					a.startBuild(buildDone)
				}
			case watcher.EventHistoryDone:
				logx.Infof(nil, "indexactor: watcher history replay complete root=%s", a.config.Root)
			case watcher.EventError:
				a.errorsCount.Add(1)
				if a.metrics != nil {
					a.metrics.IncError(a.config.Root, ferrors.KindFilesystemIO.String())
				}
				if ev.Err != nil {
					a.setLastError(ferrors.FilesystemIO(ev.Err, "watcher").Error())
				}
			}

		case <-flushTicker.C:
			if !dirty {
				continue
			}
			now := time.Now()
			searchIdle := lastSearchAt.IsZero() || now.Sub(lastSearchAt) >= flushIdleWindow
			maxDelayOk := !firstDirtyAt.IsZero() && now.Sub(firstDirtyAt) >= flushMaxDelay
			if searchIdle || maxDelayOk {
				a.flush()
				dirty = false
				firstDirtyAt = time.Time{}
			}
		}
	}
}

// drainPendingPaths empties any PathsChanged batches already queued on
// events without blocking, appending their paths to pending: it
// catches up on anything the watcher delivered while the build was
// still running.
func drainPendingPaths(events <-chan watcher.Event, pending *[]string) {
	if events == nil {
		return
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == watcher.EventPathsChanged {
				*pending = append(*pending, ev.Paths...)
			}
		default:
			return
		}
	}
}

func (a *Actor) startBuild(done chan buildResult) {
	a.buildState.Store(int32(StateBuilding))
	a.progress.resetForBuild(nowUnix())
	a.clearLastError()

	root := a.config.Root
	ignore := a.config.IgnorePaths
	pool := a.pool
	prog := &a.progress

	go func() {
		result := walker.Walk(context.Background(), walker.Options{
			RootPath:          root,
			IgnoreDirectories: ignore,
			Progress: func(numFiles, numDirs int64) {
				prog.scannedFiles.Store(numFiles)
				prog.scannedDirs.Store(numDirs)
				prog.lastUpdateAt.Store(nowUnix())
			},
		})
		tree := indextree.FromWalk(result.Root, pool, result.Errors)
		done <- buildResult{tree: tree}
	}()
}

func (a *Actor) flush() {
	storage := snapshot.FromTree(a.tree, a.lastEventID.Load(), a.config.Root, a.config.RootIsDir, a.config.IgnorePaths, a.rescanCount.Load(), uint64(nowUnix()))
	if err := snapshot.Save(a.config.CachePath, storage); err != nil {
		logx.Errorf(nil, "indexactor: snapshot flush failed for %s: %v", a.config.Root, err)
	}
}

// executeSearch runs one search inside the actor. A search over a
// not-yet-ready index with no data at all returns an empty,
// state-annotated result rather than an error, so a UI can show
// build progress.
func (a *Actor) executeSearch(params SearchParams) (*search.Result, error) {
	if !params.Token.Alive() {
		return nil, ferrors.Cancelled("search cancelled before dispatch")
	}

	state := BuildState(a.buildState.Load())
	p := a.progress.snapshot()

	req := search.Request{
		Root:              a.config.Root,
		Query:             params.Query,
		Kind:              params.Kind,
		IncludeHidden:     params.IncludeHidden,
		CaseSensitive:     params.CaseSensitive,
		MaxResults:        params.MaxResults,
		MaxDepth:          params.MaxDepth,
		IndexState:        state.String(),
		IndexScannedFiles: p.ScannedFiles,
		IndexScannedDirs:  p.ScannedDirs,
		IndexStartedAt:    p.StartedAt,
		IndexLastUpdateAt: p.LastUpdateAt,
		IndexFinishedAt:   p.FinishedAt,
	}

	if state != StateReady && a.tree.IsEmpty() {
		return &search.Result{
			Query:             req.Query,
			Root:              req.Root,
			IndexState:        req.IndexState,
			IndexScannedFiles: req.IndexScannedFiles,
			IndexScannedDirs:  req.IndexScannedDirs,
			IndexStartedAt:    req.IndexStartedAt,
			IndexLastUpdateAt: req.IndexLastUpdateAt,
			IndexFinishedAt:   req.IndexFinishedAt,
		}, nil
	}

	return search.Search(a.tree, req, params.Token)
}
