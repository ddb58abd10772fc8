package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fsindex/fsindex/internal/logx"
)

// tickInterval is how often accumulated paths are coalesced and
// delivered as a single PathsChanged batch; accumulating between
// ticks keeps a burst of related events (rename, write, chmod on the
// same file) down to one batch.
const tickInterval = 200 * time.Millisecond

// maxPendingPaths bounds how many distinct paths accumulate between
// ticks before the batch is abandoned in favor of RescanRequired: past
// this point a coalesced diff is no cheaper than a fresh walk, and an
// adapter under this much event pressure is at real risk of silently
// missing some of it.
const maxPendingPaths = 20000

// Watcher recursively watches a root directory and emits the
// PathsChanged / RescanRequired / HistoryDone / Error stream.
// fsnotify (inotify/kqueue/ReadDirectoryChangesW under
// the hood) has no event cursor on any of those backends, so
// LastEventID is always 0 here: staleness after a restart is always
// judged by the snapshot's TTL/mtime check, never replayed.
type Watcher struct {
	root        string
	ignorePaths []string

	fsw    *fsnotify.Watcher
	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	watched map[string]bool
}

// New starts watching root (and, recursively, every subdirectory not
// covered by ignorePaths). The returned Watcher's Events channel is
// closed by Close, never before.
func New(root string, ignorePaths []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}

	w := &Watcher{
		root:        filepath.Clean(root),
		ignorePaths: ignorePaths,
		fsw:         fsw,
		events:      make(chan Event, 64),
		stop:        make(chan struct{}),
		watched:     make(map[string]bool),
	}

	if err := w.addRecursive(w.root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watcher: initial watch of %s: %w", w.root, err)
	}

	w.wg.Add(1)
	go w.loop()

	w.events <- Event{Kind: EventHistoryDone}

	return w, nil
}

// Events returns the stream of events. The channel is never closed
// while the Watcher is open; Close must be called to release it and
// stop delivery.
func (w *Watcher) Events() <-chan Event { return w.events }

// Close stops watching and releases the underlying OS resources.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.fsw.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

func (w *Watcher) addRecursive(path string) error {
	if isIgnored(path, w.ignorePaths) {
		return nil
	}
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return err
	}
	w.mu.Lock()
	w.watched[path] = true
	w.mu.Unlock()

	entries, err := os.ReadDir(path)
	if err != nil {
		logx.Debugf(nil, "watcher: readdir %s: %v", path, err)
		return nil
	}
	for _, e := range entries {
		childPath := filepath.Join(path, e.Name())
		if isIgnored(childPath, w.ignorePaths) {
			continue
		}
		if e.IsDir() {
			if err := w.addRecursive(childPath); err != nil {
				logx.Debugf(nil, "watcher: failed to watch %s: %v", childPath, err)
			}
		}
	}
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	overflowed := false
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	flush := func() {
		if overflowed {
			overflowed = false
			pending = make(map[string]struct{})
			w.send(Event{Kind: EventRescanRequired})
			return
		}
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]struct{})
		w.send(Event{Kind: EventPathsChanged, Paths: CoalesceEventPaths(paths)})
	}

	for {
		select {
		case <-w.stop:
			return

		case <-ticker.C:
			flush()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			logx.Debugf(nil, "watcher: %s: %s", ev.Op, ev.Name)

			if ev.Has(fsnotify.Create) {
				if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						logx.Debugf(nil, "watcher: failed to watch %s: %v", ev.Name, err)
					}
				}
			}

			if !overflowed {
				pending[filepath.ToSlash(ev.Name)] = struct{}{}
				if len(pending) > maxPendingPaths {
					overflowed = true
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.send(Event{Kind: EventError, Err: err})
		}
	}
}

func (w *Watcher) send(ev Event) {
	select {
	case w.events <- ev:
	case <-w.stop:
	}
}
