// Package indexactor implements the per-root single-owner actor: one
// goroutine owns exactly one *indextree.Tree and serializes every
// search, rescan, watcher event and flush tick against it through a
// select loop. Because there is only one owner, the tree itself needs
// no lock.
package indexactor

import "sync/atomic"

// BuildState is the build-phase state machine, readable lock-free by
// any caller via Actor.Status.
type BuildState int32

const (
	StateIdle BuildState = iota
	StateBuilding
	StateReady
	StateError
)

func (s BuildState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// progress holds the build-progress atomics: start, last-update and
// finish timestamps (unix seconds, 0 = unknown) plus scanned-file and
// scanned-directory counters. Written by the actor goroutine and by
// the build goroutine it spawns (scan counters and last-update time);
// read by anyone without taking a lock.
type progress struct {
	startedAt    atomic.Int64
	lastUpdateAt atomic.Int64
	finishedAt   atomic.Int64
	scannedFiles atomic.Int64
	scannedDirs  atomic.Int64
}

func (p *progress) resetForBuild(startedAt int64) {
	p.startedAt.Store(startedAt)
	p.lastUpdateAt.Store(startedAt)
	p.finishedAt.Store(0)
	p.scannedFiles.Store(0)
	p.scannedDirs.Store(0)
}

// readyAt seeds progress for an actor that started from a loaded
// snapshot rather than a fresh walk: started/updated/finished all
// equal the snapshot's saved_at.
func (p *progress) readyAt(savedAt int64) {
	p.startedAt.Store(savedAt)
	p.lastUpdateAt.Store(savedAt)
	p.finishedAt.Store(savedAt)
}

// ptrOrNil converts a possibly-zero unix-seconds value to a
// *uint64-or-absent: 0 means "unknown".
func ptrOrNil(v int64) *uint64 {
	if v <= 0 {
		return nil
	}
	u := uint64(v)
	return &u
}

type progressSnapshot struct {
	StartedAt    *uint64
	LastUpdateAt *uint64
	FinishedAt   *uint64
	ScannedFiles int
	ScannedDirs  int
}

func (p *progress) snapshot() progressSnapshot {
	return progressSnapshot{
		StartedAt:    ptrOrNil(p.startedAt.Load()),
		LastUpdateAt: ptrOrNil(p.lastUpdateAt.Load()),
		FinishedAt:   ptrOrNil(p.finishedAt.Load()),
		ScannedFiles: int(p.scannedFiles.Load()),
		ScannedDirs:  int(p.scannedDirs.Load()),
	}
}

// IndexStatus is the full status payload one root reports.
type IndexStatus struct {
	State          string
	Root           string
	IgnorePaths    []string
	IndexedEntries int
	ScannedFiles   int
	ScannedDirs    int
	StartedAt      *uint64
	LastUpdateAt   *uint64
	FinishedAt     *uint64
	Errors         int
	WatcherEnabled bool
	CachePath      string
	RescanCount    uint64
	LastError      string
}

// FinishedAtOrZero returns the build-finish timestamp, or 0 if the
// build has not finished (or never ran) yet. Sidecar records have no
// "unknown" representation of their own.
func (s IndexStatus) FinishedAtOrZero() uint64 {
	if s.FinishedAt == nil {
		return 0
	}
	return *s.FinishedAt
}
