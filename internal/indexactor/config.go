package indexactor

import "time"

// Config is the static, per-root configuration an Actor is built
// from: the root's identity fields plus the cache path the snapshot
// codec reads and writes.
type Config struct {
	Root        string
	RootIsDir   bool
	IgnorePaths []string
	CachePath   string
}

// Flush scheduler timings: a dirty index is flushed once a search has
// been idle for flushIdleWindow, or once
// flushMaxDelay has elapsed since the first unflushed mutation,
// whichever comes first. flushPollInterval is how often the ticker
// checks those two conditions.
const (
	flushPollInterval = 2 * time.Second
	flushIdleWindow   = 5 * time.Second
	flushMaxDelay     = 30 * time.Second
)
