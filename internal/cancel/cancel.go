// Package cancel implements versioned cancellation: a search holds a
// token bound to the version that was active when it started; the
// token reads as cancelled once a newer version is activated. This
// replaces a shared cancellation flag
// (which can only ever represent one in-flight cancellation) with a
// monotonically increasing counter any number of stale tokens can
// compare themselves against.
package cancel

import "sync/atomic"

// sparseCheckStride bounds how often hot inner loops pay the cost of
// an atomic load when checking for cancellation.
const sparseCheckStride = 256

// Token observes whether the version it was issued for has since been
// superseded. The zero value has a nil tracker and never cancels: Alive
// always reports true for it. Tracker never hands out the zero value;
// tokens bound to a tracker come only from Tracker methods.
type Token struct {
	tracker *Tracker
	version uint64
}

// Alive reports whether this token's version is still the active one.
// It reads false once a newer version has been activated, at which
// point the holder should abandon its work.
func (t Token) Alive() bool {
	if t.tracker == nil {
		return true
	}
	return t.tracker.active.Load() <= t.version
}

// AliveSparse is Alive but only actually loads the atomic every
// sparseCheckStride calls, identified by counter. Hot loops call this
// with their own loop index instead of the unconditional check.
func (t Token) AliveSparse(counter int) bool {
	if counter%sparseCheckStride != 0 {
		return true
	}
	return t.Alive()
}

// Tracker hands out monotonically increasing search versions and the
// tokens bound to them. One Tracker backs versioned searches (the
// caller supplies an explicit version it got handed out earlier); a
// second, independent Tracker backs unversioned searches, since an
// unversioned search must not be cancellable by, or cancel, a
// versioned one.
type Tracker struct {
	active atomic.Uint64
}

// NewTracker creates a tracker whose first issued version is 1; version
// 0 is reserved so the zero Token (no tracker) never claims to be the
// active version of a real tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// NextVersion advances the active version and returns it, immediately
// cancelling any token issued for a lower version. This is what lets a
// UI replace an in-flight search by issuing a new one, with no
// explicit abort RPC.
func (tr *Tracker) NextVersion() uint64 {
	return tr.active.Add(1)
}

// CurrentVersion returns the active version without advancing it.
func (tr *Tracker) CurrentVersion() uint64 {
	return tr.active.Load()
}

// ActivateVersion advances the tracker's active version to at least
// version, used when a caller supplies an explicit version number
// (rather than asking the tracker to mint one) so that a late-arriving
// lower version from a different racing caller still cancels.
func (tr *Tracker) ActivateVersion(version uint64) {
	for {
		cur := tr.active.Load()
		if version <= cur {
			return
		}
		if tr.active.CompareAndSwap(cur, version) {
			return
		}
	}
}

// TokenForVersion returns a token bound to version under this tracker.
func (tr *Tracker) TokenForVersion(version uint64) Token {
	return Token{tracker: tr, version: version}
}
