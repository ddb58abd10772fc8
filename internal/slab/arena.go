package slab

import (
	"encoding/binary"
	"sync"
)

// initialSlots is the arena's starting capacity.
const initialSlots = 1024

// recordSize is the fixed width of one slot's hot fields in the
// mmap-backed byte arena: occupied(1, padded to 8) + union-of(nextFree
// uint64 | parent uint64)(8) + stateTypeSize(8) + ctime(4) + mtime(4).
const recordSize = 32

const (
	offOccupied = 0
	offUnion    = 8 // holds nextFree when vacant, parent index when occupied
	offSTS      = 16
	offCTime    = 24
	offMTime    = 28
)

// payload holds the fields that are not safe to store in raw,
// GC-invisible memory: the interned name (a Go string header pointing
// at namepool-owned bytes) and the children list (a Go slice header).
// Splitting the record this way keeps the bulk, fixed-layout metadata
// in anonymous-mmap'd memory, where millions of entries would
// otherwise pressure the GC, while keeping the handful of pointer-
// bearing fields on the ordinary Go heap where the garbage collector
// can see and scan them. Storing Go pointers directly inside mmap'd
// memory would be unsound: the GC does not scan non-heap memory, so a
// child slice's backing array could be collected out from under a
// live reference.
type payload struct {
	name     string
	children []Index
}

// Arena is an anonymous-mmap-backed, stably indexed node store. The
// zero value is not usable;
// use NewArena.
type Arena struct {
	mu         sync.RWMutex
	buf        []byte
	payloads   []payload
	capacity   uint64
	entriesLen uint64 // high-water mark of slots ever allocated
	len        uint64 // occupied count
	freeHead   Index
}

// NewArena creates an empty arena with initialSlots capacity.
func NewArena() *Arena {
	a := &Arena{freeHead: NoIndex}
	a.growTo(initialSlots)
	return a
}

func (a *Arena) growTo(newCap uint64) {
	buf, err := allocRaw(int(newCap * recordSize))
	if err != nil {
		// Anonymous mmap failure on a live system is unrecoverable for
		// this arena; the caller has no sensible fallback.
		panic("slab: allocRaw failed: " + err.Error())
	}
	copy(buf, a.buf)
	if a.buf != nil {
		_ = freeRaw(a.buf)
	}
	a.buf = buf

	payloads := make([]payload, newCap)
	copy(payloads, a.payloads)
	a.payloads = payloads

	a.capacity = newCap
}

func (a *Arena) ensureCapacity(need uint64) {
	if need <= a.capacity {
		return
	}
	newCap := a.capacity
	if newCap == 0 {
		newCap = initialSlots
	}
	for newCap < need {
		newCap *= 2
	}
	a.growTo(newCap)
}

func (a *Arena) recordOccupied(i uint64) bool {
	return a.buf[i*recordSize+offOccupied] != 0
}

func (a *Arena) setRecordOccupied(i uint64, occ bool) {
	if occ {
		a.buf[i*recordSize+offOccupied] = 1
	} else {
		a.buf[i*recordSize+offOccupied] = 0
	}
}

func (a *Arena) recordUnion(i uint64) uint64 {
	return binary.LittleEndian.Uint64(a.buf[i*recordSize+offUnion:])
}

func (a *Arena) setRecordUnion(i uint64, v uint64) {
	binary.LittleEndian.PutUint64(a.buf[i*recordSize+offUnion:], v)
}

func (a *Arena) recordMeta(i uint64) Metadata {
	sts := binary.LittleEndian.Uint64(a.buf[i*recordSize+offSTS:])
	ctime := binary.LittleEndian.Uint32(a.buf[i*recordSize+offCTime:])
	mtime := binary.LittleEndian.Uint32(a.buf[i*recordSize+offMTime:])
	return Metadata{stateTypeSize: sts, CTime: ctime, MTime: mtime}
}

func (a *Arena) setRecordMeta(i uint64, m Metadata) {
	binary.LittleEndian.PutUint64(a.buf[i*recordSize+offSTS:], m.stateTypeSize)
	binary.LittleEndian.PutUint32(a.buf[i*recordSize+offCTime:], m.CTime)
	binary.LittleEndian.PutUint32(a.buf[i*recordSize+offMTime:], m.MTime)
}

// Insert places node at the freelist head if one exists, else appends,
// growing the arena if at capacity. Returns the assigned index.
func (a *Arena) Insert(n Node) Index {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint64
	if a.freeHead != NoIndex {
		idx = uint64(a.freeHead)
		a.freeHead = Index(a.recordUnion(idx))
	} else {
		a.ensureCapacity(a.entriesLen + 1)
		idx = a.entriesLen
		a.entriesLen++
	}

	a.setRecordOccupied(idx, true)
	parent := n.parent
	a.setRecordUnion(idx, uint64(parent))
	a.setRecordMeta(idx, n.Metadata)
	a.payloads[idx] = payload{name: n.name, children: n.Children}
	a.len++
	return Index(idx)
}

// Get returns a copy of the node at idx if occupied.
func (a *Arena) Get(idx Index) (Node, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.getLocked(idx)
}

func (a *Arena) getLocked(idx Index) (Node, bool) {
	i := uint64(idx)
	if i >= a.entriesLen || !a.recordOccupied(i) {
		return Node{}, false
	}
	p := a.payloads[i]
	return Node{
		name:     p.name,
		parent:   Index(a.recordUnion(i)),
		Children: p.children,
		Metadata: a.recordMeta(i),
	}, true
}

// SetMetadata replaces the metadata for an occupied slot.
func (a *Arena) SetMetadata(idx Index, m Metadata) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := uint64(idx)
	if i >= a.entriesLen || !a.recordOccupied(i) {
		return false
	}
	a.setRecordMeta(i, m)
	return true
}

// AddChild appends child to idx's child list if not already present.
func (a *Arena) AddChild(idx Index, child Index) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := uint64(idx)
	if i >= a.entriesLen || !a.recordOccupied(i) {
		return false
	}
	for _, c := range a.payloads[i].children {
		if c == child {
			return true
		}
	}
	a.payloads[i].children = append(a.payloads[i].children, child)
	return true
}

// RemoveChild removes child from idx's child list, reporting presence.
func (a *Arena) RemoveChild(idx Index, child Index) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := uint64(idx)
	if i >= a.entriesLen || !a.recordOccupied(i) {
		return false
	}
	children := a.payloads[i].children
	for j, c := range children {
		if c == child {
			a.payloads[i].children = append(children[:j], children[j+1:]...)
			return true
		}
	}
	return false
}

// TryRemove frees idx's slot, returning the removed node if it was
// occupied. The slot becomes the new freelist head.
func (a *Arena) TryRemove(idx Index) (Node, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := uint64(idx)
	if i >= a.entriesLen || !a.recordOccupied(i) {
		return Node{}, false
	}
	n, _ := a.getLocked(idx)
	a.setRecordOccupied(i, false)
	a.setRecordUnion(i, uint64(a.freeHead))
	a.payloads[i] = payload{}
	a.freeHead = idx
	a.len--
	return n, true
}

// Len returns the number of occupied slots.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return int(a.len)
}

func (a *Arena) IsEmpty() bool { return a.Len() == 0 }

// Range calls fn for every occupied slot in ascending index order,
// stopping early if fn returns false.
func (a *Arena) Range(fn func(Index, Node) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := uint64(0); i < a.entriesLen; i++ {
		if !a.recordOccupied(i) {
			continue
		}
		n, _ := a.getLocked(Index(i))
		if !fn(Index(i), n) {
			return
		}
	}
}

// -----------------------------------------------------------------------
// Builder API, used only by the snapshot codec while reloading a slab
// from disk: it must place payloads at exact historical indices, then
// rebuild the freelist over whatever indices were left vacant.
// -----------------------------------------------------------------------

// ReserveSlots grows the arena so indices [0, count) are addressable,
// without marking any of them occupied.
func (a *Arena) ReserveSlots(count uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureCapacity(count)
	if count > a.entriesLen {
		a.entriesLen = count
	}
}

// PlaceOccupied writes node directly at idx, marking it occupied. Used
// only during snapshot reload, where idx comes from the serialized
// stream rather than from Insert's own allocation.
func (a *Arena) PlaceOccupied(idx Index, n Node) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := uint64(idx)
	a.ensureCapacity(i + 1)
	if i+1 > a.entriesLen {
		a.entriesLen = i + 1
	}
	a.setRecordOccupied(i, true)
	a.setRecordUnion(i, uint64(n.parent))
	a.setRecordMeta(i, n.Metadata)
	a.payloads[i] = payload{name: n.name, children: n.Children}
	a.len++
}

// RebuildFreelist scans slots right-to-left and links every vacant one
// into the freelist, with the lowest-index vacant slot becoming the
// new head, so index stability across a save/load round trip holds.
func (a *Arena) RebuildFreelist() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeHead = NoIndex
	for i := a.entriesLen; i > 0; i-- {
		idx := i - 1
		if !a.recordOccupied(idx) {
			a.setRecordUnion(idx, uint64(a.freeHead))
			a.freeHead = Index(idx)
		}
	}
}

// EntriesLen returns the high-water mark of slots ever allocated,
// occupied or not; used to size the builder's reload scan.
func (a *Arena) EntriesLen() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.entriesLen
}

// Close releases the arena's backing memory. Safe to call once the
// arena is no longer in use.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buf == nil {
		return nil
	}
	err := freeRaw(a.buf)
	a.buf = nil
	return err
}
