package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fsindex/fsindex/internal/indextree"
	"github.com/fsindex/fsindex/internal/namepool"
	"github.com/fsindex/fsindex/internal/slab"
)

// Version is the cache format version; bump whenever the wire layout
// below changes, so an old cache is rejected rather than
// misinterpreted.
const Version = uint32(1)

const magic = uint32(0x46534958) // "FSIX"

// Storage is the on-disk record of one indexed root: the identity
// fields needed to validate a cache hit, plus the full slab and name
// index contents needed to reconstruct the tree without re-walking.
// The codec encodes it with a fixed, field-order-defined binary
// layout rather than a reflective struct serializer: the layout is
// custom and small enough that hand-written encode/decode is clearer
// than wiring a generic schema for it.
type Storage struct {
	Version     uint32
	LastEventID uint64
	Path        string
	RootIsDir   bool
	IgnorePaths []string
	SlabRoot    slab.Index
	EntriesLen  uint64
	Entries     []entryRecord
	NameIndex   []indextree.NameIndexEntry
	RescanCount uint64
	SavedAt     uint64
	Errors      uint64
}

type entryRecord struct {
	Occupied bool
	Node     slab.Node
}

// FromTree captures everything needed to later reconstruct tree
// byte-for-byte, preserving slab indices across the round trip.
func FromTree(tree *indextree.Tree, lastEventID uint64, path string, rootIsDir bool, ignorePaths []string, rescanCount, savedAt uint64) Storage {
	arena := tree.Arena()
	entriesLen := arena.EntriesLen()
	entries := make([]entryRecord, entriesLen)
	for i := uint64(0); i < entriesLen; i++ {
		if n, ok := arena.Get(slab.Index(i)); ok {
			entries[i] = entryRecord{Occupied: true, Node: n}
		}
	}
	return Storage{
		Version:     Version,
		LastEventID: lastEventID,
		Path:        path,
		RootIsDir:   rootIsDir,
		IgnorePaths: append([]string(nil), ignorePaths...),
		SlabRoot:    tree.Root(),
		EntriesLen:  entriesLen,
		Entries:     entries,
		NameIndex:   tree.NameIndex().Entries(),
		RescanCount: rescanCount,
		SavedAt:     savedAt,
		Errors:      uint64(tree.Errors()),
	}
}

// ToTree reconstructs a Tree from decoded storage, placing every node
// back at its saved index and rebuilding the freelist so that indices
// handed out before the save and indices handed out after a reload
// never collide.
func (s Storage) ToTree(pool *namepool.Pool) *indextree.Tree {
	arena := slab.NewArena()
	arena.ReserveSlots(s.EntriesLen)
	for i, e := range s.Entries {
		if !e.Occupied {
			continue
		}
		// Re-intern the decoded name so nodes share one copy per
		// distinct name again, same as after a fresh walk.
		parent, _ := e.Node.Parent()
		node := slab.NewNode(parent, pool.Intern(e.Node.Name()), e.Node.Metadata)
		node.Children = e.Node.Children
		arena.PlaceOccupied(slab.Index(i), node)
	}
	arena.RebuildFreelist()

	tree := indextree.NewFromParts(pool, arena, s.SlabRoot, int(s.Errors))
	for _, entry := range s.NameIndex {
		name := pool.Intern(entry.Name)
		for _, idx := range entry.Indices {
			tree.NameIndex().Insert(name, idx)
		}
	}
	return tree
}

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// Decode sanity bounds: a cache claiming more than these is corrupt
// (or not ours), and must become a load miss rather than a huge
// allocation or a panic.
const (
	maxDecodeString  = 1 << 16
	maxDecodeIndices = 1 << 28
	maxDecodeEntries = 1 << 33
)

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxDecodeString {
		return "", fmt.Errorf("snapshot: string length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeIndices(w *bufio.Writer, idxs []slab.Index) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(idxs))); err != nil {
		return err
	}
	for _, idx := range idxs {
		if err := binary.Write(w, binary.LittleEndian, uint64(idx)); err != nil {
			return err
		}
	}
	return nil
}

func readIndices(r io.Reader) ([]slab.Index, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > maxDecodeIndices {
		return nil, fmt.Errorf("snapshot: index list length %d exceeds limit", n)
	}
	out := make([]slab.Index, n)
	for i := range out {
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		out[i] = slab.Index(v)
	}
	return out, nil
}

// encode writes storage in the fixed binary layout described above,
// uncompressed; the caller wraps w in a zstd encoder.
func encode(w io.Writer, s Storage) error {
	bw := bufio.NewWriter(w)

	fields := []any{magic, s.Version, s.LastEventID}
	for _, f := range fields {
		if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if err := writeString(bw, s.Path); err != nil {
		return err
	}
	var rootIsDir uint8
	if s.RootIsDir {
		rootIsDir = 1
	}
	if err := binary.Write(bw, binary.LittleEndian, rootIsDir); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(s.IgnorePaths))); err != nil {
		return err
	}
	for _, p := range s.IgnorePaths {
		if err := writeString(bw, p); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(s.SlabRoot)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, s.EntriesLen); err != nil {
		return err
	}
	for _, e := range s.Entries {
		var occ uint8
		if e.Occupied {
			occ = 1
		}
		if err := binary.Write(bw, binary.LittleEndian, occ); err != nil {
			return err
		}
		if !e.Occupied {
			continue
		}
		parent, _ := e.Node.Parent()
		if err := binary.Write(bw, binary.LittleEndian, uint64(parent)); err != nil {
			return err
		}
		if err := writeString(bw, e.Node.Name()); err != nil {
			return err
		}
		if err := writeIndices(bw, e.Node.Children); err != nil {
			return err
		}
		meta := e.Node.Metadata
		if err := binary.Write(bw, binary.LittleEndian, meta.RawState()); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, meta.CTime); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, meta.MTime); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(s.NameIndex))); err != nil {
		return err
	}
	for _, entry := range s.NameIndex {
		if err := writeString(bw, entry.Name); err != nil {
			return err
		}
		if err := writeIndices(bw, entry.Indices); err != nil {
			return err
		}
	}

	tail := []any{s.RescanCount, s.SavedAt, s.Errors}
	for _, f := range tail {
		if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func decode(r io.Reader) (Storage, error) {
	var s Storage
	br := bufio.NewReader(r)

	var m, version uint32
	var lastEventID uint64
	for _, f := range []any{&m, &version, &lastEventID} {
		if err := binary.Read(br, binary.LittleEndian, f); err != nil {
			return s, err
		}
	}
	if m != magic {
		return s, fmt.Errorf("snapshot: bad magic %x", m)
	}
	s.Version = version
	s.LastEventID = lastEventID

	path, err := readString(br)
	if err != nil {
		return s, err
	}
	s.Path = path

	var rootIsDir uint8
	if err := binary.Read(br, binary.LittleEndian, &rootIsDir); err != nil {
		return s, err
	}
	s.RootIsDir = rootIsDir != 0

	var numIgnore uint32
	if err := binary.Read(br, binary.LittleEndian, &numIgnore); err != nil {
		return s, err
	}
	for i := uint32(0); i < numIgnore; i++ {
		p, err := readString(br)
		if err != nil {
			return s, err
		}
		s.IgnorePaths = append(s.IgnorePaths, p)
	}

	var slabRoot uint64
	if err := binary.Read(br, binary.LittleEndian, &slabRoot); err != nil {
		return s, err
	}
	s.SlabRoot = slab.Index(slabRoot)

	if err := binary.Read(br, binary.LittleEndian, &s.EntriesLen); err != nil {
		return s, err
	}
	if s.EntriesLen > maxDecodeEntries {
		return s, fmt.Errorf("snapshot: entry count %d exceeds limit", s.EntriesLen)
	}
	// Grown by append rather than preallocated by the claimed count, so
	// a corrupt length fails on the truncated stream instead of a
	// gigantic up-front allocation.
	s.Entries = make([]entryRecord, 0, 1024)
	for i := uint64(0); i < s.EntriesLen; i++ {
		var occ uint8
		if err := binary.Read(br, binary.LittleEndian, &occ); err != nil {
			return s, err
		}
		if occ == 0 {
			s.Entries = append(s.Entries, entryRecord{})
			continue
		}
		var parent uint64
		if err := binary.Read(br, binary.LittleEndian, &parent); err != nil {
			return s, err
		}
		name, err := readString(br)
		if err != nil {
			return s, err
		}
		children, err := readIndices(br)
		if err != nil {
			return s, err
		}
		var sts uint64
		var ctime, mtime uint32
		if err := binary.Read(br, binary.LittleEndian, &sts); err != nil {
			return s, err
		}
		if err := binary.Read(br, binary.LittleEndian, &ctime); err != nil {
			return s, err
		}
		if err := binary.Read(br, binary.LittleEndian, &mtime); err != nil {
			return s, err
		}
		node := slab.NewNode(slab.Index(parent), name, slab.MetadataFromRaw(sts, ctime, mtime))
		node.Children = children
		s.Entries = append(s.Entries, entryRecord{Occupied: true, Node: node})
	}

	var numNames uint32
	if err := binary.Read(br, binary.LittleEndian, &numNames); err != nil {
		return s, err
	}
	s.NameIndex = make([]indextree.NameIndexEntry, 0, 1024)
	for i := uint32(0); i < numNames; i++ {
		name, err := readString(br)
		if err != nil {
			return s, err
		}
		indices, err := readIndices(br)
		if err != nil {
			return s, err
		}
		s.NameIndex = append(s.NameIndex, indextree.NameIndexEntry{Name: name, Indices: indices})
	}

	for _, f := range []*uint64{&s.RescanCount, &s.SavedAt, &s.Errors} {
		if err := binary.Read(br, binary.LittleEndian, f); err != nil {
			return s, err
		}
	}

	return s, nil
}
