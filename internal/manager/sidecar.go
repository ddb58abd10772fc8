package manager

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"go.etcd.io/bbolt"
)

var rootsBucket = []byte("roots")

// sidecarRecord is what the sidecar remembers per root-index key
// across process restarts, independent of that root's own snapshot
// file: when it was last rescanned, how many times, and its last
// error.
type sidecarRecord struct {
	LastRescanAt uint64
	RescanCount  uint64
	LastError    string
}

// sidecar wraps a single bbolt database file shared by every
// root-index key this Manager has seen, one key per fingerprint.
type sidecar struct {
	db *bbolt.DB
}

func openSidecar(path string) (*sidecar, error) {
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sidecar{db: db}, nil
}

func (s *sidecar) record(fingerprint string, rec sidecarRecord) error {
	buf := encodeSidecarRecord(rec)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rootsBucket).Put([]byte(fingerprint), buf)
	})
}

func (s *sidecar) lookup(fingerprint string) (sidecarRecord, bool) {
	var rec sidecarRecord
	var found bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(rootsBucket).Get([]byte(fingerprint))
		if v == nil {
			return nil
		}
		decoded, err := decodeSidecarRecord(v)
		if err != nil {
			return nil
		}
		rec = decoded
		found = true
		return nil
	})
	return rec, found
}

func (s *sidecar) Close() error {
	return s.db.Close()
}

func encodeSidecarRecord(rec sidecarRecord) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, rec.LastRescanAt)
	_ = binary.Write(&buf, binary.LittleEndian, rec.RescanCount)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(rec.LastError)))
	buf.WriteString(rec.LastError)
	return buf.Bytes()
}

func decodeSidecarRecord(b []byte) (sidecarRecord, error) {
	r := bytes.NewReader(b)
	var rec sidecarRecord
	if err := binary.Read(r, binary.LittleEndian, &rec.LastRescanAt); err != nil {
		return rec, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.RescanCount); err != nil {
		return rec, err
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return rec, err
	}
	msg := make([]byte, n)
	if _, err := io.ReadFull(r, msg); err != nil {
		return rec, err
	}
	rec.LastError = string(msg)
	return rec, nil
}
