// Package state persists the anti-rollback watermark (v_prev, spec.md
// §4.1 invariant 3) across process restarts, keyed per ECU/hardware
// pair, backed by github.com/syndtr/goleveldb the way the teacher
// persists chain state.
package state

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// Store is a small leveldb-backed key-value table: key is
// "<ecu_id>\x00<hardware_id>", value is the big-endian uint64 version
// last accepted for that pair.
type Store struct {
	db *leveldb.DB
}

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func dbKey(ecuID, hwID string) []byte {
	return []byte(ecuID + "\x00" + hwID)
}

// VersionPrev returns the last accepted version for (ecuID, hwID), or
// 0 if the pair has never been seen — matching spec.md's ConfigEntry
// default.
func (s *Store) VersionPrev(ecuID, hwID string) (uint64, error) {
	v, err := s.db.Get(dbKey(ecuID, hwID), nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("state: get: %w", err)
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("state: corrupt record for %s/%s", ecuID, hwID)
	}
	return binary.BigEndian.Uint64(v), nil
}

// Advance records newVersion as the watermark for (ecuID, hwID). The
// caller must only call this after Process returns a success result
// (OKUpdate, OKNoUpdate or OKNoImage) for that run, never on a
// rejected manifest.
func (s *Store) Advance(ecuID, hwID string, newVersion uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], newVersion)
	if err := s.db.Put(dbKey(ecuID, hwID), buf[:], nil); err != nil {
		return fmt.Errorf("state: put: %w", err)
	}
	return nil
}
