// Package index maintains the SPO/POS/OSP triple indices described in spec
// §3.3/§4.5: three orderings of the same fact set, each a badger key made
// of two bound components plus a roaring bitmap of the third.
//
// Grounded on boutros/sopp/db.go's storeTriple/removeTriple (same
// three-index, shared-bitmap-per-composite-key layout, same
// add-to-all-three/remove-from-all-three transaction shape), generalized
// from sopp's roaring.Bitmap of uint32 term IDs to roaring64.Bitmap, since
// spec §3.1 specifies 64-bit IDs rather than sopp's 32-bit ones.
package index

import (
	"bytes"
	"encoding/binary"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dgraph-io/badger/v4"

	"github.com/boutros/triplestore/internal/obserr"
)

const (
	prefixSPO byte = 0x20
	prefixPOS byte = 0x21
	prefixOSP byte = 0x22
)

// Store is the default index.TripleLookup implementation, backed by badger.
type Store struct {
	db *badger.DB
}

// Open wraps an already-open badger database as a triple index.
func Open(db *badger.DB) *Store {
	return &Store{db: db}
}

func compositeKey(prefix byte, k1, k2 uint64) []byte {
	k := make([]byte, 17)
	k[0] = prefix
	binary.BigEndian.PutUint64(k[1:9], k1)
	binary.BigEndian.PutUint64(k[9:17], k2)
	return k
}

type indexEntry struct {
	prefix byte
	k1, k2 uint64
	v      uint64
}

func entries(s, p, o uint64) [3]indexEntry {
	return [3]indexEntry{
		{prefixSPO, s, p, o},
		{prefixPOS, p, o, s},
		{prefixOSP, o, s, p},
	}
}

// Add stores the triple (s, p, o) in all three indices, returning false if
// it was already present (a no-op, matching spec §4.5's idempotent Insert).
func (idx *Store) Add(s, p, o uint64) (bool, error) {
	added := false
	err := idx.db.Update(func(txn *badger.Txn) error {
		for i, e := range entries(s, p, o) {
			bm, _, err := getBitmap(txn, compositeKey(e.prefix, e.k1, e.k2))
			if err != nil {
				return err
			}
			isNew := bm.CheckedAdd(e.v)
			if i == 0 {
				added = isNew
			}
			if !isNew {
				// Already present in one index means already present in all
				// three; nothing further to do.
				return nil
			}
			if err := putBitmap(txn, compositeKey(e.prefix, e.k1, e.k2), bm); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, obserr.StorageError(err)
	}
	return added, nil
}

// AddBatch stores every triple in facts inside a single badger
// transaction, returning the number that were newly added (as opposed to
// already present). Used by the reasoning engine so that a whole round's
// derivations commit atomically (spec §5: "rounds are atomic at the
// storage layer: either the whole round is written or none of it is").
func (idx *Store) AddBatch(facts []Triple) (int, error) {
	added := 0
	err := idx.db.Update(func(txn *badger.Txn) error {
		for _, f := range facts {
			for i, e := range entries(f.Subj, f.Pred, f.Obj) {
				bm, _, err := getBitmap(txn, compositeKey(e.prefix, e.k1, e.k2))
				if err != nil {
					return err
				}
				isNew := bm.CheckedAdd(e.v)
				if i == 0 && isNew {
					added++
				}
				if !isNew {
					break
				}
				if err := putBitmap(txn, compositeKey(e.prefix, e.k1, e.k2), bm); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, obserr.StorageError(err)
	}
	return added, nil
}

// Remove deletes the triple (s, p, o) from all three indices, returning
// false if it was not present.
func (idx *Store) Remove(s, p, o uint64) (bool, error) {
	removed := false
	err := idx.db.Update(func(txn *badger.Txn) error {
		for i, e := range entries(s, p, o) {
			key := compositeKey(e.prefix, e.k1, e.k2)
			bm, found, err := getBitmap(txn, key)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
			wasPresent := bm.CheckedRemove(e.v)
			if i == 0 {
				removed = wasPresent
			}
			if !wasPresent {
				return nil
			}
			if bm.GetCardinality() == 0 {
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			if err := putBitmap(txn, key, bm); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, obserr.StorageError(err)
	}
	return removed, nil
}

// Has reports whether (s, p, o) is stored.
func (idx *Store) Has(s, p, o uint64) (bool, error) {
	var has bool
	err := idx.db.View(func(txn *badger.Txn) error {
		bm, found, err := getBitmap(txn, compositeKey(prefixSPO, s, p))
		if err != nil || !found {
			return err
		}
		has = bm.Contains(o)
		return nil
	})
	if err != nil {
		return false, obserr.StorageError(err)
	}
	return has, nil
}

func getBitmap(txn *badger.Txn, key []byte) (*roaring64.Bitmap, bool, error) {
	bm := roaring64.NewBitmap()
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return bm, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	err = item.Value(func(b []byte) error {
		_, err := bm.ReadFrom(bytes.NewReader(b))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return bm, true, nil
}

func decodeBitmapBytes(b []byte) (*roaring64.Bitmap, bool, error) {
	bm := roaring64.NewBitmap()
	if _, err := bm.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, false, err
	}
	return bm, true, nil
}

func putBitmap(txn *badger.Txn, key []byte, bm *roaring64.Bitmap) error {
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return err
	}
	return txn.Set(key, buf.Bytes())
}
