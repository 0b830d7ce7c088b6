package index

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"

	"github.com/boutros/triplestore/internal/obserr"
)

// Triple is a fully ID-resolved triple, as stored in the indices.
type Triple struct {
	Subj, Pred, Obj uint64
}

// Match returns a lazy Cursor over every stored triple consistent with the
// given pattern. A zero value in any position means "unbound" — safe
// because every real dictionary/inline ID has a nonzero tag in its top 4
// bits (internal/idcodec), so 0 never occurs as a genuine ID. The index
// chosen to drive the scan is whichever of SPO/POS/OSP has the most bound
// leading components, per spec §4.5's "choose the most selective index"
// guidance.
//
// Grounded on boutros/sopp/db.go's Describe (cursor-seek-and-compare-prefix
// pattern over a bolt.Bucket), generalized from sopp's single
// subject-bound query shape to all seven bound/unbound combinations spec
// §3.4's pattern matching requires.
func (idx *Store) Match(subj, pred, obj uint64) (*Cursor, error) {
	switch {
	case subj != 0 && pred != 0 && obj != 0:
		has, err := idx.Has(subj, pred, obj)
		if err != nil {
			return nil, err
		}
		c := &Cursor{
			decode: func(k1, k2, v uint64) Triple { return Triple{k1, k2, v} },
			group:  func() (uint64, uint64, []uint64, bool, error) { return 0, 0, nil, false, nil },
			k1:     subj,
			k2:     pred,
		}
		if has {
			c.values = []uint64{obj}
		}
		return c, nil
	case subj != 0 && pred != 0:
		return idx.singleBitmap(prefixSPO, subj, pred, func(k1, k2, v uint64) Triple {
			return Triple{k1, k2, v}
		})
	case pred != 0 && obj != 0:
		return idx.singleBitmap(prefixPOS, pred, obj, func(k1, k2, v uint64) Triple {
			return Triple{v, k1, k2}
		})
	case obj != 0 && subj != 0:
		return idx.singleBitmap(prefixOSP, obj, subj, func(k1, k2, v uint64) Triple {
			return Triple{k2, v, k1}
		})
	case subj != 0:
		return idx.prefixScan(prefixSPO, subj, func(k1, k2, v uint64) Triple {
			return Triple{k1, k2, v}
		})
	case pred != 0:
		return idx.prefixScan(prefixPOS, pred, func(k1, k2, v uint64) Triple {
			return Triple{v, k1, k2}
		})
	case obj != 0:
		return idx.prefixScan(prefixOSP, obj, func(k1, k2, v uint64) Triple {
			return Triple{k2, v, k1}
		})
	default:
		return idx.prefixScanAll(func(k1, k2, v uint64) Triple {
			return Triple{k1, k2, v}
		})
	}
}

// Cursor yields triples one at a time, materializing one composite key's
// bitmap at a time rather than the whole match set up front.
type Cursor struct {
	decode func(k1, k2, v uint64) Triple

	group func() (k1, k2 uint64, values []uint64, ok bool, err error)

	k1, k2 uint64
	values []uint64
	i      int

	txn *badger.Txn
	it  *badger.Iterator
}

// Next advances the cursor, returning false once exhausted.
func (c *Cursor) Next() (Triple, bool, error) {
	for {
		if c.i < len(c.values) {
			v := c.values[c.i]
			c.i++
			return c.decode(c.k1, c.k2, v), true, nil
		}
		k1, k2, values, ok, err := c.group()
		if err != nil {
			return Triple{}, false, err
		}
		if !ok {
			return Triple{}, false, nil
		}
		c.k1, c.k2, c.values, c.i = k1, k2, values, 0
	}
}

// Close releases the underlying badger transaction/iterator, if any.
func (c *Cursor) Close() error {
	if c.it != nil {
		c.it.Close()
	}
	if c.txn != nil {
		c.txn.Discard()
	}
	return nil
}

func (idx *Store) singleBitmap(prefix byte, k1, k2 uint64, decode func(k1, k2, v uint64) Triple) (*Cursor, error) {
	txn := idx.db.NewTransaction(false)
	bm, found, err := getBitmap(txn, compositeKey(prefix, k1, k2))
	if err != nil {
		txn.Discard()
		return nil, obserr.StorageError(err)
	}
	done := false
	return &Cursor{
		decode: decode,
		txn:    txn,
		group: func() (uint64, uint64, []uint64, bool, error) {
			if done || !found {
				return 0, 0, nil, false, nil
			}
			done = true
			return k1, k2, bm.ToArray(), true, nil
		},
	}, nil
}

func (idx *Store) prefixScan(tablePrefix byte, bound uint64, decode func(k1, k2, v uint64) Triple) (*Cursor, error) {
	keyPrefix := make([]byte, 9)
	keyPrefix[0] = tablePrefix
	binary.BigEndian.PutUint64(keyPrefix[1:], bound)
	return idx.scanWithPrefix(keyPrefix, decode)
}

func (idx *Store) prefixScanAll(decode func(k1, k2, v uint64) Triple) (*Cursor, error) {
	return idx.scanWithPrefix([]byte{prefixSPO}, decode)
}

func (idx *Store) scanWithPrefix(keyPrefix []byte, decode func(k1, k2, v uint64) Triple) (*Cursor, error) {
	txn := idx.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	it.Seek(keyPrefix)

	return &Cursor{
		decode: decode,
		txn:    txn,
		it:     it,
		group: func() (uint64, uint64, []uint64, bool, error) {
			if !it.ValidForPrefix(keyPrefix) {
				return 0, 0, nil, false, nil
			}
			item := it.Item()
			key := item.KeyCopy(nil)
			k1 := binary.BigEndian.Uint64(key[1:9])
			k2 := binary.BigEndian.Uint64(key[9:17])
			var values []uint64
			err := item.Value(func(b []byte) error {
				bm, _, err := decodeBitmapBytes(b)
				if err != nil {
					return err
				}
				values = bm.ToArray()
				return nil
			})
			if err != nil {
				return 0, 0, nil, false, err
			}
			it.Next()
			return k1, k2, values, true, nil
		},
	}, nil
}
