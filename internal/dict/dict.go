// Package dict implements the dictionary encoding layer of spec §4.4: a
// durable bidirectional mapping between RDF terms and the 64-bit IDs of
// internal/idcodec, plus the sequence allocators that hand out fresh IDs.
//
// Grounded on boutros/sopp/db.go's addTerm/getID/getTerm trio (encode term,
// probe the index bucket, allocate-and-store on miss), rewritten against
// badger/v4 transactions instead of BoltDB buckets and widened from a
// single global NextSequence() to one allocator per tag (URI/BNode/Literal),
// since spec §4.3 requires independent 60-bit counters per dictionary
// partition rather than one 32-bit global counter.
package dict

import (
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/boutros/triplestore/internal/idcodec"
	"github.com/boutros/triplestore/internal/obserr"
	"github.com/boutros/triplestore/internal/term"
	"github.com/boutros/triplestore/internal/termcodec"
)

// Store is the durable term<->ID dictionary. All mutating methods funnel
// through writeMu, making the dictionary a single-writer actor per spec
// §4.4 ("concurrent GetOrCreateID calls for the same term must allocate
// exactly one ID") — reads never take the lock and may run concurrently
// with a writer, same as BoltDB's MVCC readers in the teacher.
type Store struct {
	db *badger.DB

	seqURI, seqBNode, seqLiteral *sequence

	writeMu sync.Mutex
}

// Open opens the dictionary over an already-open badger database,
// resuming each tag's sequence from its last checkpoint plus the
// crash-recovery safety margin (spec §3.6/§4.3).
func Open(db *badger.DB) (*Store, error) {
	seqURI, err := openSequence(db, metaKey("seq.uri"), DefaultFlushInterval, DefaultSafetyMargin)
	if err != nil {
		return nil, err
	}
	seqBNode, err := openSequence(db, metaKey("seq.bnode"), DefaultFlushInterval, DefaultSafetyMargin)
	if err != nil {
		return nil, err
	}
	seqLiteral, err := openSequence(db, metaKey("seq.literal"), DefaultFlushInterval, DefaultSafetyMargin)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:         db,
		seqURI:     seqURI,
		seqBNode:   seqBNode,
		seqLiteral: seqLiteral,
	}, nil
}

// Close forces a synchronous checkpoint of every sequence.
func (s *Store) Close() error {
	for _, sq := range []*sequence{s.seqURI, s.seqBNode, s.seqLiteral} {
		if err := sq.close(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) sequenceFor(tag idcodec.Tag) *sequence {
	switch tag {
	case idcodec.TagURI:
		return s.seqURI
	case idcodec.TagBNode:
		return s.seqBNode
	default:
		return s.seqLiteral
	}
}

func tagFor(t term.Term) idcodec.Tag {
	switch t.Kind() {
	case term.KindURI:
		return idcodec.TagURI
	case term.KindBlankNode:
		return idcodec.TagBNode
	default:
		return idcodec.TagLiteral
	}
}

// LookupID returns the ID of t if it is already known, without allocating
// one. Inline-encodable literals (spec §3.1) are resolved without touching
// storage at all.
func (s *Store) LookupID(t term.Term) (uint64, bool, error) {
	if id, ok := tryInline(t); ok {
		return id, true, nil
	}
	key, err := termcodec.Encode(t)
	if err != nil {
		return 0, false, err
	}
	return s.lookupKey(key)
}

func (s *Store) lookupKey(key []byte) (uint64, bool, error) {
	var id uint64
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(str2idKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(b []byte) error {
			id = decodeBE64(b)
			return nil
		})
	})
	if err != nil {
		return 0, false, obserr.StorageError(err)
	}
	return id, found, nil
}

// GetOrCreateID returns t's ID, allocating and durably storing a new one if
// t has never been seen before. Concurrent calls for the same term
// serialize on writeMu and are guaranteed to allocate exactly one ID (spec
// §4.4, boundary scenario 3).
func (s *Store) GetOrCreateID(t term.Term) (uint64, error) {
	if id, ok := tryInline(t); ok {
		return id, nil
	}
	key, err := termcodec.Encode(t)
	if err != nil {
		return 0, err
	}
	if id, found, err := s.lookupKey(key); err != nil {
		return 0, err
	} else if found {
		return id, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Re-check under the write lock: another goroutine may have created the
	// term while we were waiting for it.
	if id, found, err := s.lookupKey(key); err != nil {
		return 0, err
	} else if found {
		return id, nil
	}

	tag := tagFor(t)
	n, err := s.sequenceFor(tag).next()
	if err != nil {
		return 0, err
	}
	id, err := idcodec.Encode(tag, n)
	if err != nil {
		return 0, obserr.Wrap(obserr.KindOutOfRange, "allocated sequence value does not fit the ID payload", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(str2idKey(key), encodeBE64(id)); err != nil {
			return err
		}
		return txn.Set(id2strKey(id), key)
	})
	if err != nil {
		return 0, obserr.StorageError(err)
	}
	return id, nil
}

// GetOrCreateIDs is the batch variant of GetOrCreateID, allocating all
// misses inside a single badger transaction (spec §4.4: "batch inserts
// allocate their misses inside one transaction").
func (s *Store) GetOrCreateIDs(terms []term.Term) ([]uint64, error) {
	ids := make([]uint64, len(terms))
	keys := make([][]byte, len(terms))
	var misses []int

	for i, t := range terms {
		if id, ok := tryInline(t); ok {
			ids[i] = id
			continue
		}
		key, err := termcodec.Encode(t)
		if err != nil {
			return nil, err
		}
		keys[i] = key
		if id, found, err := s.lookupKey(key); err != nil {
			return nil, err
		} else if found {
			ids[i] = id
			continue
		}
		misses = append(misses, i)
	}
	if len(misses) == 0 {
		return ids, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, i := range misses {
			item, err := txn.Get(str2idKey(keys[i]))
			switch {
			case err == nil:
				if verr := item.Value(func(b []byte) error {
					ids[i] = decodeBE64(b)
					return nil
				}); verr != nil {
					return verr
				}
				continue
			case err == badger.ErrKeyNotFound:
				// fall through to allocation below
			default:
				return err
			}

			tag := tagFor(terms[i])
			n, err := s.sequenceFor(tag).next()
			if err != nil {
				return err
			}
			id, err := idcodec.Encode(tag, n)
			if err != nil {
				return err
			}
			if err := txn.Set(str2idKey(keys[i]), encodeBE64(id)); err != nil {
				return err
			}
			if err := txn.Set(id2strKey(id), keys[i]); err != nil {
				return err
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return nil, obserr.StorageError(err)
	}
	return ids, nil
}

// LookupTerm returns the term that id was assigned to, or false if id is
// not (and never was) a known dictionary ID. Inline IDs are decoded
// directly, with no storage access.
func (s *Store) LookupTerm(id uint64) (term.Term, bool, error) {
	if t, ok := decodeInline(id); ok {
		return t, true, nil
	}
	var key []byte
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(id2strKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(b []byte) error {
			key = append([]byte(nil), b...)
			return nil
		})
	})
	if err != nil {
		return term.Term{}, false, obserr.StorageError(err)
	}
	if !found {
		return term.Term{}, false, nil
	}
	t, err := termcodec.Decode(key)
	if err != nil {
		return term.Term{}, false, err
	}
	return t, true, nil
}
