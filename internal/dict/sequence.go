package dict

import (
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/boutros/triplestore/internal/idcodec"
	"github.com/boutros/triplestore/internal/obserr"
)

// DefaultFlushInterval is how often (in allocations) the counter is
// checkpointed, per spec §4.3.
const DefaultFlushInterval = 1000

// DefaultSafetyMargin is added to the last persisted value on startup, per
// spec §3.6/§4.3, so that a crash between checkpoints can never cause an id
// to be reissued.
const DefaultSafetyMargin = 1000

// sequence is a lock-free, durably-checkpointed monotonic counter for one
// dictionary tag (URI, BNode, or Literal). Replaces the teacher's
// bkt.NextSequence() (BoltDB's built-in per-bucket counter has no
// safety-margin or checkpoint-interval knobs) with the explicit allocator
// spec §4.3 describes.
type sequence struct {
	counter       atomic.Uint64
	flushInterval uint64

	db      *badger.DB
	key     []byte
	flushMu sync.Mutex
	flushed uint64 // highest value ever durably written; guards against regressions
}

func openSequence(db *badger.DB, metaKey []byte, flushInterval, safetyMargin uint64) (*sequence, error) {
	persisted, err := readMetaCounter(db, metaKey)
	if err != nil {
		return nil, err
	}
	start := persisted + safetyMargin
	// Persist the new starting point at once, so that a crash before the
	// next checkpoint restarts above every id this run can have issued.
	if err := writeMetaCounter(db, metaKey, start); err != nil {
		return nil, obserr.StorageError(err)
	}
	s := &sequence{
		db:            db,
		key:           metaKey,
		flushInterval: flushInterval,
		flushed:       start,
	}
	s.counter.Store(start)
	return s, nil
}

// next atomically allocates the next id in this sequence. If the sequence
// is exhausted (would exceed the 60-bit payload space) it returns
// SequenceOverflow and leaves the counter unchanged.
func (s *sequence) next() (uint64, error) {
	for {
		old := s.counter.Load()
		if old >= idcodec.MaxPayload {
			return 0, obserr.SequenceOverflow
		}
		next := old + 1
		if s.counter.CompareAndSwap(old, next) {
			if next%s.flushInterval == 0 {
				go s.checkpoint(next)
			}
			return next, nil
		}
	}
}

// checkpoint durably persists val, best-effort, never writing a value lower
// than one already persisted (spec §4.3: "must never observe decreasing
// values").
func (s *sequence) checkpoint(val uint64) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if val <= s.flushed {
		return
	}
	if err := writeMetaCounter(s.db, s.key, val); err != nil {
		// Best-effort: a failed checkpoint just means a larger safety margin is
		// consumed on the next crash-recovery restart; it is not fatal.
		return
	}
	s.flushed = val
}

// close forces a synchronous checkpoint of the current value, per spec
// §4.3 ("on graceful close, force a checkpoint of the current value").
func (s *sequence) close() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	val := s.counter.Load()
	if val <= s.flushed {
		return nil
	}
	if err := writeMetaCounter(s.db, s.key, val); err != nil {
		return err
	}
	s.flushed = val
	return nil
}

func readMetaCounter(db *badger.DB, key []byte) (uint64, error) {
	var val uint64
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			val = 0
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(b []byte) error {
			val = decodeBE64(b)
			return nil
		})
	})
	if err != nil {
		return 0, obserr.StorageError(err)
	}
	return val, nil
}

func writeMetaCounter(db *badger.DB, key []byte, val uint64) error {
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, encodeBE64(val))
	})
}
