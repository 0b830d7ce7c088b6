// Package stream provides the lazy, pattern-bound triple iterator of spec
// §3.4/§4.6: a cursor over matching facts that resolves dictionary IDs to
// terms on demand, one triple at a time, rather than materializing the
// whole match set.
//
// Grounded on aleksaelezovic/trigo's quadIterator (same on-demand,
// one-record-at-a-time decode shape over a storage cursor), adapted from
// trigo's quad (4-tuple, single backing store) to this store's triple
// (3-tuple, two-layer index+dictionary) shape.
package stream

import (
	"github.com/boutros/triplestore/internal/dict"
	"github.com/boutros/triplestore/internal/index"
	"github.com/boutros/triplestore/internal/term"
)

// Stream lazily yields the triples matching a pattern. Callers must call
// Close when done, whether or not they exhausted it.
type Stream struct {
	cursor *index.Cursor
	dict   *dict.Store
}

// New wraps an index cursor and the dictionary needed to resolve the IDs it
// yields back into terms.
func New(cursor *index.Cursor, d *dict.Store) *Stream {
	return &Stream{cursor: cursor, dict: d}
}

// Next advances the stream, returning the next term-resolved triple. ok is
// false once the stream is exhausted.
func (s *Stream) Next() (term.Triple, bool, error) {
	ids, ok, err := s.cursor.Next()
	if err != nil || !ok {
		return term.Triple{}, ok, err
	}
	return s.resolve(ids)
}

// NextIDs advances the stream without resolving IDs to terms, for callers
// that only need the bare identifiers.
func (s *Stream) NextIDs() (index.Triple, bool, error) {
	return s.cursor.Next()
}

func (s *Stream) resolve(ids index.Triple) (term.Triple, bool, error) {
	subj, _, err := s.dict.LookupTerm(ids.Subj)
	if err != nil {
		return term.Triple{}, false, err
	}
	pred, _, err := s.dict.LookupTerm(ids.Pred)
	if err != nil {
		return term.Triple{}, false, err
	}
	obj, _, err := s.dict.LookupTerm(ids.Obj)
	if err != nil {
		return term.Triple{}, false, err
	}
	return term.Triple{Subj: subj, Pred: pred, Obj: obj}, true, nil
}

// Close releases the underlying index cursor.
func (s *Stream) Close() error {
	return s.cursor.Close()
}
