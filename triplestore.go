// Package triplestore is an embedded RDF triple store: a persistent
// database of subject-predicate-object statements with pattern lookup,
// bulk ingest, and forward-chaining inference, per spec §1/§4.8.
//
// Grounded on boutros/sopp's DB (Open/Close/Insert/Delete/Has as the
// public surface over a term<->ID dictionary plus a triple index),
// generalized to the wider surface spec §4.8 requires: batch insert,
// pattern-lookup streams, and materialize-to-fixpoint reasoning.
package triplestore

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/boutros/triplestore/internal/delta"
	"github.com/boutros/triplestore/internal/dict"
	"github.com/boutros/triplestore/internal/index"
	"github.com/boutros/triplestore/internal/obserr"
	"github.com/boutros/triplestore/internal/rule"
	"github.com/boutros/triplestore/internal/stream"
	"github.com/boutros/triplestore/internal/term"
)

// Re-export the rule model and reasoning types callers need to build a
// ruleset and call Materialize, so they don't have to import internal
// packages (which the Go toolchain wouldn't let them do anyway).
type (
	Rule      = rule.Rule
	Pattern   = rule.Pattern
	Slot      = rule.Slot
	Condition = rule.Condition
	CondOp    = rule.CondOp
)

const (
	CondEq  = rule.CondEq
	CondNeq = rule.CondNeq
	CondLt  = rule.CondLt
	CondLte = rule.CondLte
	CondGt  = rule.CondGt
	CondGte = rule.CondGte
)

// Var and Const build rule pattern slots; see internal/rule for details.
func Var(name string) Slot { return rule.Var(name) }
func Const(id uint64) Slot { return rule.Const(id) }

// MaterializeOptions configures a single call to Materialize.
type MaterializeOptions = delta.Options

// MaterializeStats summarizes a completed Materialize call.
type MaterializeStats = delta.Stats

// Options configures Open.
type Options struct {
	// Logger receives structured events (spec §6). Nil disables logging.
	Logger *zap.Logger
}

// state is the Driver state machine of spec §4.7: Idle/Extending/
// Reasoning/Partial.
type state int

const (
	stateIdle state = iota
	stateExtending
	stateReasoning
	statePartial
)

// DB is an open triple store.
type DB struct {
	kv     *badger.DB
	dict   *dict.Store
	idx    *index.Store
	engine *delta.Engine
	events *obserr.Events

	mu    sync.Mutex
	state state
}

// Open opens (creating if necessary) a triple store at path.
func Open(path string, opts Options) (*DB, error) {
	badgerOpts := badger.DefaultOptions(path).WithLogger(nil)
	kv, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, obserr.StorageError(err)
	}

	d, err := dict.Open(kv)
	if err != nil {
		kv.Close()
		return nil, err
	}
	idx := index.Open(kv)
	events := obserr.NewEvents(opts.Logger)

	return &DB{
		kv:     kv,
		dict:   d,
		idx:    idx,
		engine: delta.New(idx, events),
		events: events,
	}, nil
}

// Close flushes pending sequence checkpoints and closes the underlying
// storage engine.
func (db *DB) Close() error {
	if err := db.dict.Close(); err != nil {
		return err
	}
	return db.kv.Close()
}

func (db *DB) beginExtending() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.state == stateReasoning {
		return obserr.New(obserr.KindTypeMismatch, "cannot insert while a materialize round is in progress")
	}
	db.state = stateExtending
	return nil
}

func (db *DB) endExtending() {
	db.mu.Lock()
	db.state = stateIdle
	db.mu.Unlock()
}

// Insert encodes tr's terms (allocating dictionary IDs as needed) and adds
// it to the index. Inserting an already-stored triple is a no-op.
func (db *DB) Insert(tr term.Triple) error {
	if err := db.beginExtending(); err != nil {
		return err
	}
	defer db.endExtending()

	start := time.Now()
	db.events.InsertStart(1)
	s, err := db.dict.GetOrCreateID(tr.Subj)
	if err != nil {
		db.events.InsertStop(0, time.Since(start), err)
		return err
	}
	p, err := db.dict.GetOrCreateID(tr.Pred)
	if err != nil {
		db.events.InsertStop(0, time.Since(start), err)
		return err
	}
	o, err := db.dict.GetOrCreateID(tr.Obj)
	if err != nil {
		db.events.InsertStop(0, time.Since(start), err)
		return err
	}
	_, err = db.idx.Add(s, p, o)
	db.events.InsertStop(1, time.Since(start), err)
	return err
}

// InsertBatch inserts every triple in trs, resolving all dictionary misses
// inside one transaction.
func (db *DB) InsertBatch(trs []term.Triple) error {
	if err := db.beginExtending(); err != nil {
		return err
	}
	defer db.endExtending()

	start := time.Now()
	db.events.InsertStart(len(trs))

	terms := make([]term.Term, 0, len(trs)*3)
	for _, tr := range trs {
		terms = append(terms, tr.Subj, tr.Pred, tr.Obj)
	}
	ids, err := db.dict.GetOrCreateIDs(terms)
	if err != nil {
		db.events.InsertStop(0, time.Since(start), err)
		return err
	}

	facts := make([]index.Triple, len(trs))
	for i := range trs {
		facts[i] = index.Triple{Subj: ids[3*i], Pred: ids[3*i+1], Obj: ids[3*i+2]}
	}
	_, err = db.idx.AddBatch(facts)
	db.events.InsertStop(len(trs), time.Since(start), err)
	return err
}

// noMatchID is an ID no real term is ever assigned: its top 4 bits decode
// to a tag value (0xF) outside [1,6] (internal/idcodec), so it can be
// passed to index.Store.Match to force a guaranteed-empty result when a
// Lookup's bound term isn't in the dictionary at all.
const noMatchID = ^uint64(0)

func (db *DB) resolveBound(t *term.Term) (uint64, error) {
	if t == nil {
		return 0, nil
	}
	id, found, err := db.dict.LookupID(*t)
	if err != nil {
		return 0, err
	}
	if !found {
		return noMatchID, nil
	}
	return id, nil
}

// Lookup returns a lazy stream over every stored triple matching the given
// pattern. A nil slot is unbound (spec §4.5's Var); a non-nil slot is
// bound to that term's value, or to "no term" if it has never been seen.
func (db *DB) Lookup(subj, pred, obj *term.Term) (*stream.Stream, error) {
	s, err := db.resolveBound(subj)
	if err != nil {
		return nil, err
	}
	p, err := db.resolveBound(pred)
	if err != nil {
		return nil, err
	}
	o, err := db.resolveBound(obj)
	if err != nil {
		return nil, err
	}
	cursor, err := db.idx.Match(s, p, o)
	if err != nil {
		return nil, err
	}
	return stream.New(cursor, db.dict), nil
}

// Materialize runs the reasoning engine over rules until fixpoint, a
// per-round derivation cap, or ctx cancellation (spec §4.7/§4.8). The
// store transitions Idle -> Reasoning for the duration, then back to Idle,
// or to Partial if a round was truncated by the cap.
func (db *DB) Materialize(ctx context.Context, rules []Rule, opts MaterializeOptions) (MaterializeStats, error) {
	db.mu.Lock()
	if db.state == stateReasoning {
		db.mu.Unlock()
		return MaterializeStats{}, obserr.New(obserr.KindTypeMismatch, "a materialize round is already in progress")
	}
	db.state = stateReasoning
	db.mu.Unlock()

	stats, err := db.engine.Materialize(ctx, rules, opts)

	db.mu.Lock()
	if stats.BoundReached {
		db.state = statePartial
	} else {
		db.state = stateIdle
	}
	db.mu.Unlock()

	return stats, err
}

// IDToTerm resolves a dictionary (or inline) ID back to its term.
func (db *DB) IDToTerm(id uint64) (term.Term, bool, error) {
	return db.dict.LookupTerm(id)
}

// TermToID returns t's ID without allocating one, if t is already known.
func (db *DB) TermToID(t term.Term) (uint64, bool, error) {
	return db.dict.LookupID(t)
}
