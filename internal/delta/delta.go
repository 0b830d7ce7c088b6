// Package delta implements the semi-naive forward-chaining fixpoint engine
// of spec §4.7: given a rule set and an initial extent, it derives new
// facts round by round, using only facts touched in the previous round
// (the "delta") to avoid re-deriving what a previous round already found.
//
// No file in the teacher or the rest of the example pack implements
// bottom-up semi-naive evaluation (the closest reference,
// kevinawalsh/datalog, is top-down SLD resolution over explicit goal
// stacks); this package's round/fixpoint structure is original to this
// store, built directly from spec §4.7's algorithm and its worked
// transitive-closure example. It reuses kevinawalsh/datalog's lower-level
// unify/substitute primitives via internal/rule, and follows the teacher's
// general shape of building on top of index.Store/roaring bitmaps for
// everything that touches storage.
package delta

import (
	"context"
	"time"

	"github.com/boutros/triplestore/internal/index"
	"github.com/boutros/triplestore/internal/obserr"
	"github.com/boutros/triplestore/internal/rule"
)

// DefaultMaxDerivations is the per-round derivation cap of spec §4.7.
const DefaultMaxDerivations = 100_000

// Options configures a single Materialize run.
type Options struct {
	// MaxDerivations caps the number of new facts committed per round.
	// Zero means DefaultMaxDerivations.
	MaxDerivations int
}

// Stats summarizes a completed (or truncated, or cancelled) materialize
// run.
type Stats struct {
	Rounds       int
	TotalDerived int
	BoundReached bool // a round hit MaxDerivations and was truncated
}

// Engine drives semi-naive evaluation over an index.Store acting as the
// extent E. It performs no I/O of its own beyond what index.Store and
// Events do; all storage access is mediated by idx.
type Engine struct {
	idx    *index.Store
	events EventSink
}

// EventSink receives structured progress events. Implementations should
// not block for long; obserr.Events satisfies this via its
// Materialize*/zap-backed methods.
type EventSink interface {
	MaterializeStart(ruleCount int)
	MaterializeIteration(round, derivations int)
	MaterializeStop(rounds, totalDerived int, dur time.Duration, err error)
}

// New constructs an Engine over idx. events may be nil.
func New(idx *index.Store, events EventSink) *Engine {
	if events == nil {
		events = noopSink{}
	}
	return &Engine{idx: idx, events: events}
}

type noopSink struct{}

func (noopSink) MaterializeStart(int) {}
func (noopSink) MaterializeIteration(int, int) {}
func (noopSink) MaterializeStop(int, int, time.Duration, error) {}

// Materialize runs rules to fixpoint (or until ctx is cancelled, or a
// round's derivations hit opts.MaxDerivations), per spec §4.7's round
// loop: Δ₀ = E₀, Δ_{k+1} = ⋃ apply_delta(r, E_k, Δ_k) \ E_k, stopping when
// Δ_{k+1} = ∅.
func (e *Engine) Materialize(ctx context.Context, rules []rule.Rule, opts Options) (Stats, error) {
	for _, r := range rules {
		if !r.Safe() {
			return Stats{}, obserr.New(obserr.KindUnsupportedTerm, "rule "+r.Name+" is not safe")
		}
	}
	maxDerivations := opts.MaxDerivations
	if maxDerivations <= 0 {
		maxDerivations = DefaultMaxDerivations
	}

	start := time.Now()
	e.events.MaterializeStart(len(rules))

	var stats Stats
	finish := func(err error) (Stats, error) {
		e.events.MaterializeStop(stats.Rounds, stats.TotalDerived, time.Since(start), err)
		return stats, err
	}

	delta, err := e.fullExtent()
	if err != nil {
		return finish(err)
	}

	for {
		select {
		case <-ctx.Done():
			return finish(obserr.Wrap(obserr.KindCancelled, "materialize cancelled between rounds", ctx.Err()))
		default:
		}

		deltaIdx := newDeltaIndex(delta)

		var produced []index.Triple
		seen := make(map[index.Triple]bool)
		for _, r := range rules {
			facts, err := e.applyDelta(ctx, r, deltaIdx)
			if err != nil {
				return finish(err)
			}
			for _, f := range facts {
				if seen[f] {
					continue
				}
				seen[f] = true
				produced = append(produced, f)
			}
		}

		nextDelta, err := e.filterNew(produced)
		if err != nil {
			return finish(err)
		}
		if len(nextDelta) == 0 {
			return finish(nil)
		}

		truncated := false
		if len(nextDelta) > maxDerivations {
			nextDelta = nextDelta[:maxDerivations]
			truncated = true
		}

		added, err := e.idx.AddBatch(nextDelta)
		if err != nil {
			return finish(err)
		}

		stats.Rounds++
		stats.TotalDerived += added
		e.events.MaterializeIteration(stats.Rounds, added)

		if truncated {
			stats.BoundReached = true
			return finish(obserr.New(obserr.KindDerivationLimitReached, "materialize round truncated at max derivations"))
		}
		delta = nextDelta
	}
}

// filterNew drops any produced fact already present in the extent, per
// spec §4.7's "\ E_k".
func (e *Engine) filterNew(facts []index.Triple) ([]index.Triple, error) {
	out := make([]index.Triple, 0, len(facts))
	for _, f := range facts {
		has, err := e.idx.Has(f.Subj, f.Pred, f.Obj)
		if err != nil {
			return nil, err
		}
		if !has {
			out = append(out, f)
		}
	}
	return out, nil
}

func (e *Engine) fullExtent() ([]index.Triple, error) {
	cursor, err := e.idx.Match(0, 0, 0)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var out []index.Triple
	for {
		t, ok, err := cursor.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, t)
	}
}

func (e *Engine) matchExtent(pattern rule.Pattern, b rule.Binding) ([]index.Triple, error) {
	subj, pred, obj := rule.BoundSlots(pattern, b)
	cursor, err := e.idx.Match(subj, pred, obj)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var out []index.Triple
	for {
		t, ok, err := cursor.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, t)
	}
}

// applyDelta is spec §4.7's apply_delta: the union, over each eligible
// delta position i, of bindings built by folding left-to-right over the
// body patterns — looking pattern i up in Δ and every other pattern up in
// E — then instantiating the head for every surviving, fully-ground,
// condition-satisfying binding.
func (e *Engine) applyDelta(ctx context.Context, r rule.Rule, deltaIdx *deltaIndex) ([]index.Triple, error) {
	var out []index.Triple
	seen := make(map[index.Triple]bool)

	for _, deltaPos := range r.EligibleDeltaPositions() {
		bindings := []rule.Binding{{}}

		for j, pattern := range r.Body {
			select {
			case <-ctx.Done():
				return nil, obserr.Wrap(obserr.KindCancelled, "materialize cancelled during body evaluation", ctx.Err())
			default:
			}

			if len(bindings) == 0 {
				break
			}
			var next []rule.Binding
			for _, b := range bindings {
				var candidates []index.Triple
				var err error
				if j == deltaPos {
					candidates = deltaIdx.match(pattern, b)
				} else {
					candidates, err = e.matchExtent(pattern, b)
				}
				if err != nil {
					return nil, err
				}
				for _, fact := range candidates {
					if nb, ok := rule.Unify(pattern, fact, b); ok {
						next = append(next, nb)
					}
				}
			}
			bindings = next
		}

		for _, b := range bindings {
			satisfied := true
			for _, c := range r.Conditions {
				if !rule.EvaluateCondition(c, b) {
					satisfied = false
					break
				}
			}
			if !satisfied {
				continue
			}
			fact, ground := rule.Substitute(r.Head, b)
			if !ground {
				continue
			}
			if seen[fact] {
				continue
			}
			seen[fact] = true
			out = append(out, fact)
		}
	}
	return out, nil
}
