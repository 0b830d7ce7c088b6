package delta

import (
	"github.com/boutros/triplestore/internal/index"
	"github.com/boutros/triplestore/internal/rule"
)

// deltaIndex is the "per-predicate index on Δ" of spec §4.7: a hash map
// from predicate ID to the Δ facts with that predicate, built once per
// round. Patterns with a variable predicate fall back to a full scan of Δ,
// which the spec accepts as Δ is small relative to the extent.
type deltaIndex struct {
	byPred map[uint64][]index.Triple
	all    []index.Triple
}

func newDeltaIndex(delta []index.Triple) *deltaIndex {
	byPred := make(map[uint64][]index.Triple)
	for _, t := range delta {
		byPred[t.Pred] = append(byPred[t.Pred], t)
	}
	return &deltaIndex{byPred: byPred, all: delta}
}

// match returns the Δ facts consistent with pattern under the current
// binding b.
func (d *deltaIndex) match(pattern rule.Pattern, b rule.Binding) []index.Triple {
	subj, pred, obj := rule.BoundSlots(pattern, b)

	candidates := d.all
	if pred != 0 {
		candidates = d.byPred[pred]
	}

	var out []index.Triple
	for _, t := range candidates {
		if subj != 0 && t.Subj != subj {
			continue
		}
		if pred != 0 && t.Pred != pred {
			continue
		}
		if obj != 0 && t.Obj != obj {
			continue
		}
		out = append(out, t)
	}
	return out
}
