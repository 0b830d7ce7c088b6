// Package rule models the inference rules of spec §3.5/§4.7: triple
// patterns over dictionary IDs, each slot either a bound constant or a
// named variable, plus the unification/substitution machinery the
// reasoning engine drives its fixpoint with.
//
// Grounded on kevinawalsh/datalog's Term/Literal/Clause model (head,
// body-literals, unify-against-an-environment shape), adapted from
// datalog's pointer-identity variables (a *Var struct's address is its
// identity) to plain named string variables, since rule patterns here are
// built once from a fixed triple shape (Subj/Pred/Obj) rather than
// arbitrary-arity literals constructed programmatically at rule-authoring
// time.
package rule

import (
	"fmt"

	"github.com/boutros/triplestore/internal/index"
	"github.com/boutros/triplestore/internal/obserr"
)

// Slot is one position (subject, predicate, or object) of a triple
// pattern: either a bound term ID or a named variable.
type Slot struct {
	name   string
	id     uint64
	isVar  bool
}

// Var constructs a variable slot.
func Var(name string) Slot { return Slot{name: name, isVar: true} }

// Const constructs a bound slot holding a dictionary/inline ID.
func Const(id uint64) Slot { return Slot{id: id} }

func (s Slot) IsVar() bool { return s.isVar }
func (s Slot) Name() string { return s.name }
func (s Slot) ID() uint64 { return s.id }

func (s Slot) String() string {
	if s.isVar {
		return "?" + s.name
	}
	return fmt.Sprintf("%d", s.id)
}

// Pattern is a triple template: each position independently bound or free.
type Pattern struct {
	Subj, Pred, Obj Slot
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s %s %s", p.Subj, p.Pred, p.Obj)
}

// CondOp is a comparison operator for a filter condition.
type CondOp int

const (
	CondEq CondOp = iota
	CondNeq
	CondLt
	CondLte
	CondGt
	CondGte
)

// Condition is a filter expression over two slots, evaluated after a
// binding is fully built (spec §4.6 evaluate_condition). Comparisons are
// over raw ID values. For inline-encoded IDs this matches value order for
// DateTime and for non-negative Integer values; negative Integers are
// stored in two's complement, so their IDs compare above every
// non-negative Integer ID.
type Condition struct {
	Op          CondOp
	Left, Right Slot
}

// EvaluateCondition evaluates c under b. An unbound variable reference
// evaluates to false, per spec §4.6 — a safe rule never reaches this case.
func EvaluateCondition(c Condition, b Binding) bool {
	lv, lok := substSlot(c.Left, b)
	rv, rok := substSlot(c.Right, b)
	if !lok || !rok {
		return false
	}
	switch c.Op {
	case CondEq:
		return lv == rv
	case CondNeq:
		return lv != rv
	case CondLt:
		return lv < rv
	case CondLte:
		return lv <= rv
	case CondGt:
		return lv > rv
	case CondGte:
		return lv >= rv
	default:
		return false
	}
}

// Rule is a single Horn clause over triple patterns: Head holds if every
// pattern in Body holds and every Condition is satisfied, under one
// consistent variable binding.
type Rule struct {
	Name       string
	Head       Pattern
	Body       []Pattern
	Conditions []Condition

	// DeltaPositions restricts which body indices are tried as the delta
	// position during semi-naive evaluation (spec §4.7's "optional
	// metadata naming which body positions are eligible"). Nil means all
	// positions are eligible, the spec's default.
	DeltaPositions []int
}

// Safe reports whether every variable used in the head or in a condition
// also occurs in the body, the standard Datalog range-restriction that
// keeps a rule from deriving facts containing unbound variables (spec
// §4.6/§4.7 invariant).
func (r Rule) Safe() bool {
	bodyVars := make(map[string]bool)
	for _, p := range r.Body {
		for _, s := range []Slot{p.Subj, p.Pred, p.Obj} {
			if s.isVar {
				bodyVars[s.name] = true
			}
		}
	}
	for _, s := range []Slot{r.Head.Subj, r.Head.Pred, r.Head.Obj} {
		if s.isVar && !bodyVars[s.name] {
			return false
		}
	}
	for _, c := range r.Conditions {
		for _, s := range []Slot{c.Left, c.Right} {
			if s.isVar && !bodyVars[s.name] {
				return false
			}
		}
	}
	return true
}

// EligibleDeltaPositions returns the body indices semi-naive evaluation
// should try as the delta position for r.
func (r Rule) EligibleDeltaPositions() []int {
	if r.DeltaPositions != nil {
		return r.DeltaPositions
	}
	all := make([]int, len(r.Body))
	for i := range all {
		all[i] = i
	}
	return all
}

// Validate returns an error describing why r is not usable, or nil.
func Validate(r Rule) error {
	if len(r.Body) == 0 {
		return obserr.New(obserr.KindUnsupportedTerm, "rule "+r.Name+" has an empty body")
	}
	if !r.Safe() {
		return obserr.New(obserr.KindUnsupportedTerm, "rule "+r.Name+" is not safe: a head or condition variable does not occur in body")
	}
	return nil
}

// Binding maps variable names to the IDs they're currently bound to.
type Binding map[string]uint64

// clone returns a shallow copy, so callers can extend a binding along one
// branch of the search without mutating the parent's.
func (b Binding) clone() Binding {
	c := make(Binding, len(b)+1)
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Unify attempts to match pattern against a ground fact, extending base
// with any newly-bound variables. It returns ok=false (and base unchanged)
// if the fact is inconsistent with pattern or with an existing binding.
func Unify(pattern Pattern, fact index.Triple, base Binding) (Binding, bool) {
	b := base.clone()
	if !unifySlot(pattern.Subj, fact.Subj, b) {
		return nil, false
	}
	if !unifySlot(pattern.Pred, fact.Pred, b) {
		return nil, false
	}
	if !unifySlot(pattern.Obj, fact.Obj, b) {
		return nil, false
	}
	return b, true
}

func unifySlot(s Slot, val uint64, b Binding) bool {
	if !s.isVar {
		return s.id == val
	}
	if bound, ok := b[s.name]; ok {
		return bound == val
	}
	b[s.name] = val
	return true
}

// Substitute fully grounds pattern under b. ok is false if some variable in
// pattern has no binding.
func Substitute(pattern Pattern, b Binding) (index.Triple, bool) {
	subj, ok := substSlot(pattern.Subj, b)
	if !ok {
		return index.Triple{}, false
	}
	pred, ok := substSlot(pattern.Pred, b)
	if !ok {
		return index.Triple{}, false
	}
	obj, ok := substSlot(pattern.Obj, b)
	if !ok {
		return index.Triple{}, false
	}
	return index.Triple{Subj: subj, Pred: pred, Obj: obj}, true
}

func substSlot(s Slot, b Binding) (uint64, bool) {
	if !s.isVar {
		return s.id, true
	}
	v, ok := b[s.name]
	return v, ok
}

// BoundSlots returns the (subj, pred, obj) ID triple to pass to
// index.Store.Match for pattern under the current binding: bound
// positions (constants, or variables already in b) resolve to their ID;
// free positions are 0 (unbound), per index.Store.Match's convention.
func BoundSlots(pattern Pattern, b Binding) (subj, pred, obj uint64) {
	return boundOf(pattern.Subj, b), boundOf(pattern.Pred, b), boundOf(pattern.Obj, b)
}

func boundOf(s Slot, b Binding) uint64 {
	if !s.isVar {
		return s.id
	}
	return b[s.name] // 0 if absent, meaning "unbound" to Match
}
