// Copyright 2025 The Predtest Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package predtest proves implication and refutation relationships between
// boolean predicate trees built from comparison operators. A query planner
// uses the proofs to discard filters made redundant by a scan's restriction
// clauses, to skip checking partial-index predicates, and to detect
// contradictory constraint sets.
//
// The prover is sound but deliberately incomplete: a true return is a
// guarantee that holds for every input assignment, while a false return
// only means no proof was found. All operator knowledge comes from the
// host-supplied cat.Catalog.
package predtest

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/predicata/predtest/pkg/cat"
	"github.com/predicata/predtest/pkg/pred"
	"go.uber.org/zap"
)

// MaxArrayExpandSize is the largest number of array elements the prover
// will break an array comparison into. Oversize arrays are treated as
// opaque atoms instead; truncating the expansion would be unsound, so the
// degradation is total.
const MaxArrayExpandSize = 100

const defaultMaxDepth = 1000

// defaultCancelCheckInterval is how many atom-level proof steps run between
// polls of the context.
const defaultCancelCheckInterval = 64

// A Prover decides implication and refutation between predicate trees. It
// is safe for concurrent use; the only shared state is the operator proof
// cache, which catalog invalidation callbacks may clear at any time.
type Prover struct {
	catalog     cat.Catalog
	logger      *zap.Logger
	equal       func(a, b pred.Expr) bool
	maxDepth    int
	cancelEvery uint32
	cache       proofCache
}

// Option configures a Prover.
type Option func(*Prover)

// WithLogger sets the logger used for debug-level proof diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Prover) { p.logger = l }
}

// WithEqualFn substitutes the host's own structural equality check for
// pred.Equal.
func WithEqualFn(fn func(a, b pred.Expr) bool) Option {
	return func(p *Prover) { p.equal = fn }
}

// WithMaxDepth bounds the expression nesting depth a proof will recurse
// into. Deeper trees fail with an error rather than overflowing the stack.
func WithMaxDepth(n int) Option {
	return func(p *Prover) { p.maxDepth = n }
}

// WithCancelCheckInterval sets how many atom-level proof steps run between
// context polls. Values below one poll on every step.
func WithCancelCheckInterval(n int) Option {
	return func(p *Prover) {
		if n < 1 {
			n = 1
		}
		p.cancelEvery = uint32(n)
	}
}

// New returns a Prover over the given catalog. The prover subscribes to the
// catalog's family-change notifications to keep its proof cache from going
// stale.
func New(catalog cat.Catalog, opts ...Option) *Prover {
	p := &Prover{
		catalog:     catalog,
		logger:      zap.NewNop(),
		equal:       pred.Equal,
		maxDepth:    defaultMaxDepth,
		cancelEvery: defaultCancelCheckInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache.init()
	catalog.OnFamilyChange(p.cache.invalidateAll)
	return p
}

// PredicateImpliedBy reports whether the restriction clauses prove the
// predicate. Both arguments are implicit AND lists. In strong mode, truth
// of every clause guarantees truth of every predicate element; in weak
// mode, non-falsity guarantees non-falsity.
//
// An empty predicate is vacuously implied; an empty clause list proves
// nothing. The caller must ensure the predicate contains only immutable
// operators; clause operators are re-checked during the proof.
//
// The error return is reserved for cancellation, the depth guard, and
// malformed trees; "no proof found" is (false, nil).
func (p *Prover) PredicateImpliedBy(
	ctx context.Context, predicate, clauses []pred.Expr, weak bool,
) (bool, error) {
	if len(predicate) == 0 {
		return true, nil
	}
	if len(clauses) == 0 {
		return false, nil
	}
	r := proofRun{p: p, ctx: ctx}
	return r.impliedBy(listToExpr(clauses), listToExpr(predicate), weak)
}

// PredicateRefutedBy reports whether the restriction clauses disprove the
// predicate. In strong mode, truth of the clauses guarantees the predicate
// is false; in weak mode, that it is not true.
//
// Empty lists on either side prove nothing.
func (p *Prover) PredicateRefutedBy(
	ctx context.Context, predicate, clauses []pred.Expr, weak bool,
) (bool, error) {
	if len(predicate) == 0 || len(clauses) == 0 {
		return false, nil
	}
	r := proofRun{p: p, ctx: ctx}
	return r.refutedBy(listToExpr(clauses), listToExpr(predicate), weak)
}

// listToExpr unwraps a one-element list to its sole member; longer lists
// become an explicit conjunction.
func listToExpr(list []pred.Expr) pred.Expr {
	if len(list) == 1 {
		return list[0]
	}
	return &pred.AndExpr{Children: list}
}

// proofRun is the scratch state of one proof call.
type proofRun struct {
	p           *Prover
	ctx         context.Context
	depth       int
	cancelCount uint32
}

func (r *proofRun) enter() error {
	r.depth++
	if r.depth > r.p.maxDepth {
		return errors.Newf("expression nesting exceeds the proof depth limit (%d)", r.p.maxDepth)
	}
	return nil
}

func (r *proofRun) exit() { r.depth-- }

// checkCancel polls the context at atom-level proof steps. The poll is
// amortized; everything between polls is short straight-line work.
func (r *proofRun) checkCancel() error {
	r.cancelCount++
	if r.cancelCount%r.p.cancelEvery == 0 {
		return r.ctx.Err()
	}
	return nil
}

// predClass partitions expressions into conjunctions, disjunctions, and
// atoms for the purposes of the proof rules.
type predClass uint8

const (
	classAtom predClass = iota
	classAnd
	classOr
)

// classify maps an expression to its proof class. An array comparison over
// a small known set of elements acts as an OR (ANY) or AND (ALL) of
// per-element comparisons; everything that is not visibly a conjunction or
// disjunction is an atom.
func classify(e pred.Expr) predClass {
	switch t := e.(type) {
	case *pred.AndExpr:
		return classAnd
	case *pred.OrExpr:
		return classOr
	case *pred.ScalarArrayOp:
		switch arr := t.Array.(type) {
		case *pred.ConstExpr:
			if arr.Null {
				return classAtom
			}
			a, ok := arr.Value.(*pred.DArray)
			if !ok || len(a.Elems) > MaxArrayExpandSize {
				return classAtom
			}
		case *pred.ArrayCtor:
			if arr.MultiDim || len(arr.Elems) > MaxArrayExpandSize {
				return classAtom
			}
		default:
			return classAtom
		}
		if t.UseOr {
			return classOr
		}
		return classAnd
	}
	return classAtom
}

// childIter yields the children of an AND/OR-classified expression. For
// array comparisons it synthesizes one binary comparison per element,
// binding the scalar on the left; a fresh node per element keeps nested
// iterations independent and leaves cleanup to the garbage collector.
type childIter struct {
	children []pred.Expr
	saop     *pred.ScalarArrayOp
	arrConst *pred.ConstExpr
	arr      *pred.DArray
	i        int
}

func newChildIter(e pred.Expr) (childIter, error) {
	switch t := e.(type) {
	case *pred.AndExpr:
		if len(t.Children) == 0 {
			return childIter{}, errors.AssertionFailedf("AND expression with no children")
		}
		return childIter{children: t.Children}, nil
	case *pred.OrExpr:
		if len(t.Children) == 0 {
			return childIter{}, errors.AssertionFailedf("OR expression with no children")
		}
		return childIter{children: t.Children}, nil
	case *pred.ScalarArrayOp:
		switch arr := t.Array.(type) {
		case *pred.ConstExpr:
			a, ok := arr.Value.(*pred.DArray)
			if !ok {
				return childIter{}, errors.AssertionFailedf(
					"array comparison over non-array constant %s", arr.Value.Type())
			}
			return childIter{saop: t, arrConst: arr, arr: a}, nil
		case *pred.ArrayCtor:
			return childIter{saop: t, children: arr.Elems}, nil
		}
	}
	return childIter{}, errors.AssertionFailedf("cannot iterate children of %T", e)
}

func (it *childIter) next() (pred.Expr, bool) {
	if it.saop == nil {
		if it.i >= len(it.children) {
			return nil, false
		}
		c := it.children[it.i]
		it.i++
		return c, true
	}
	if it.arr != nil {
		if it.i >= len(it.arr.Elems) {
			return nil, false
		}
		elem := it.arr.Elems[it.i]
		it.i++
		return &pred.OpExpr{
			Op:         it.saop.Op,
			Collation:  it.saop.Collation,
			BoolResult: true,
			Args: []pred.Expr{
				it.saop.Scalar,
				&pred.ConstExpr{
					Typ:       it.arr.ElemType,
					Collation: it.arrConst.Collation,
					Value:     elem,
					Null:      elem == pred.DNull,
				},
			},
		}, true
	}
	if it.i >= len(it.children) {
		return nil, false
	}
	elem := it.children[it.i]
	it.i++
	return &pred.OpExpr{
		Op:         it.saop.Op,
		Collation:  it.saop.Collation,
		BoolResult: true,
		Args:       []pred.Expr{it.saop.Scalar, elem},
	}, true
}

// impliedBy is the recursive implication driver. In strong mode it proves
// "clause true implies predicate true"; in weak mode, "clause not false
// implies predicate not false".
func (r *proofRun) impliedBy(clause, predicate pred.Expr, weak bool) (bool, error) {
	if err := r.enter(); err != nil {
		return false, err
	}
	defer r.exit()

	switch classify(clause) {
	case classAnd:
		switch classify(predicate) {
		case classAnd:
			// AND implies AND when every predicate conjunct is implied by
			// the whole clause.
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.impliedBy(clause, pe, weak)
				if err != nil || !proved {
					return false, err
				}
			}
			return true, nil
		case classOr:
			// AND implies OR when it implies some disjunct. Handles
			// (x AND y) => ((x AND y) OR z).
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.impliedBy(clause, pe, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			// Also when some conjunct implies the whole OR. Handles
			// ((x OR y) AND z) => (x OR y).
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.impliedBy(ce, predicate, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		case classAtom:
			proved, err := r.impliesViaRefutation(clause, predicate, weak)
			if err != nil {
				return false, err
			}
			if proved {
				return true, nil
			}
			// AND implies an atom when some conjunct does.
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.impliedBy(ce, predicate, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		}
	case classOr:
		switch classify(predicate) {
		case classOr:
			// OR implies OR when every disjunct of the clause implies some
			// disjunct of the predicate.
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				found := false
				pit, err := newChildIter(predicate)
				if err != nil {
					return false, err
				}
				for pe, ok := pit.next(); ok; pe, ok = pit.next() {
					proved, err := r.impliedBy(ce, pe, weak)
					if err != nil {
						return false, err
					}
					if proved {
						found = true
						break
					}
				}
				if !found {
					return false, nil
				}
			}
			return true, nil
		case classAnd, classAtom:
			proved, err := r.impliesViaRefutation(clause, predicate, weak)
			if err != nil {
				return false, err
			}
			if proved {
				return true, nil
			}
			// OR implies the predicate only when every disjunct does.
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.impliedBy(ce, predicate, weak)
				if err != nil || !proved {
					return false, err
				}
			}
			return true, nil
		}
	case classAtom:
		switch classify(predicate) {
		case classAnd:
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.impliedBy(clause, pe, weak)
				if err != nil || !proved {
					return false, err
				}
			}
			return true, nil
		case classOr:
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.impliedBy(clause, pe, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		case classAtom:
			proved, err := r.impliesViaRefutation(clause, predicate, weak)
			if err != nil {
				return false, err
			}
			if proved {
				return true, nil
			}
			return r.atomImplies(clause, predicate, weak)
		}
	}
	return false, errors.AssertionFailedf("impossible expression classification")
}

// impliesViaRefutation proves a strong negation predicate NOT p (or
// p IS FALSE) by strongly refuting p: the refutation rules out both a
// true and a null result for p, so the negation is certainly true. The
// rule is sound only for strong implication; a weak proof would also
// have to cover a null clause, about which the refutation says nothing.
func (r *proofRun) impliesViaRefutation(clause, predicate pred.Expr, weak bool) (bool, error) {
	if weak {
		return false, nil
	}
	notArg := extractStrongNotArg(predicate)
	if notArg == nil {
		return false, nil
	}
	return r.refutedBy(clause, notArg, false)
}

// refutedBy is the recursive refutation driver, the dual of impliedBy. In
// strong mode it proves "clause true implies predicate false"; in weak
// mode, "clause true implies predicate not true".
func (r *proofRun) refutedBy(clause, predicate pred.Expr, weak bool) (bool, error) {
	if err := r.enter(); err != nil {
		return false, err
	}
	defer r.exit()

	switch classify(clause) {
	case classAnd:
		switch classify(predicate) {
		case classAnd:
			// AND refutes AND when it refutes some conjunct of the
			// predicate.
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.refutedBy(clause, pe, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			// Also when some clause conjunct refutes the predicate.
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.refutedBy(ce, predicate, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		case classOr:
			// AND refutes OR when it refutes every disjunct.
			all := true
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.refutedBy(clause, pe, weak)
				if err != nil {
					return false, err
				}
				if !proved {
					all = false
					break
				}
			}
			if all {
				return true, nil
			}
			// Also when some clause conjunct refutes the whole OR.
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.refutedBy(ce, predicate, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		case classAtom:
			// A negation-like predicate is refuted by strongly implying
			// its argument: a strong proof rules out both a true and a
			// null result, which satisfies either refutation mode.
			if notArg := extractNotArg(predicate); notArg != nil {
				proved, err := r.impliedBy(clause, notArg, false)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.refutedBy(ce, predicate, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		}
	case classOr:
		switch classify(predicate) {
		case classOr:
			// OR refutes OR when it refutes every disjunct of the
			// predicate; refuting a single disjunct recursively demands
			// every clause disjunct refute it.
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.refutedBy(clause, pe, weak)
				if err != nil || !proved {
					return false, err
				}
			}
			return true, nil
		case classAnd:
			// OR refutes AND when every clause disjunct refutes it...
			all := true
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.refutedBy(ce, predicate, weak)
				if err != nil {
					return false, err
				}
				if !proved {
					all = false
					break
				}
			}
			if all {
				return true, nil
			}
			// ...or when it refutes some conjunct of the predicate.
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.refutedBy(clause, pe, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		case classAtom:
			if notArg := extractNotArg(predicate); notArg != nil {
				proved, err := r.impliedBy(clause, notArg, false)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			// OR refutes an atom only when every disjunct does.
			cit, err := newChildIter(clause)
			if err != nil {
				return false, err
			}
			for ce, ok := cit.next(); ok; ce, ok = cit.next() {
				proved, err := r.refutedBy(ce, predicate, weak)
				if err != nil || !proved {
					return false, err
				}
			}
			return true, nil
		}
	case classAtom:
		// A strong negation clause NOT c (or c IS FALSE) refutes the
		// predicate whenever the predicate implies c with the mode
		// flipped: from c false we need the predicate to be neither true
		// nor, in strong mode, null.
		if notArg := extractStrongNotArg(clause); notArg != nil {
			proved, err := r.impliedBy(predicate, notArg, !weak)
			if err != nil {
				return false, err
			}
			if proved {
				return true, nil
			}
		}
		switch classify(predicate) {
		case classAnd:
			// An atom refutes AND when it refutes some conjunct.
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.refutedBy(clause, pe, weak)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return false, nil
		case classOr:
			// An atom refutes OR only when it refutes every disjunct.
			pit, err := newChildIter(predicate)
			if err != nil {
				return false, err
			}
			for pe, ok := pit.next(); ok; pe, ok = pit.next() {
				proved, err := r.refutedBy(clause, pe, weak)
				if err != nil || !proved {
					return false, err
				}
			}
			return true, nil
		case classAtom:
			if notArg := extractNotArg(predicate); notArg != nil {
				proved, err := r.impliedBy(clause, notArg, false)
				if err != nil {
					return false, err
				}
				if proved {
					return true, nil
				}
			}
			return r.atomRefutes(clause, predicate, weak)
		}
	}
	return false, errors.AssertionFailedf("impossible expression classification")
}

// extractNotArg unwraps a negation-like predicate: NOT p, p IS NOT TRUE,
// p IS FALSE, or p IS UNKNOWN. Each of these is false whenever p is true.
func extractNotArg(e pred.Expr) pred.Expr {
	switch t := e.(type) {
	case *pred.NotExpr:
		return t.Input
	case *pred.BoolTest:
		switch t.Tag {
		case pred.IsNotTrue, pred.IsFalse, pred.IsUnknown:
			return t.Input
		}
	}
	return nil
}

// extractStrongNotArg unwraps a clause whose truth forces its argument
// false: NOT c or c IS FALSE.
func extractStrongNotArg(e pred.Expr) pred.Expr {
	switch t := e.(type) {
	case *pred.NotExpr:
		return t.Input
	case *pred.BoolTest:
		if t.Tag == pred.IsFalse {
			return t.Input
		}
	}
	return nil
}
