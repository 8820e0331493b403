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

package predtest

import "github.com/predicata/predtest/pkg/pred"

// atomImplies is the implication base case over two atoms.
func (r *proofRun) atomImplies(clause, predicate pred.Expr, weak bool) (bool, error) {
	if err := r.checkCancel(); err != nil {
		return false, err
	}

	// Identical expressions imply each other under either mode.
	if r.p.equal(predicate, clause) {
		return true, nil
	}

	// "x = TRUE" is the same boolean as x, and "x = FALSE" the same as
	// NOT x, nulls included; retry with the reduced clause.
	if reduced := r.reduceBoolConstEq(clause); reduced != nil {
		if r.p.equal(predicate, reduced) {
			return true, nil
		}
		clause = reduced
	}

	// A clause strict in x proves "x IS NOT NULL", but only in strong
	// mode: a weak premise admits a null clause, which leaves x possibly
	// null.
	if nt, ok := predicate.(*pred.NullTest); ok &&
		nt.Tag == pred.IsNotNull && !nt.RowArg && !weak {
		strict, err := r.clauseIsStrictFor(clause, nt.Input, true)
		if err != nil {
			return false, err
		}
		if strict {
			return true, nil
		}
	}

	if po, co, ok := binaryOpPair(predicate, clause); ok {
		return r.operatorProof(po, co, false /* refute */, weak)
	}
	return false, nil
}

// atomRefutes is the refutation base case over two atoms. Equal atoms never
// refute each other; all the rules below involve nullness or operator
// semantics.
func (r *proofRun) atomRefutes(clause, predicate pred.Expr, weak bool) (bool, error) {
	if err := r.checkCancel(); err != nil {
		return false, err
	}

	if reduced := r.reduceBoolConstEq(clause); reduced != nil {
		clause = reduced
	}

	// Clauses of the form "x IS NULL" refute only through these rules.
	// Row-typed null tests have field-wise semantics and prove nothing.
	if ct, ok := clause.(*pred.NullTest); ok && ct.Tag == pred.IsNull && !ct.RowArg {
		arg := ct.Input
		// A true clause means x is null, making any predicate strict in x
		// null-or-false: not true, which is all weak refutation needs.
		if weak {
			strict, err := r.clauseIsStrictFor(predicate, arg, true)
			if err != nil {
				return false, err
			}
			if strict {
				return true, nil
			}
		}
		if pt, ok := predicate.(*pred.NullTest); ok &&
			pt.Tag == pred.IsNotNull && !pt.RowArg && r.p.equal(pt.Input, arg) {
			return true, nil
		}
		return false, nil
	}

	// Predicates of the form "x IS NULL" are refuted by any clause that
	// forces x non-null.
	if pt, ok := predicate.(*pred.NullTest); ok && pt.Tag == pred.IsNull && !pt.RowArg {
		arg := pt.Input
		if ct, ok := clause.(*pred.NullTest); ok &&
			ct.Tag == pred.IsNotNull && !ct.RowArg && r.p.equal(ct.Input, arg) {
			return true, nil
		}
		// A true clause strict in x rules out x being null, so the
		// predicate is outright false under either mode.
		strict, err := r.clauseIsStrictFor(clause, arg, true)
		if err != nil {
			return false, err
		}
		if strict {
			return true, nil
		}
		return false, nil
	}

	if po, co, ok := binaryOpPair(predicate, clause); ok {
		return r.operatorProof(po, co, true /* refute */, weak)
	}
	return false, nil
}

// reduceBoolConstEq rewrites a boolean-equality comparison against a
// constant: "x = TRUE" becomes x and "x = FALSE" becomes NOT x. The
// rewrite is an equivalence under three-valued semantics, so the reduced
// form can stand in for the clause everywhere. Returns nil when the clause
// has no such shape.
func (r *proofRun) reduceBoolConstEq(clause pred.Expr) pred.Expr {
	op, ok := clause.(*pred.OpExpr)
	if !ok || len(op.Args) != 2 || !r.p.catalog.IsBooleanEquality(op.Op) {
		return nil
	}
	c, ok := op.Args[1].(*pred.ConstExpr)
	if !ok || c.Null {
		return nil
	}
	b, ok := c.Value.(pred.DBool)
	if !ok {
		return nil
	}
	if bool(b) {
		return op.Args[0]
	}
	return &pred.NotExpr{Input: op.Args[0]}
}

// binaryOpPair extracts the operator expressions from a predicate/clause
// pair when both are boolean binary operator calls.
func binaryOpPair(predicate, clause pred.Expr) (po, co *pred.OpExpr, ok bool) {
	po, ok1 := predicate.(*pred.OpExpr)
	co, ok2 := clause.(*pred.OpExpr)
	if !ok1 || !ok2 || len(po.Args) != 2 || len(co.Args) != 2 ||
		!po.BoolResult || !co.BoolResult {
		return nil, nil, false
	}
	return po, co, true
}
