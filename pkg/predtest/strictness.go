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

// clauseIsStrictFor reports whether the clause is forced to yield NULL
// (or, when allowFalse, NULL or false) whenever subexpr yields NULL. The
// subexpression is expected to appear somewhere within the clause; if it
// does not, the answer is a harmless "unknown".
//
// The allowFalse flag is only honored at the top level of the analysis;
// every recursive step below an operator or function demands pure
// null-for-null strictness, because a false value inside a strict operator
// does not propagate the way a null does.
func (r *proofRun) clauseIsStrictFor(clause, subexpr pred.Expr, allowFalse bool) (bool, error) {
	if err := r.enter(); err != nil {
		return false, err
	}
	defer r.exit()

	// Pure type relabelings preserve value and nullness on both sides.
	for {
		if rl, ok := clause.(*pred.RelabelExpr); ok {
			clause = rl.Input
			continue
		}
		break
	}
	for {
		if rl, ok := subexpr.(*pred.RelabelExpr); ok {
			subexpr = rl.Input
			continue
		}
		break
	}

	if r.p.equal(clause, subexpr) {
		return true, nil
	}

	switch t := clause.(type) {
	case *pred.OpExpr:
		if !r.p.catalog.OpIsStrict(t.Op) {
			return false, nil
		}
		for _, arg := range t.Args {
			strict, err := r.clauseIsStrictFor(arg, subexpr, false)
			if err != nil {
				return false, err
			}
			if strict {
				return true, nil
			}
		}
	case *pred.FuncExpr:
		if !r.p.catalog.FuncIsStrict(t.Fn) {
			return false, nil
		}
		for _, arg := range t.Args {
			strict, err := r.clauseIsStrictFor(arg, subexpr, false)
			if err != nil {
				return false, err
			}
			if strict {
				return true, nil
			}
		}
	case *pred.CoerceExpr:
		// Every coercion wrapper is strict in its single input.
		return r.clauseIsStrictFor(t.Input, subexpr, false)
	case *pred.ScalarArrayOp:
		strict, err := r.clauseIsStrictFor(t.Scalar, subexpr, false)
		if err != nil {
			return false, err
		}
		if strict && r.p.catalog.OpIsStrict(t.Op) {
			// A null scalar under a strict operator nulls every element
			// comparison, so the whole call is null unless the array is
			// empty: an empty ANY yields false and an empty ALL yields
			// true.
			if allowFalse && t.UseOr {
				return true, nil
			}
			switch arr := t.Array.(type) {
			case *pred.ConstExpr:
				if arr.Null {
					// A null array yields null outright.
					return true, nil
				}
				if a, ok := arr.Value.(*pred.DArray); ok && len(a.Elems) > 0 {
					return true, nil
				}
			case *pred.ArrayCtor:
				if !arr.MultiDim && len(arr.Elems) > 0 {
					return true, nil
				}
			}
		}
		// Whatever the scalar does, the call is null whenever the array
		// side is null.
		return r.clauseIsStrictFor(t.Array, subexpr, false)
	case *pred.ConstExpr:
		// A null constant is null no matter what subexpr does.
		return t.Null, nil
	}
	return false, nil
}
