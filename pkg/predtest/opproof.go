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

import (
	"github.com/predicata/predtest/pkg/cat"
	"github.com/predicata/predtest/pkg/pred"
	"go.uber.org/zap"
)

// operatorProof tries to prove that the predicate operator call is implied
// (or refuted) by the clause operator call. It works when the two calls
// share subexpressions on both sides, possibly commuted, or on one side
// with bare constants on the other.
func (r *proofRun) operatorProof(
	predicate, clause *pred.OpExpr, refute, weak bool,
) (bool, error) {
	// Mismatched collations could order the operands differently.
	if predicate.Collation != clause.Collation {
		return false, nil
	}

	eq := r.p.equal
	ctl := r.p.catalog
	pLeft, pRight := predicate.Args[0], predicate.Args[1]
	cLeft, cRight := clause.Args[0], clause.Args[1]
	pOp, cOp := predicate.Op, clause.Op

	// Identify which subexpressions match, commuting operators as needed
	// so that any constants end up on the right of their operator.
	var pConstExpr, cConstExpr pred.Expr
	switch {
	case eq(pLeft, cLeft):
		if eq(pRight, cRight) {
			// x pOp y vs x cOp y
			return r.sameSubexprsProof(pOp, cOp, refute)
		}
		pConstExpr, cConstExpr = pRight, cRight
	case eq(pRight, cRight):
		// k1 pOp x vs k2 cOp x: commute both sides.
		var ok bool
		if pOp, ok = ctl.Commutator(pOp); !ok {
			return false, nil
		}
		if cOp, ok = ctl.Commutator(cOp); !ok {
			return false, nil
		}
		pConstExpr, cConstExpr = pLeft, cLeft
	case eq(pLeft, cRight):
		if eq(pRight, cLeft) {
			// x pOp y vs y cOp x: commute the predicate.
			var ok bool
			if pOp, ok = ctl.Commutator(pOp); !ok {
				return false, nil
			}
			return r.sameSubexprsProof(pOp, cOp, refute)
		}
		// x pOp k1 vs k2 cOp x: commute the clause.
		var ok bool
		if cOp, ok = ctl.Commutator(cOp); !ok {
			return false, nil
		}
		pConstExpr, cConstExpr = pRight, cLeft
	case eq(pRight, cLeft):
		// k1 pOp x vs x cOp k2: commute the predicate.
		var ok bool
		if pOp, ok = ctl.Commutator(pOp); !ok {
			return false, nil
		}
		pConstExpr, cConstExpr = pLeft, cRight
	default:
		return false, nil
	}

	pConst, ok1 := pConstExpr.(*pred.ConstExpr)
	cConst, ok2 := cConstExpr.(*pred.ConstExpr)
	if !ok1 || !ok2 {
		return false, nil
	}

	if cConst.Null {
		// A null constant under a strict operator makes the clause yield
		// null. That satisfies strong implication and both refutation
		// modes vacuously; weak implication additionally needs the
		// predicate to be null as well.
		if !ctl.OpIsStrict(cOp) {
			return false, nil
		}
		if !refute && weak {
			return pConst.Null && ctl.OpIsStrict(pOp), nil
		}
		return true, nil
	}
	if pConst.Null {
		// A guaranteed-null predicate is non-false and non-true, which
		// passes exactly the weak goals.
		if !ctl.OpIsStrict(pOp) {
			return false, nil
		}
		return weak, nil
	}

	testOp, negate, ok := r.p.cache.lookup(ctl, pOp, cOp, refute).testOperator()
	if !ok {
		return false, nil
	}
	result, err := ctl.EvalBinaryOp(testOp, predicate.Collation, pConst.Value, cConst.Value)
	if err != nil {
		r.p.logger.Debug("test operator evaluation failed, treating proof as unknown",
			zap.Uint32("op", uint32(testOp)), zap.Error(err))
		return false, nil
	}
	b, ok := result.(pred.DBool)
	if !ok {
		// A null (or otherwise non-boolean) result proves nothing.
		r.p.logger.Debug("test operator returned a non-boolean result",
			zap.Uint32("op", uint32(testOp)), zap.String("result", result.Type()))
		return false, nil
	}
	if negate {
		b = !b
	}
	return bool(b), nil
}

// sameSubexprsProof decides implication or refutation between two operator
// calls over identical (possibly commuted) argument pairs.
func (r *proofRun) sameSubexprsProof(predOp, clauseOp pred.OpID, refute bool) (bool, error) {
	ctl := r.p.catalog
	// The predicate's operators are immutable by the caller's contract;
	// the clause's must be re-checked, since a mutable operator could
	// behave differently at execution time than the proof assumes.
	if !ctl.OpIsImmutable(clauseOp) {
		return false, nil
	}
	// Identical operators imply; an operator and its negator refute.
	if !refute && predOp == clauseOp {
		return true, nil
	}
	if refute {
		if neg, ok := ctl.Negator(predOp); ok && neg == clauseOp {
			return true, nil
		}
	}
	return r.p.cache.lookup(ctl, predOp, clauseOp, refute).sameSubexprs, nil
}

// cmpNone marks table entries where the comparison codes alone determine
// nothing.
const cmpNone = cat.CmpType(0xff)

// The four proof tables, indexed [clause comparison][predicate comparison].
//
// sameSubexprsImplies and sameSubexprsRefutes answer for operator pairs
// over identical subexpressions: "x < y" implies "x <= y", refutes
// "x >= y", and so on.
var sameSubexprsImplies = [cat.NumCmpTypes][cat.NumCmpTypes]bool{
	/* LT */ {true, true, false, false, false, true},
	/* LE */ {false, true, false, false, false, false},
	/* EQ */ {false, true, true, true, false, false},
	/* GE */ {false, false, false, true, false, false},
	/* GT */ {false, false, false, true, true, true},
	/* NE */ {false, false, false, false, false, true},
}

var sameSubexprsRefutes = [cat.NumCmpTypes][cat.NumCmpTypes]bool{
	/* LT */ {false, false, true, true, true, false},
	/* LE */ {false, false, false, false, true, false},
	/* EQ */ {true, false, false, false, true, true},
	/* GE */ {true, false, false, false, false, false},
	/* GT */ {true, true, true, false, false, false},
	/* NE */ {false, false, true, false, false, false},
}

// testCmpImplies and testCmpRefutes choose the comparison to evaluate over
// the two constants, applied as "predConst cmp clauseConst": knowing
// "x > 10" proves "x > 5" because 5 <= 10.
var testCmpImplies = [cat.NumCmpTypes][cat.NumCmpTypes]cat.CmpType{
	/* LT */ {cat.Ge, cat.Ge, cmpNone, cmpNone, cmpNone, cat.Ge},
	/* LE */ {cat.Gt, cat.Ge, cmpNone, cmpNone, cmpNone, cat.Gt},
	/* EQ */ {cat.Gt, cat.Ge, cat.Eq, cat.Le, cat.Lt, cat.Ne},
	/* GE */ {cmpNone, cmpNone, cmpNone, cat.Le, cat.Lt, cat.Lt},
	/* GT */ {cmpNone, cmpNone, cmpNone, cat.Le, cat.Le, cat.Le},
	/* NE */ {cmpNone, cmpNone, cmpNone, cmpNone, cmpNone, cat.Eq},
}

var testCmpRefutes = [cat.NumCmpTypes][cat.NumCmpTypes]cat.CmpType{
	/* LT */ {cmpNone, cmpNone, cat.Ge, cat.Ge, cat.Ge, cmpNone},
	/* LE */ {cmpNone, cmpNone, cat.Gt, cat.Gt, cat.Ge, cmpNone},
	/* EQ */ {cat.Le, cat.Lt, cat.Ne, cat.Gt, cat.Ge, cat.Eq},
	/* GE */ {cat.Le, cat.Lt, cat.Lt, cmpNone, cmpNone, cmpNone},
	/* GT */ {cat.Le, cat.Le, cat.Le, cmpNone, cmpNone, cmpNone},
	/* NE */ {cmpNone, cmpNone, cat.Eq, cmpNone, cmpNone, cmpNone},
}

// computeProofData derives one direction's proof data for an operator pair
// from the catalog's comparison families.
func computeProofData(ctl cat.Catalog, predOp, clauseOp pred.OpID, refute bool) proofData {
	var d proofData
	clauseEntries := ctl.FamilyEntries(clauseOp)
	if len(clauseEntries) == 0 {
		return d
	}
	predEntries := ctl.FamilyEntries(predOp)
	for _, ce := range clauseEntries {
		for _, pe := range predEntries {
			// The two operators must sit in the same family and agree on
			// the type of the shared subexpression.
			if pe.Family != ce.Family || pe.LeftType != ce.LeftType {
				continue
			}
			var sameBit bool
			var testCmp cat.CmpType
			if refute {
				sameBit = sameSubexprsRefutes[ce.Cmp][pe.Cmp]
				testCmp = testCmpRefutes[ce.Cmp][pe.Cmp]
			} else {
				sameBit = sameSubexprsImplies[ce.Cmp][pe.Cmp]
				testCmp = testCmpImplies[ce.Cmp][pe.Cmp]
			}
			if sameBit {
				d.sameSubexprs = true
			}
			if testCmp == cmpNone {
				continue
			}
			negate := false
			if testCmp == cat.Ne {
				// Families define NE as negated EQ; evaluate the EQ
				// member and invert.
				testCmp = cat.Eq
				negate = true
			}
			op, ok := ctl.FamilyMember(ce.Family, pe.RightType, ce.RightType, testCmp)
			if !ok || !ctl.OpIsImmutable(op) {
				// Some other family might still supply a usable operator.
				continue
			}
			d.testOp, d.negate = op, negate
			return d
		}
	}
	return d
}
