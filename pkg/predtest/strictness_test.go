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

package predtest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicata/predtest/pkg/pred"
	"github.com/predicata/predtest/pkg/predtest"
	"github.com/predicata/predtest/pkg/predtest/testcat"
)

// The strictness analysis is exercised through the proofs that depend on
// it: "clause strict in x" powers both the strong implication of
// "x IS NOT NULL" and the weak refutation by "x IS NULL".

func intVar(name string) *pred.VarExpr {
	return &pred.VarExpr{Name: name, Typ: testcat.TInt}
}

func intConst(n int64) *pred.ConstExpr {
	return &pred.ConstExpr{Typ: testcat.TInt, Value: pred.DInt(n)}
}

func gtZero(arg pred.Expr) pred.Expr {
	return &pred.OpExpr{
		Op:         testcat.IntGt,
		Args:       []pred.Expr{arg, intConst(0)},
		BoolResult: true,
	}
}

func isNotNull(arg pred.Expr) pred.Expr {
	return &pred.NullTest{Input: arg, Tag: pred.IsNotNull}
}

func isNull(arg pred.Expr) pred.Expr {
	return &pred.NullTest{Input: arg, Tag: pred.IsNull}
}

func checkImplied(
	t *testing.T, p *predtest.Prover, predicate, clause pred.Expr, weak, want bool,
) {
	t.Helper()
	got, err := p.PredicateImpliedBy(
		context.Background(), []pred.Expr{predicate}, []pred.Expr{clause}, weak)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func checkRefuted(
	t *testing.T, p *predtest.Prover, predicate, clause pred.Expr, weak, want bool,
) {
	t.Helper()
	got, err := p.PredicateRefutedBy(
		context.Background(), []pred.Expr{predicate}, []pred.Expr{clause}, weak)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStrictnessThroughCoercions(t *testing.T) {
	p := predtest.New(testcat.New())
	x := intVar("x")

	for _, kind := range []pred.CoerceKind{
		pred.CoerceViaIO, pred.CoerceArray, pred.CoerceRow, pred.CoerceDomain,
	} {
		clause := gtZero(&pred.CoerceExpr{Kind: kind, Input: x, Typ: testcat.TInt})
		checkImplied(t, p, isNotNull(x), clause, false, true)
		checkRefuted(t, p, clause, isNull(x), true, true)
	}
}

func TestStrictnessThroughRelabel(t *testing.T) {
	p := predtest.New(testcat.New())
	x := intVar("x")
	relabeled := &pred.RelabelExpr{Input: x, Typ: testcat.TInt}

	// Relabelings are transparent on both sides of the match.
	checkImplied(t, p, isNotNull(x), gtZero(relabeled), false, true)
	checkImplied(t, p, isNotNull(relabeled), gtZero(x), false, true)
	checkRefuted(t, p, gtZero(relabeled), isNull(x), true, true)
}

func TestStrictnessNonStrictOperator(t *testing.T) {
	tc := testcat.New()
	tc.MarkNonStrict(testcat.IntGt)
	p := predtest.New(tc)
	x := intVar("x")

	checkImplied(t, p, isNotNull(x), gtZero(x), false, false)
	checkRefuted(t, p, gtZero(x), isNull(x), true, false)
}

// TestStrictnessOpaqueArray covers the array-comparison strictness rules
// on atoms that are too opaque to expand: the array side is a plain
// variable, so only the ANY/ALL shape of the call decides.
func TestStrictnessOpaqueArray(t *testing.T) {
	p := predtest.New(testcat.New())
	x := intVar("x")
	arr := &pred.VarExpr{Name: "arr", Typ: testcat.TIntArray}

	anyCmp := &pred.ScalarArrayOp{
		Op: testcat.IntEq, UseOr: true, Scalar: x, Array: arr,
	}
	allCmp := &pred.ScalarArrayOp{
		Op: testcat.IntEq, UseOr: false, Scalar: x, Array: arr,
	}

	// A null scalar nulls every element comparison. ANY then yields null
	// or false (empty array), good enough for the null-or-false goal of
	// the weak refutation; ALL could yield true over an empty array.
	checkRefuted(t, p, anyCmp, isNull(x), true, true)
	checkRefuted(t, p, allCmp, isNull(x), true, false)

	// The implication of IS NOT NULL tolerates null-or-false just the
	// same, so ANY proves it and opaque ALL does not.
	checkImplied(t, p, isNotNull(x), anyCmp, false, true)
	checkImplied(t, p, isNotNull(x), allCmp, false, false)

	// The comparison is strict in the array side regardless of shape.
	checkImplied(t, p, isNotNull(arr), anyCmp, false, true)
	checkImplied(t, p, isNotNull(arr), allCmp, false, true)
}

// TestStrictnessKnownArray pins down the ALL case once the element count
// is visible: a nonempty constant array restores full strictness in the
// scalar.
func TestStrictnessKnownArray(t *testing.T) {
	p := predtest.New(testcat.New())
	x := intVar("x")

	mk := func(useOr bool, elems ...pred.Datum) *pred.ScalarArrayOp {
		return &pred.ScalarArrayOp{
			Op:     testcat.IntEq,
			UseOr:  useOr,
			Scalar: x,
			Array: &pred.ConstExpr{
				Typ:   testcat.TIntArray,
				Value: &pred.DArray{ElemType: testcat.TInt, Elems: elems},
			},
		}
	}

	checkRefuted(t, p, mk(false, pred.DInt(1), pred.DInt(2)), isNull(x), true, true)

	// An empty ALL yields true even for a null scalar.
	checkRefuted(t, p, mk(false), isNull(x), true, false)

	// A null array constant makes the whole call null outright.
	nullArr := &pred.ScalarArrayOp{
		Op:     testcat.IntEq,
		UseOr:  false,
		Scalar: x,
		Array:  &pred.ConstExpr{Typ: testcat.TIntArray, Null: true},
	}
	checkRefuted(t, p, nullArr, isNull(x), true, true)
}
