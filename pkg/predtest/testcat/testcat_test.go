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

package testcat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicata/predtest/pkg/cat"
	"github.com/predicata/predtest/pkg/pred"
)

func TestParse(t *testing.T) {
	e, err := Parse("x > 10 AND bx")
	require.NoError(t, err)
	and, ok := e.(*pred.AndExpr)
	require.True(t, ok)
	require.Len(t, and.Children, 2)

	op, ok := and.Children[0].(*pred.OpExpr)
	require.True(t, ok)
	require.Equal(t, IntGt, op.Op)
	require.True(t, op.BoolResult)

	v, ok := and.Children[1].(*pred.VarExpr)
	require.True(t, ok)
	require.Equal(t, TBool, v.Typ)

	// Boolean equality resolves by operand type.
	e, err = Parse("bx = TRUE")
	require.NoError(t, err)
	op, ok = e.(*pred.OpExpr)
	require.True(t, ok)
	require.Equal(t, BoolEq, op.Op)

	e, err = Parse("x = ANY (1, NULL)")
	require.NoError(t, err)
	saop, ok := e.(*pred.ScalarArrayOp)
	require.True(t, ok)
	require.True(t, saop.UseOr)
	arr := saop.Array.(*pred.ConstExpr).Value.(*pred.DArray)
	require.Equal(t, []pred.Datum{pred.DInt(1), pred.DNull}, arr.Elems)

	e, err = Parse("NOT (x < 5 OR x IS NULL)")
	require.NoError(t, err)
	not, ok := e.(*pred.NotExpr)
	require.True(t, ok)
	_, ok = not.Input.(*pred.OrExpr)
	require.True(t, ok)

	_, err = Parse("x >")
	require.Error(t, err)
	_, err = Parse("x IS BANANA")
	require.Error(t, err)
}

func TestParseList(t *testing.T) {
	list, err := ParseList("x > 1 AND y < 2")
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = ParseList("x > 1 OR y < 2")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestEvalThreeValued(t *testing.T) {
	tc := New()

	eval := func(s string, env Env) pred.Datum {
		t.Helper()
		e, err := Parse(s)
		require.NoError(t, err)
		d, err := tc.Eval(e, env)
		require.NoError(t, err)
		return d
	}

	env := Env{"x": pred.DInt(5)}
	require.Equal(t, pred.DBool(true), eval("x > 1", env))
	require.Equal(t, pred.DBool(false), eval("x > 9", env))

	// Unbound variables are NULL and comparisons are strict.
	require.Equal(t, pred.DNull, eval("y > 1", env))
	require.Equal(t, pred.DBool(true), eval("y > 1 OR x > 1", env))
	require.Equal(t, pred.DNull, eval("y > 1 AND x > 1", env))
	require.Equal(t, pred.DBool(false), eval("y > 1 AND x > 9", env))
	require.Equal(t, pred.DNull, eval("NOT (y > 1)", env))

	// Boolean tests never return NULL.
	require.Equal(t, pred.DBool(true), eval("(y > 1) IS UNKNOWN", env))
	require.Equal(t, pred.DBool(true), eval("(y > 1) IS NOT TRUE", env))
	require.Equal(t, pred.DBool(false), eval("(x > 1) IS FALSE", env))

	require.Equal(t, pred.DBool(true), eval("y IS NULL", env))
	require.Equal(t, pred.DBool(true), eval("x IS NOT NULL", env))

	// Array comparisons follow ANY/ALL semantics with null poisoning.
	require.Equal(t, pred.DBool(true), eval("x = ANY (1, 5)", env))
	require.Equal(t, pred.DNull, eval("x = ANY (1, NULL)", env))
	require.Equal(t, pred.DBool(true), eval("x = ANY (5, NULL)", env))
	require.Equal(t, pred.DBool(false), eval("x = ANY ()", env))
	require.Equal(t, pred.DBool(true), eval("x < ALL ()", env))
	require.Equal(t, pred.DNull, eval("x < ALL (9, NULL)", env))
	require.Equal(t, pred.DBool(false), eval("x < ALL (9, 3)", env))

	// Functions: abs is strict, nvl is not.
	require.Equal(t, pred.DBool(true), eval("abs(x) = 5", env))
	require.Equal(t, pred.DNull, eval("abs(y) = 5", env))
	require.Equal(t, pred.DBool(true), eval("nvl(y, x) = 5", env))
}

func TestCatalogMetadata(t *testing.T) {
	tc := New()

	require.True(t, tc.OpIsStrict(IntLt))
	require.True(t, tc.OpIsImmutable(IntLt))
	tc.MarkNonStrict(IntLt)
	tc.MarkMutable(IntLt)
	require.False(t, tc.OpIsStrict(IntLt))
	require.False(t, tc.OpIsImmutable(IntLt))

	neg, ok := tc.Negator(IntEq)
	require.True(t, ok)
	require.Equal(t, IntNe, neg)
	com, ok := tc.Commutator(IntLe)
	require.True(t, ok)
	require.Equal(t, IntGe, com)
	_, ok = tc.Negator(BoolEq)
	require.False(t, ok)

	op, ok := tc.FamilyMember(IntFamily, TInt, TInt, cat.Gt)
	require.True(t, ok)
	require.Equal(t, IntGt, op)
	_, ok = tc.FamilyMember(IntFamily, TBool, TInt, cat.Gt)
	require.False(t, ok)

	fired := 0
	tc.OnFamilyChange(func() { fired++ })
	tc.TriggerFamilyChange()
	tc.TriggerFamilyChange()
	require.Equal(t, 2, fired)
}
