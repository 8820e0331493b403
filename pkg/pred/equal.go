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

package pred

// Equal reports whether two expression trees are structurally identical.
// This is the default subexpression-identity check used by the prover;
// hosts with their own AST equality can substitute it.
//
// Opaque nodes compare equal only when they are the same node: the prover
// must never assume two nodes it cannot inspect denote the same value.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch ta := a.(type) {
	case *AndExpr:
		tb, ok := b.(*AndExpr)
		return ok && equalSlices(ta.Children, tb.Children)
	case *OrExpr:
		tb, ok := b.(*OrExpr)
		return ok && equalSlices(ta.Children, tb.Children)
	case *NotExpr:
		tb, ok := b.(*NotExpr)
		return ok && Equal(ta.Input, tb.Input)
	case *BoolTest:
		tb, ok := b.(*BoolTest)
		return ok && ta.Tag == tb.Tag && Equal(ta.Input, tb.Input)
	case *NullTest:
		tb, ok := b.(*NullTest)
		return ok && ta.Tag == tb.Tag && ta.RowArg == tb.RowArg && Equal(ta.Input, tb.Input)
	case *OpExpr:
		tb, ok := b.(*OpExpr)
		return ok && ta.Op == tb.Op && ta.Collation == tb.Collation &&
			equalSlices(ta.Args, tb.Args)
	case *FuncExpr:
		tb, ok := b.(*FuncExpr)
		return ok && ta.Fn == tb.Fn && equalSlices(ta.Args, tb.Args)
	case *ScalarArrayOp:
		tb, ok := b.(*ScalarArrayOp)
		return ok && ta.Op == tb.Op && ta.Collation == tb.Collation &&
			ta.UseOr == tb.UseOr && Equal(ta.Scalar, tb.Scalar) && Equal(ta.Array, tb.Array)
	case *ArrayCtor:
		tb, ok := b.(*ArrayCtor)
		return ok && ta.ElemType == tb.ElemType && ta.Collation == tb.Collation &&
			ta.MultiDim == tb.MultiDim && equalSlices(ta.Elems, tb.Elems)
	case *ConstExpr:
		tb, ok := b.(*ConstExpr)
		if !ok || ta.Typ != tb.Typ || ta.Collation != tb.Collation || ta.Null != tb.Null {
			return false
		}
		return ta.Null || DatumsEqual(ta.Value, tb.Value)
	case *VarExpr:
		tb, ok := b.(*VarExpr)
		return ok && ta.Name == tb.Name && ta.Typ == tb.Typ
	case *RelabelExpr:
		tb, ok := b.(*RelabelExpr)
		return ok && ta.Typ == tb.Typ && ta.Collation == tb.Collation && Equal(ta.Input, tb.Input)
	case *CoerceExpr:
		tb, ok := b.(*CoerceExpr)
		return ok && ta.Kind == tb.Kind && ta.Typ == tb.Typ && Equal(ta.Input, tb.Input)
	case *OpaqueExpr:
		return a == b
	}
	return false
}

func equalSlices(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
