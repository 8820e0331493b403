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

// Package testcat implements an in-memory operator catalog over int and
// bool types, a small predicate parser, and a three-valued evaluator.
// It exists to drive the prover's tests.
package testcat

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/predicata/predtest/pkg/cat"
	"github.com/predicata/predtest/pkg/pred"
	"github.com/predicata/predtest/pkg/util/syncutil"
)

// Types known to the test catalog.
const (
	TInt      pred.TypeID = 1
	TBool     pred.TypeID = 2
	TIntArray pred.TypeID = 3
)

// Operators known to the test catalog. The six integer comparisons form a
// single btree-style family; BoolEq is boolean equality.
const (
	IntLt pred.OpID = iota + 1
	IntLe
	IntEq
	IntGe
	IntGt
	IntNe
	BoolEq
)

// Functions known to the test catalog.
const (
	FnAbs pred.FuncID = iota + 1 // strict
	FnNvl                       // not strict
)

// IntFamily is the comparison family covering the six integer operators.
const IntFamily pred.FamilyID = 1

var intCmps = map[pred.OpID]cat.CmpType{
	IntLt: cat.Lt,
	IntLe: cat.Le,
	IntEq: cat.Eq,
	IntGe: cat.Ge,
	IntGt: cat.Gt,
	IntNe: cat.Ne,
}

var commutators = map[pred.OpID]pred.OpID{
	IntLt:  IntGt,
	IntGt:  IntLt,
	IntLe:  IntGe,
	IntGe:  IntLe,
	IntEq:  IntEq,
	IntNe:  IntNe,
	BoolEq: BoolEq,
}

var negators = map[pred.OpID]pred.OpID{
	IntLt: IntGe,
	IntGe: IntLt,
	IntGt: IntLe,
	IntLe: IntGt,
	IntEq: IntNe,
	IntNe: IntEq,
}

// Catalog is an in-memory cat.Catalog. The zero value is not usable; call
// New. Counters track catalog traffic so tests can observe how often the
// prover resolves proof operators versus hitting its cache.
type Catalog struct {
	// FamilyMemberCalls counts FamilyMember invocations.
	FamilyMemberCalls atomic.Int64
	// EvalCalls counts EvalBinaryOp invocations.
	EvalCalls atomic.Int64

	mu struct {
		syncutil.Mutex
		mutableOps   map[pred.OpID]bool
		nonStrictOps map[pred.OpID]bool
		callbacks    []func()
	}
}

var _ cat.Catalog = (*Catalog)(nil)

// New constructs the test catalog.
func New() *Catalog {
	tc := &Catalog{}
	tc.mu.mutableOps = make(map[pred.OpID]bool)
	tc.mu.nonStrictOps = make(map[pred.OpID]bool)
	return tc
}

// MarkMutable makes the given operator report as not immutable.
func (tc *Catalog) MarkMutable(op pred.OpID) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.mu.mutableOps[op] = true
}

// MarkNonStrict makes the given operator report as not strict.
func (tc *Catalog) MarkNonStrict(op pred.OpID) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.mu.nonStrictOps[op] = true
}

// TriggerFamilyChange fires every registered invalidation callback, as a
// real catalog would after operator metadata changed.
func (tc *Catalog) TriggerFamilyChange() {
	tc.mu.Lock()
	cbs := append([]func(){}, tc.mu.callbacks...)
	tc.mu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}

// OpIsStrict implements the cat.Catalog interface.
func (tc *Catalog) OpIsStrict(op pred.OpID) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return !tc.mu.nonStrictOps[op]
}

// OpIsImmutable implements the cat.Catalog interface.
func (tc *Catalog) OpIsImmutable(op pred.OpID) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return !tc.mu.mutableOps[op]
}

// Negator implements the cat.Catalog interface.
func (tc *Catalog) Negator(op pred.OpID) (pred.OpID, bool) {
	n, ok := negators[op]
	return n, ok
}

// Commutator implements the cat.Catalog interface.
func (tc *Catalog) Commutator(op pred.OpID) (pred.OpID, bool) {
	c, ok := commutators[op]
	return c, ok
}

// FamilyEntries implements the cat.Catalog interface.
func (tc *Catalog) FamilyEntries(op pred.OpID) []cat.FamilyEntry {
	cmp, ok := intCmps[op]
	if !ok {
		return nil
	}
	return []cat.FamilyEntry{{
		Family:    IntFamily,
		LeftType:  TInt,
		RightType: TInt,
		Cmp:       cmp,
	}}
}

// FamilyMember implements the cat.Catalog interface.
func (tc *Catalog) FamilyMember(
	family pred.FamilyID, left, right pred.TypeID, cmp cat.CmpType,
) (pred.OpID, bool) {
	tc.FamilyMemberCalls.Add(1)
	if family != IntFamily || left != TInt || right != TInt {
		return 0, false
	}
	for op, c := range intCmps {
		if c == cmp {
			return op, true
		}
	}
	return 0, false
}

// FuncIsStrict implements the cat.Catalog interface.
func (tc *Catalog) FuncIsStrict(fn pred.FuncID) bool {
	return fn != FnNvl
}

// IsBooleanEquality implements the cat.Catalog interface.
func (tc *Catalog) IsBooleanEquality(op pred.OpID) bool {
	return op == BoolEq
}

// EvalBinaryOp implements the cat.Catalog interface.
func (tc *Catalog) EvalBinaryOp(
	op pred.OpID, _ pred.CollationID, left, right pred.Datum,
) (pred.Datum, error) {
	tc.EvalCalls.Add(1)
	if left == pred.DNull || right == pred.DNull {
		return pred.DNull, nil
	}
	if op == BoolEq {
		l, lok := left.(pred.DBool)
		r, rok := right.(pred.DBool)
		if !lok || !rok {
			return nil, errors.Newf("bool operator applied to %s, %s", left.Type(), right.Type())
		}
		return pred.DBool(l == r), nil
	}
	cmp, ok := intCmps[op]
	if !ok {
		return nil, errors.Newf("unknown operator op%d", op)
	}
	l, lok := left.(pred.DInt)
	r, rok := right.(pred.DInt)
	if !lok || !rok {
		return nil, errors.Newf("int operator applied to %s, %s", left.Type(), right.Type())
	}
	var res bool
	switch cmp {
	case cat.Lt:
		res = l < r
	case cat.Le:
		res = l <= r
	case cat.Eq:
		res = l == r
	case cat.Ge:
		res = l >= r
	case cat.Gt:
		res = l > r
	case cat.Ne:
		res = l != r
	}
	return pred.DBool(res), nil
}

// OnFamilyChange implements the cat.Catalog interface.
func (tc *Catalog) OnFamilyChange(fn func()) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.mu.callbacks = append(tc.mu.callbacks, fn)
}
