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

// Package cat defines the narrow operator-catalog boundary the predicate
// prover consumes. The host supplies an implementation; every query must be
// pure and idempotent between invalidation notifications.
package cat

import "github.com/predicata/predtest/pkg/pred"

// CmpType is one of the six comparison codes a family member implements.
type CmpType uint8

const (
	Lt CmpType = iota
	Le
	Eq
	Ge
	Gt
	Ne

	// NumCmpTypes is the number of comparison codes.
	NumCmpTypes = int(Ne) + 1
)

var cmpNames = [...]string{Lt: "<", Le: "<=", Eq: "=", Ge: ">=", Gt: ">", Ne: "<>"}

func (c CmpType) String() string {
	if int(c) < len(cmpNames) {
		return cmpNames[c]
	}
	return "?"
}

// FamilyEntry records one comparison family's interpretation of an
// operator: within Family, the operator compares LeftType against RightType
// with comparison code Cmp. An EQ and an NE operator belong to the same
// family only when the NE is the EQ's negator.
type FamilyEntry struct {
	Family    pred.FamilyID
	LeftType  pred.TypeID
	RightType pred.TypeID
	Cmp       CmpType
}

// Catalog is the operator metadata source for the prover.
//
// Beyond the comparison-family queries, the interface carries the strictness
// and boolean-equality lookups the atom rules need, and constant evaluation
// of an (immutable) operator for the one-sided-constants proof. A lookup
// that has no answer reports ok=false; the prover treats that as an
// unprovable step, never an error.
type Catalog interface {
	// OpIsStrict reports whether the operator yields NULL on any NULL input.
	OpIsStrict(op pred.OpID) bool

	// OpIsImmutable reports whether the operator always produces the same
	// output for the same inputs.
	OpIsImmutable(op pred.OpID) bool

	// Negator returns the operator's negator, if it has one.
	Negator(op pred.OpID) (pred.OpID, bool)

	// Commutator returns the operator's commutator, if it has one.
	Commutator(op pred.OpID) (pred.OpID, bool)

	// FamilyEntries returns every comparison family interpretation of the
	// operator, or nil when it has none.
	FamilyEntries(op pred.OpID) []FamilyEntry

	// FamilyMember returns the unique operator implementing the given
	// comparison over the given operand types within the family.
	FamilyMember(family pred.FamilyID, left, right pred.TypeID, cmp CmpType) (pred.OpID, bool)

	// FuncIsStrict reports whether the function yields NULL on any NULL
	// input.
	FuncIsStrict(fn pred.FuncID) bool

	// IsBooleanEquality reports whether the operator is boolean equality
	// (bool = bool).
	IsBooleanEquality(op pred.OpID) bool

	// EvalBinaryOp evaluates an operator on two constant values. The prover
	// only calls this for operators the catalog reported immutable.
	EvalBinaryOp(op pred.OpID, collation pred.CollationID, left, right pred.Datum) (pred.Datum, error)

	// OnFamilyChange registers a callback invoked whenever operator or
	// family metadata may have changed. Callbacks may fire from any
	// goroutine.
	OnFamilyChange(fn func())
}
