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

// Package pred defines the language-neutral expression trees that the
// predicate prover operates on. Trees are built by the host planner after
// constant folding and are read-only for the duration of a proof.
package pred

import (
	"bytes"
	"fmt"
)

// Expr is an expression tree node. Implementations are the node structs in
// this package; a node the host cannot express maps to OpaqueExpr and is
// treated by the prover as an opaque atom.
type Expr interface {
	fmt.Stringer
	Format(buf *bytes.Buffer)
}

// AndExpr is the conjunction of one or more children.
type AndExpr struct {
	Children []Expr
}

// OrExpr is the disjunction of one or more children.
type OrExpr struct {
	Children []Expr
}

// NotExpr is boolean negation.
type NotExpr struct {
	Input Expr
}

// BoolTestTag distinguishes the six boolean test forms.
type BoolTestTag uint8

const (
	IsTrue BoolTestTag = iota
	IsNotTrue
	IsFalse
	IsNotFalse
	IsUnknown
	IsNotUnknown
)

// BoolTest is "input IS [NOT] TRUE/FALSE/UNKNOWN". Unlike NotExpr it never
// yields NULL.
type BoolTest struct {
	Input Expr
	Tag   BoolTestTag
}

// NullTestTag distinguishes IS NULL from IS NOT NULL.
type NullTestTag uint8

const (
	IsNull NullTestTag = iota
	IsNotNull
)

// NullTest is "input IS [NOT] NULL". RowArg records that the argument is of
// composite row type, in which case the test has field-wise semantics and
// the prover must not reason about it.
type NullTest struct {
	Input  Expr
	Tag    NullTestTag
	RowArg bool
}

// OpExpr is an operator invocation with one or two arguments.
type OpExpr struct {
	Op         OpID
	Collation  CollationID
	Args       []Expr
	BoolResult bool
}

// FuncExpr is a function invocation.
type FuncExpr struct {
	Fn   FuncID
	Args []Expr
}

// ScalarArrayOp is "Scalar op ANY (Array)" when UseOr, else
// "Scalar op ALL (Array)".
type ScalarArrayOp struct {
	Op        OpID
	Collation CollationID
	UseOr     bool
	Scalar    Expr
	Array     Expr
}

// ArrayCtor is an array constructor over element expressions. When MultiDim
// is set the elements are themselves arrays and the total element count is
// not knowable from the node.
type ArrayCtor struct {
	ElemType  TypeID
	Collation CollationID
	MultiDim  bool
	Elems     []Expr
}

// ConstExpr is a typed constant. When Null is set, Value is ignored.
type ConstExpr struct {
	Typ       TypeID
	Collation CollationID
	Value     Datum
	Null      bool
}

// VarExpr is a reference to an input column or variable of the host. Two
// references are the same subexpression iff their names and types match.
type VarExpr struct {
	Name string
	Typ  TypeID
}

// RelabelExpr is a pure type-label change; it preserves the input value,
// including nullness.
type RelabelExpr struct {
	Input     Expr
	Typ       TypeID
	Collation CollationID
}

// CoerceKind distinguishes the coercion wrappers the prover understands.
// Each is strict in its single input.
type CoerceKind uint8

const (
	CoerceViaIO CoerceKind = iota
	CoerceArray
	CoerceRow
	CoerceDomain
)

// CoerceExpr is a strict coercion of its input to another type.
type CoerceExpr struct {
	Kind  CoerceKind
	Input Expr
	Typ   TypeID
}

// OpaqueExpr stands in for any node the prover does not understand. Two
// opaque nodes are the same subexpression only if they are the same node.
type OpaqueExpr struct {
	Note string
}

func exprString(e Expr) string {
	var buf bytes.Buffer
	e.Format(&buf)
	return buf.String()
}

func formatNested(buf *bytes.Buffer, e Expr) {
	switch e.(type) {
	case *AndExpr, *OrExpr, *NotExpr:
		buf.WriteByte('(')
		e.Format(buf)
		buf.WriteByte(')')
	default:
		e.Format(buf)
	}
}

func formatJoined(buf *bytes.Buffer, children []Expr, sep string) {
	for i, c := range children {
		if i > 0 {
			buf.WriteString(sep)
		}
		formatNested(buf, c)
	}
}

// Format implements the Expr interface.
func (e *AndExpr) Format(buf *bytes.Buffer) { formatJoined(buf, e.Children, " AND ") }

func (e *AndExpr) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *OrExpr) Format(buf *bytes.Buffer) { formatJoined(buf, e.Children, " OR ") }

func (e *OrExpr) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *NotExpr) Format(buf *bytes.Buffer) {
	buf.WriteString("NOT ")
	formatNested(buf, e.Input)
}

func (e *NotExpr) String() string { return exprString(e) }

var boolTestNames = [...]string{
	IsTrue:       "IS TRUE",
	IsNotTrue:    "IS NOT TRUE",
	IsFalse:      "IS FALSE",
	IsNotFalse:   "IS NOT FALSE",
	IsUnknown:    "IS UNKNOWN",
	IsNotUnknown: "IS NOT UNKNOWN",
}

// Format implements the Expr interface.
func (e *BoolTest) Format(buf *bytes.Buffer) {
	formatNested(buf, e.Input)
	buf.WriteByte(' ')
	buf.WriteString(boolTestNames[e.Tag])
}

func (e *BoolTest) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *NullTest) Format(buf *bytes.Buffer) {
	formatNested(buf, e.Input)
	if e.Tag == IsNull {
		buf.WriteString(" IS NULL")
	} else {
		buf.WriteString(" IS NOT NULL")
	}
}

func (e *NullTest) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *OpExpr) Format(buf *bytes.Buffer) {
	if len(e.Args) == 1 {
		fmt.Fprintf(buf, "op%d(", e.Op)
		e.Args[0].Format(buf)
		buf.WriteByte(')')
		return
	}
	formatNested(buf, e.Args[0])
	fmt.Fprintf(buf, " op%d ", e.Op)
	formatNested(buf, e.Args[1])
}

func (e *OpExpr) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *FuncExpr) Format(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "fn%d(", e.Fn)
	for i, a := range e.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		a.Format(buf)
	}
	buf.WriteByte(')')
}

func (e *FuncExpr) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *ScalarArrayOp) Format(buf *bytes.Buffer) {
	formatNested(buf, e.Scalar)
	fmt.Fprintf(buf, " op%d ", e.Op)
	if e.UseOr {
		buf.WriteString("ANY (")
	} else {
		buf.WriteString("ALL (")
	}
	e.Array.Format(buf)
	buf.WriteByte(')')
}

func (e *ScalarArrayOp) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *ArrayCtor) Format(buf *bytes.Buffer) {
	buf.WriteString("ARRAY[")
	for i, el := range e.Elems {
		if i > 0 {
			buf.WriteString(", ")
		}
		el.Format(buf)
	}
	buf.WriteByte(']')
}

func (e *ArrayCtor) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *ConstExpr) Format(buf *bytes.Buffer) {
	if e.Null {
		buf.WriteString("NULL")
		return
	}
	e.Value.Format(buf)
}

func (e *ConstExpr) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *VarExpr) Format(buf *bytes.Buffer) { buf.WriteString(e.Name) }

func (e *VarExpr) String() string { return e.Name }

// Format implements the Expr interface.
func (e *RelabelExpr) Format(buf *bytes.Buffer) {
	formatNested(buf, e.Input)
	fmt.Fprintf(buf, "::t%d", e.Typ)
}

func (e *RelabelExpr) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *CoerceExpr) Format(buf *bytes.Buffer) {
	buf.WriteString("coerce(")
	e.Input.Format(buf)
	fmt.Fprintf(buf, ", t%d)", e.Typ)
}

func (e *CoerceExpr) String() string { return exprString(e) }

// Format implements the Expr interface.
func (e *OpaqueExpr) Format(buf *bytes.Buffer) {
	buf.WriteString("opaque")
	if e.Note != "" {
		buf.WriteByte('(')
		buf.WriteString(e.Note)
		buf.WriteByte(')')
	}
}

func (e *OpaqueExpr) String() string { return exprString(e) }
