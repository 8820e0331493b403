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

import (
	"bytes"
	"strconv"
)

// A Datum holds a constant value carried by a ConstExpr or produced by the
// catalog when it evaluates an operator. The prover never interprets datum
// contents itself beyond nullness and array shape; value semantics live
// behind the catalog.
type Datum interface {
	// Type returns a short name for the datum's kind, for messages.
	Type() string
	Format(buf *bytes.Buffer)
}

// DNull is the NULL Datum.
var DNull Datum = dNull{}

type dNull struct{}

// Type implements the Datum interface.
func (dNull) Type() string { return "NULL" }

// Format implements the Datum interface.
func (dNull) Format(buf *bytes.Buffer) { buf.WriteString("NULL") }

func (dNull) String() string { return "NULL" }

// DBool is the boolean Datum.
type DBool bool

// Type implements the Datum interface.
func (DBool) Type() string { return "bool" }

// Format implements the Datum interface.
func (d DBool) Format(buf *bytes.Buffer) {
	buf.WriteString(strconv.FormatBool(bool(d)))
}

func (d DBool) String() string { return strconv.FormatBool(bool(d)) }

// DInt is the int Datum.
type DInt int64

// Type implements the Datum interface.
func (DInt) Type() string { return "int" }

// Format implements the Datum interface.
func (d DInt) Format(buf *bytes.Buffer) {
	buf.WriteString(strconv.FormatInt(int64(d), 10))
}

func (d DInt) String() string { return strconv.FormatInt(int64(d), 10) }

// DString is the string Datum.
type DString string

// Type implements the Datum interface.
func (DString) Type() string { return "string" }

// Format implements the Datum interface.
func (d DString) Format(buf *bytes.Buffer) {
	buf.WriteString(strconv.Quote(string(d)))
}

func (d DString) String() string { return strconv.Quote(string(d)) }

// DArray is a one-dimensional array Datum. Elements may be DNull; their
// nullness is preserved when the prover breaks an array comparison apart
// into per-element comparisons.
type DArray struct {
	ElemType TypeID
	Elems    []Datum
}

// Type implements the Datum interface.
func (*DArray) Type() string { return "array" }

// Format implements the Datum interface.
func (d *DArray) Format(buf *bytes.Buffer) {
	buf.WriteByte('{')
	for i, e := range d.Elems {
		if i > 0 {
			buf.WriteString(", ")
		}
		e.Format(buf)
	}
	buf.WriteByte('}')
}

func (d *DArray) String() string {
	var buf bytes.Buffer
	d.Format(&buf)
	return buf.String()
}

// DatumsEqual reports whether two datums hold the same value. Nulls compare
// equal to each other and to nothing else.
func DatumsEqual(a, b Datum) bool {
	switch ta := a.(type) {
	case dNull:
		_, ok := b.(dNull)
		return ok
	case DBool:
		tb, ok := b.(DBool)
		return ok && ta == tb
	case DInt:
		tb, ok := b.(DInt)
		return ok && ta == tb
	case DString:
		tb, ok := b.(DString)
		return ok && ta == tb
	case *DArray:
		tb, ok := b.(*DArray)
		if !ok || ta.ElemType != tb.ElemType || len(ta.Elems) != len(tb.Elems) {
			return false
		}
		for i := range ta.Elems {
			if !DatumsEqual(ta.Elems[i], tb.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}
