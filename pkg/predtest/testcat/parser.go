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
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"github.com/predicata/predtest/pkg/pred"
)

// Parse parses a test predicate. The accepted grammar covers what the
// prover's tests need:
//
//	expr     := term { OR term }
//	term     := factor { AND factor }
//	factor   := NOT factor | test
//	test     := cmp { IS [NOT] (NULL|TRUE|FALSE|UNKNOWN) }
//	cmp      := operand [ cmpop ( operand | anyall ) ]
//	anyall   := (ANY|ALL) '(' literals ')' | (ANY|ALL) ARRAY '[' operands ']'
//	operand  := '(' expr ')' | func '(' operands ')' | ident | int | TRUE | FALSE | NULL
//
// Identifiers starting with 'b' are boolean variables; all others are
// integer variables. Functions are abs (strict) and nvl (not strict).
func Parse(input string) (pred.Expr, error) {
	p := &parser{}
	if err := p.lex(input); err != nil {
		return nil, err
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, errors.Newf("unexpected token %q in %q", p.peek(), input)
	}
	return e, nil
}

// ParseList parses a test predicate and flattens a top-level conjunction
// into a list, matching how a planner hands the prover a set of filters.
func ParseList(input string) ([]pred.Expr, error) {
	e, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if and, ok := e.(*pred.AndExpr); ok {
		return and.Children, nil
	}
	return []pred.Expr{e}, nil
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) lex(input string) error {
	rs := []rune(input)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			p.toks = append(p.toks, string(rs[i:j]))
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			p.toks = append(p.toks, string(rs[i:j]))
			i = j
		case r == '<' && i+1 < len(rs) && (rs[i+1] == '=' || rs[i+1] == '>'):
			p.toks = append(p.toks, string(rs[i:i+2]))
			i += 2
		case r == '>' && i+1 < len(rs) && rs[i+1] == '=':
			p.toks = append(p.toks, ">=")
			i += 2
		case r == '!' && i+1 < len(rs) && rs[i+1] == '=':
			p.toks = append(p.toks, "<>")
			i += 2
		case strings.ContainsRune("<>=(),[]", r):
			p.toks = append(p.toks, string(r))
			i++
		default:
			return errors.Newf("unexpected character %q in %q", r, input)
		}
	}
	return nil
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

// eatKeyword consumes the next token if it case-insensitively matches kw.
func (p *parser) eatKeyword(kw string) bool {
	if strings.EqualFold(p.peek(), kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(tok string) error {
	if t := p.next(); !strings.EqualFold(t, tok) {
		return errors.Newf("expected %q, found %q", tok, t)
	}
	return nil
}

func (p *parser) parseOr() (pred.Expr, error) {
	e, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []pred.Expr{e}
	for p.eatKeyword("OR") {
		c, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return e, nil
	}
	return &pred.OrExpr{Children: children}, nil
}

func (p *parser) parseAnd() (pred.Expr, error) {
	e, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	children := []pred.Expr{e}
	for p.eatKeyword("AND") {
		c, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return e, nil
	}
	return &pred.AndExpr{Children: children}, nil
}

func (p *parser) parseFactor() (pred.Expr, error) {
	if p.eatKeyword("NOT") {
		in, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &pred.NotExpr{Input: in}, nil
	}
	return p.parseTest()
}

func (p *parser) parseTest() (pred.Expr, error) {
	e, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("IS") {
		not := p.eatKeyword("NOT")
		switch kw := p.next(); strings.ToUpper(kw) {
		case "NULL":
			tag := pred.IsNull
			if not {
				tag = pred.IsNotNull
			}
			e = &pred.NullTest{Input: e, Tag: tag}
		case "TRUE":
			tag := pred.IsTrue
			if not {
				tag = pred.IsNotTrue
			}
			e = &pred.BoolTest{Input: e, Tag: tag}
		case "FALSE":
			tag := pred.IsFalse
			if not {
				tag = pred.IsNotFalse
			}
			e = &pred.BoolTest{Input: e, Tag: tag}
		case "UNKNOWN":
			tag := pred.IsUnknown
			if not {
				tag = pred.IsNotUnknown
			}
			e = &pred.BoolTest{Input: e, Tag: tag}
		default:
			return nil, errors.Newf("expected NULL, TRUE, FALSE, or UNKNOWN after IS, found %q", kw)
		}
	}
	return e, nil
}

var cmpOps = map[string]pred.OpID{
	"<": IntLt, "<=": IntLe, "=": IntEq, ">=": IntGe, ">": IntGt, "<>": IntNe,
}

func (p *parser) parseCmp() (pred.Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, ok := cmpOps[p.peek()]
	if !ok {
		return left, nil
	}
	p.pos++
	if op == IntEq && exprType(left) == TBool {
		op = BoolEq
	}
	if strings.EqualFold(p.peek(), "ANY") || strings.EqualFold(p.peek(), "ALL") {
		return p.parseAnyAll(left, op)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if c, ok := right.(*pred.ConstExpr); ok && c.Null {
		c.Typ = exprType(left)
	}
	return &pred.OpExpr{Op: op, Args: []pred.Expr{left, right}, BoolResult: true}, nil
}

func (p *parser) parseAnyAll(scalar pred.Expr, op pred.OpID) (pred.Expr, error) {
	useOr := strings.EqualFold(p.next(), "ANY")
	if p.eatKeyword("ARRAY") {
		if err := p.expect("["); err != nil {
			return nil, err
		}
		ctor := &pred.ArrayCtor{ElemType: TInt}
		for !strings.EqualFold(p.peek(), "]") {
			if len(ctor.Elems) > 0 {
				if err := p.expect(","); err != nil {
					return nil, err
				}
			}
			el, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			ctor.Elems = append(ctor.Elems, el)
		}
		p.pos++
		return &pred.ScalarArrayOp{Op: op, UseOr: useOr, Scalar: scalar, Array: ctor}, nil
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	arr := &pred.DArray{ElemType: TInt}
	for !strings.EqualFold(p.peek(), ")") {
		if len(arr.Elems) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		switch tok := p.next(); {
		case strings.EqualFold(tok, "NULL"):
			arr.Elems = append(arr.Elems, pred.DNull)
		default:
			n, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, errors.Newf("expected integer or NULL array element, found %q", tok)
			}
			arr.Elems = append(arr.Elems, pred.DInt(n))
		}
	}
	p.pos++
	arrConst := &pred.ConstExpr{Typ: TIntArray, Value: arr}
	return &pred.ScalarArrayOp{Op: op, UseOr: useOr, Scalar: scalar, Array: arrConst}, nil
}

var funcIDs = map[string]pred.FuncID{"abs": FnAbs, "nvl": FnNvl}

func (p *parser) parseOperand() (pred.Expr, error) {
	tok := p.next()
	switch {
	case tok == "(":
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case strings.EqualFold(tok, "TRUE"):
		return &pred.ConstExpr{Typ: TBool, Value: pred.DBool(true)}, nil
	case strings.EqualFold(tok, "FALSE"):
		return &pred.ConstExpr{Typ: TBool, Value: pred.DBool(false)}, nil
	case strings.EqualFold(tok, "NULL"):
		return &pred.ConstExpr{Typ: TInt, Null: true}, nil
	case tok == "":
		return nil, errors.New("unexpected end of input")
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return &pred.ConstExpr{Typ: TInt, Value: pred.DInt(n)}, nil
	}
	if fn, ok := funcIDs[strings.ToLower(tok)]; ok && p.peek() == "(" {
		p.pos++
		f := &pred.FuncExpr{Fn: fn}
		for !strings.EqualFold(p.peek(), ")") {
			if len(f.Args) > 0 {
				if err := p.expect(","); err != nil {
					return nil, err
				}
			}
			a, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			f.Args = append(f.Args, a)
		}
		p.pos++
		return f, nil
	}
	typ := TInt
	if strings.HasPrefix(tok, "b") {
		typ = TBool
	}
	return &pred.VarExpr{Name: tok, Typ: typ}, nil
}

// exprType makes a best-effort type assignment for operator resolution.
func exprType(e pred.Expr) pred.TypeID {
	switch t := e.(type) {
	case *pred.VarExpr:
		return t.Typ
	case *pred.ConstExpr:
		return t.Typ
	case *pred.RelabelExpr:
		return t.Typ
	case *pred.CoerceExpr:
		return t.Typ
	case *pred.FuncExpr:
		return TInt
	}
	return TBool
}
