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
	"github.com/cockroachdb/errors"

	"github.com/predicata/predtest/pkg/pred"
)

// Env assigns values to variables during evaluation. A missing variable
// evaluates to NULL.
type Env map[string]pred.Datum

// Eval evaluates an expression under SQL three-valued logic. It is the
// ground truth the prover's soundness tests compare proofs against.
func (tc *Catalog) Eval(e pred.Expr, env Env) (pred.Datum, error) {
	switch t := e.(type) {
	case *pred.AndExpr:
		res := pred.Datum(pred.DBool(true))
		for _, c := range t.Children {
			d, err := tc.Eval(c, env)
			if err != nil {
				return nil, err
			}
			if d == pred.DBool(false) {
				return d, nil
			}
			if d == pred.DNull {
				res = pred.DNull
			}
		}
		return res, nil

	case *pred.OrExpr:
		res := pred.Datum(pred.DBool(false))
		for _, c := range t.Children {
			d, err := tc.Eval(c, env)
			if err != nil {
				return nil, err
			}
			if d == pred.DBool(true) {
				return d, nil
			}
			if d == pred.DNull {
				res = pred.DNull
			}
		}
		return res, nil

	case *pred.NotExpr:
		d, err := tc.Eval(t.Input, env)
		if err != nil {
			return nil, err
		}
		if b, ok := d.(pred.DBool); ok {
			return pred.DBool(!b), nil
		}
		return pred.DNull, nil

	case *pred.BoolTest:
		d, err := tc.Eval(t.Input, env)
		if err != nil {
			return nil, err
		}
		var res bool
		switch t.Tag {
		case pred.IsTrue:
			res = d == pred.DBool(true)
		case pred.IsNotTrue:
			res = d != pred.DBool(true)
		case pred.IsFalse:
			res = d == pred.DBool(false)
		case pred.IsNotFalse:
			res = d != pred.DBool(false)
		case pred.IsUnknown:
			res = d == pred.DNull
		case pred.IsNotUnknown:
			res = d != pred.DNull
		}
		return pred.DBool(res), nil

	case *pred.NullTest:
		d, err := tc.Eval(t.Input, env)
		if err != nil {
			return nil, err
		}
		res := d == pred.DNull
		if t.Tag == pred.IsNotNull {
			res = !res
		}
		return pred.DBool(res), nil

	case *pred.OpExpr:
		if len(t.Args) != 2 {
			return nil, errors.Newf("cannot evaluate %d-argument operator", len(t.Args))
		}
		l, err := tc.Eval(t.Args[0], env)
		if err != nil {
			return nil, err
		}
		r, err := tc.Eval(t.Args[1], env)
		if err != nil {
			return nil, err
		}
		return tc.EvalBinaryOp(t.Op, t.Collation, l, r)

	case *pred.FuncExpr:
		args := make([]pred.Datum, len(t.Args))
		for i, a := range t.Args {
			d, err := tc.Eval(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = d
		}
		return evalFunc(t.Fn, args)

	case *pred.ScalarArrayOp:
		return tc.evalScalarArrayOp(t, env)

	case *pred.ConstExpr:
		if t.Null {
			return pred.DNull, nil
		}
		return t.Value, nil

	case *pred.VarExpr:
		if d, ok := env[t.Name]; ok {
			return d, nil
		}
		return pred.DNull, nil

	case *pred.RelabelExpr:
		return tc.Eval(t.Input, env)

	case *pred.CoerceExpr:
		return tc.Eval(t.Input, env)
	}
	return nil, errors.Newf("cannot evaluate %T", e)
}

func evalFunc(fn pred.FuncID, args []pred.Datum) (pred.Datum, error) {
	switch fn {
	case FnAbs:
		if len(args) != 1 {
			return nil, errors.Newf("abs requires one argument")
		}
		if args[0] == pred.DNull {
			return pred.DNull, nil
		}
		n, ok := args[0].(pred.DInt)
		if !ok {
			return nil, errors.Newf("abs applied to %s", args[0].Type())
		}
		if n < 0 {
			n = -n
		}
		return n, nil
	case FnNvl:
		for _, a := range args {
			if a != pred.DNull {
				return a, nil
			}
		}
		return pred.DNull, nil
	}
	return nil, errors.Newf("unknown function fn%d", fn)
}

func (tc *Catalog) evalScalarArrayOp(t *pred.ScalarArrayOp, env Env) (pred.Datum, error) {
	scalar, err := tc.Eval(t.Scalar, env)
	if err != nil {
		return nil, err
	}
	var elems []pred.Datum
	switch arr := t.Array.(type) {
	case *pred.ConstExpr:
		if arr.Null {
			return pred.DNull, nil
		}
		a, ok := arr.Value.(*pred.DArray)
		if !ok {
			return nil, errors.Newf("array comparison over %s", arr.Value.Type())
		}
		elems = a.Elems
	case *pred.ArrayCtor:
		for _, el := range arr.Elems {
			d, err := tc.Eval(el, env)
			if err != nil {
				return nil, err
			}
			elems = append(elems, d)
		}
	default:
		d, err := tc.Eval(t.Array, env)
		if err != nil {
			return nil, err
		}
		if d == pred.DNull {
			return pred.DNull, nil
		}
		a, ok := d.(*pred.DArray)
		if !ok {
			return nil, errors.Newf("array comparison over %s", d.Type())
		}
		elems = a.Elems
	}

	// ANY starts false and looks for a true; ALL starts true and looks for
	// a false. A NULL element result poisons the default either way.
	res := pred.Datum(pred.DBool(!t.UseOr))
	for _, el := range elems {
		d, err := tc.EvalBinaryOp(t.Op, t.Collation, scalar, el)
		if err != nil {
			return nil, err
		}
		if t.UseOr && d == pred.DBool(true) {
			return d, nil
		}
		if !t.UseOr && d == pred.DBool(false) {
			return d, nil
		}
		if d == pred.DNull {
			res = pred.DNull
		}
	}
	return res, nil
}
