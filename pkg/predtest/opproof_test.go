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
	"golang.org/x/sync/errgroup"

	"github.com/cockroachdb/errors"

	"github.com/predicata/predtest/pkg/pred"
	"github.com/predicata/predtest/pkg/predtest"
	"github.com/predicata/predtest/pkg/predtest/testcat"
)

// TestProofCacheReuse verifies that the comparison-family resolution for an
// operator pair happens once and is reused until the catalog reports a
// metadata change.
func TestProofCacheReuse(t *testing.T) {
	tc := testcat.New()
	p := predtest.New(tc)
	ctx := context.Background()

	clauses := mustParseList(t, "x > 10")
	predicate := mustParseList(t, "x > 5")

	for i := 0; i < 3; i++ {
		implied, err := p.PredicateImpliedBy(ctx, predicate, clauses, false)
		require.NoError(t, err)
		require.True(t, implied)
	}
	require.Equal(t, int64(1), tc.FamilyMemberCalls.Load())

	tc.TriggerFamilyChange()

	implied, err := p.PredicateImpliedBy(ctx, predicate, clauses, false)
	require.NoError(t, err)
	require.True(t, implied)
	require.Equal(t, int64(2), tc.FamilyMemberCalls.Load())
}

// TestProofCacheInvalidation changes operator metadata mid-stream and
// verifies the prover picks the change up after the invalidation callback,
// rather than replaying a stale proof.
func TestProofCacheInvalidation(t *testing.T) {
	tc := testcat.New()
	p := predtest.New(tc)
	ctx := context.Background()

	clauses := mustParseList(t, "x < 3")
	predicate := mustParseList(t, "x < 5")

	implied, err := p.PredicateImpliedBy(ctx, predicate, clauses, false)
	require.NoError(t, err)
	require.True(t, implied)

	// The cached proof evaluates a >= test operator; once that operator
	// stops being immutable the proof must no longer go through.
	tc.MarkMutable(testcat.IntGe)
	tc.TriggerFamilyChange()

	implied, err = p.PredicateImpliedBy(ctx, predicate, clauses, false)
	require.NoError(t, err)
	require.False(t, implied)
}

// TestMutableClauseOperator covers the two immutability checks: a mutable
// clause operator disables same-subexpression proofs, while constant-test
// proofs only require the test operator itself to be immutable.
func TestMutableClauseOperator(t *testing.T) {
	tc := testcat.New()
	tc.MarkMutable(testcat.IntLt)
	p := predtest.New(tc)
	ctx := context.Background()

	implied, err := p.PredicateImpliedBy(
		ctx, mustParseList(t, "x <= y"), mustParseList(t, "x < y"), false)
	require.NoError(t, err)
	require.False(t, implied)

	refuted, err := p.PredicateRefutedBy(
		ctx, mustParseList(t, "x >= y"), mustParseList(t, "x < y"), false)
	require.NoError(t, err)
	require.False(t, refuted)

	// x < 3 still implies x < 5: the evaluated operator is >=, which is
	// still immutable.
	implied, err = p.PredicateImpliedBy(
		ctx, mustParseList(t, "x < 5"), mustParseList(t, "x < 3"), false)
	require.NoError(t, err)
	require.True(t, implied)
}

// TestProofCacheConcurrency hammers one prover from several goroutines
// while another repeatedly invalidates the cache.
func TestProofCacheConcurrency(t *testing.T) {
	tc := testcat.New()
	p := predtest.New(tc)

	clauses := mustParseList(t, "x > 10")
	predicate := mustParseList(t, "x > 5")

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for j := 0; j < 500; j++ {
				implied, err := p.PredicateImpliedBy(ctx, predicate, clauses, false)
				if err != nil {
					return err
				}
				if !implied {
					return errors.New("proof unexpectedly failed")
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for j := 0; j < 100; j++ {
			tc.TriggerFamilyChange()
		}
		return nil
	})
	require.NoError(t, g.Wait())
}

// TestCollationMismatch verifies that operator proofs refuse to cross
// collations.
func TestCollationMismatch(t *testing.T) {
	p := predtest.New(testcat.New())
	ctx := context.Background()

	x := &pred.VarExpr{Name: "x", Typ: testcat.TInt}
	gt := func(n int64, coll pred.CollationID) pred.Expr {
		return &pred.OpExpr{
			Op:         testcat.IntGt,
			Collation:  coll,
			Args:       []pred.Expr{x, &pred.ConstExpr{Typ: testcat.TInt, Value: pred.DInt(n)}},
			BoolResult: true,
		}
	}

	implied, err := p.PredicateImpliedBy(
		ctx, []pred.Expr{gt(5, 1)}, []pred.Expr{gt(10, 2)}, false)
	require.NoError(t, err)
	require.False(t, implied)

	implied, err = p.PredicateImpliedBy(
		ctx, []pred.Expr{gt(5, 1)}, []pred.Expr{gt(10, 1)}, false)
	require.NoError(t, err)
	require.True(t, implied)
}
