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

package predtest

import (
	"github.com/predicata/predtest/pkg/cat"
	"github.com/predicata/predtest/pkg/pred"
	"github.com/predicata/predtest/pkg/util/syncutil"
)

// proofData is one direction's worth of derived operator-pair knowledge:
// whether the identical-subexpressions rule succeeds, and which operator
// (if any) compares the two constants in the one-sided-constants shape.
type proofData struct {
	sameSubexprs bool
	testOp       pred.OpID // 0 when no constant test is possible
	negate       bool      // invert the test result (NE via negated EQ)
}

func (d proofData) testOperator() (op pred.OpID, negate, ok bool) {
	return d.testOp, d.negate, d.testOp != 0
}

type proofCacheKey struct {
	predOp, clauseOp pred.OpID
}

type proofCacheEntry struct {
	haveImplic, haveRefute bool
	implic, refute         proofData
}

// proofCache memoizes computeProofData results per ordered operator pair.
// Entries live for the life of the prover and are wiped by catalog
// invalidation callbacks, which may fire from any goroutine; all access
// goes through one RWMutex.
type proofCache struct {
	mu      syncutil.RWMutex
	entries map[proofCacheKey]*proofCacheEntry
}

func (c *proofCache) init() {
	c.entries = make(map[proofCacheKey]*proofCacheEntry)
}

// lookup returns the cached proof data for one direction, computing and
// publishing it on a miss. Losing a race to another computation is fine:
// both computed the same thing from the same catalog state.
func (c *proofCache) lookup(
	ctl cat.Catalog, predOp, clauseOp pred.OpID, refute bool,
) proofData {
	key := proofCacheKey{predOp: predOp, clauseOp: clauseOp}
	c.mu.RLock()
	if e, ok := c.entries[key]; ok {
		if refute {
			if e.haveRefute {
				d := e.refute
				c.mu.RUnlock()
				return d
			}
		} else if e.haveImplic {
			d := e.implic
			c.mu.RUnlock()
			return d
		}
	}
	c.mu.RUnlock()

	d := computeProofData(ctl, predOp, clauseOp, refute)

	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &proofCacheEntry{}
		c.entries[key] = e
	}
	if refute {
		e.refute, e.haveRefute = d, true
	} else {
		e.implic, e.haveImplic = d, true
	}
	c.mu.Unlock()
	return d
}

// invalidateAll marks every entry unpopulated. Keeping the map allocated
// makes repopulation after an invalidation storm cheap.
func (c *proofCache) invalidateAll() {
	c.mu.Lock()
	for _, e := range c.entries {
		e.haveImplic, e.haveRefute = false, false
	}
	c.mu.Unlock()
}

// len reports the number of entries with at least one populated direction,
// for tests.
func (c *proofCache) populatedLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if e.haveImplic || e.haveRefute {
			n++
		}
	}
	return n
}
