// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package validate

import (
	"context"

	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/equivalence"
	"github.com/queryforge/sqlbeam/internal/ir"
)

// Executor runs SQL against some store and returns a result set. Both the
// Tier-2 synthetic store and the Tier-3 real connection satisfy this; the
// Benchmark Runner's bench.Connection type implements the same method set.
type Executor interface {
	Query(ctx context.Context, sql string) (equivalence.ResultSet, error)
}

// Verdict is the outcome of running a candidate through the full gate.
type Verdict struct {
	// Tier is the highest tier that actually ran: 1, 2 or 3.
	Tier   int
	Passed bool
	Reason string
}

// Validator runs the layered gate of spec.md §4.4.
type Validator struct {
	Checker *equivalence.Checker
}

// NewValidator constructs a Validator using the given tolerance policy.
func NewValidator(checker *equivalence.Checker) *Validator {
	return &Validator{Checker: checker}
}

// Run executes Tier-1, then (if it passes) Tier-2 against synthetic, then
// (if that passes) Tier-3 against the full dataset. Tier-2/Tier-3 are
// skipped entirely when Tier-1 fails (spec.md §4.4): "If Tier-1 fails,
// Tier-2 and Tier-3 are skipped and the candidate is marked FAIL".
func (v *Validator) Run(
	ctx context.Context,
	candidateSQL string,
	dial dialect.Name,
	baseline *ir.Statement,
	declaresSelectListChange bool,
	synthetic, full Executor,
) Verdict {
	t1 := Tier1(candidateSQL, dial, baseline, declaresSelectListChange)
	if !t1.Passed {
		return Verdict{Tier: 1, Passed: false, Reason: t1.Reason}
	}

	if synthetic == nil || full == nil {
		return Verdict{Tier: 1, Passed: true}
	}

	baselineSQL := ir.RenderBody(baseline.Body)
	t2, reason := compareTier(ctx, v.Checker, synthetic, baselineSQL, candidateSQL)
	if !t2 {
		return Verdict{Tier: 2, Passed: false, Reason: reason}
	}

	t3, reason := compareTier(ctx, v.Checker, full, baselineSQL, candidateSQL)
	if !t3 {
		// Tier-3 failures are authoritative and never retried (spec.md §4.4).
		return Verdict{Tier: 3, Passed: false, Reason: reason}
	}

	return Verdict{Tier: 3, Passed: true}
}

func compareTier(ctx context.Context, checker *equivalence.Checker, exec Executor, baselineSQL, candidateSQL string) (bool, string) {
	baseRows, err := exec.Query(ctx, baselineSQL)
	if err != nil {
		return false, "baseline execution error: " + err.Error()
	}
	candRows, err := exec.Query(ctx, candidateSQL)
	if err != nil {
		return false, "candidate execution error: " + err.Error()
	}
	ok, div := checker.Equivalent(baseRows, candRows)
	if !ok {
		return false, div.Message
	}
	return true, ""
}
