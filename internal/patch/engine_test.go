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

package patch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/ir"
)

func mustBuild(t *testing.T, sql string) *ir.ScriptIR {
	t.Helper()
	script, err := ir.BuildScriptIR(sql, dialect.DuckDB)
	require.NoError(t, err)
	return script
}

func TestEmptyPlanIsNoOp(t *testing.T) {
	script := mustBuild(t, "SELECT a FROM t WHERE a > 1")
	engine := NewEngine()

	res := engine.Apply(script, &Plan{PlanID: "p0"})
	require.True(t, res.Success)
	require.Equal(t, ir.Render(script), res.OutputSQL)
}

func TestInsertCTEAppendsCTE(t *testing.T) {
	script := mustBuild(t, "SELECT a FROM t WHERE a > 1")
	engine := NewEngine()

	plan := &Plan{
		PlanID: "p1",
		Steps: []Step{
			{
				StepID: "s1",
				Op:     OpInsertCTE,
				Target: Target{ByNodeID: "S0"},
				Payload: Payload{
					CTEName:     "agg",
					CTEQuerySQL: "select a, count(*) as c from t group by a",
				},
			},
		},
	}
	res := engine.Apply(script, plan)
	require.True(t, res.Success, res.Errors)
	require.Len(t, res.OutputIR.Statements[0].Body.CTEs, 1)
}

func TestUnresolvedTargetFails(t *testing.T) {
	script := mustBuild(t, "SELECT a FROM t")
	engine := NewEngine()

	plan := &Plan{
		PlanID: "p2",
		Steps: []Step{
			{StepID: "s1", Op: OpInsertCTE, Target: Target{ByNodeID: "S1"}, Payload: Payload{CTEName: "x", CTEQuerySQL: "select 1"}},
		},
	}
	res := engine.Apply(script, plan)
	require.False(t, res.Success)
	require.Len(t, res.Errors, 1)
}

func TestAmbiguousAnchorFails(t *testing.T) {
	script := mustBuild(t, "SELECT a FROM t WHERE a > 1 AND a > 1")
	engine := NewEngine()
	where := script.Statements[0].Body.Where
	target := where.Children[0].Anchor

	plan := &Plan{
		PlanID: "p3",
		Steps: []Step{
			{
				StepID:  "s1",
				Op:      OpReplaceExprSubtree,
				Target:  Target{ByNodeID: "S0", ByAnchorHash: target},
				Payload: Payload{ExprSQL: "a > 2"},
			},
		},
	}
	res := engine.Apply(script, plan)
	require.False(t, res.Success)
}

func TestReplaceFromKeepsOutputColumns(t *testing.T) {
	script := mustBuild(t, "SELECT a, b FROM t")
	engine := NewEngine()

	plan := &Plan{
		PlanID: "p4",
		Steps: []Step{
			{
				StepID:  "s1",
				Op:      OpReplaceFrom,
				Target:  Target{ByNodeID: "S0"},
				Payload: Payload{FromSQL: "t2"},
			},
		},
	}
	res := engine.Apply(script, plan)
	require.True(t, res.Success)
	require.Equal(t, []string{"a", "b"}, ir.OutputColumns(res.OutputIR.Statements[0]))
}

func TestDeleteExprSubtreeFoldsConjunctIntoRenderedSQL(t *testing.T) {
	script := mustBuild(t, "SELECT a FROM t WHERE a > 1 AND b = 2")
	engine := NewEngine()
	where := script.Statements[0].Body.Where
	require.Equal(t, "AND", where.Op)
	target := where.Children[1].Anchor // "b = 2"

	plan := &Plan{
		PlanID: "p6",
		Steps: []Step{
			{StepID: "s1", Op: OpDeleteExprSubtree, Target: Target{ByNodeID: "S0", ByAnchorHash: target}},
		},
	}
	res := engine.Apply(script, plan)
	require.True(t, res.Success, res.Errors)
	require.Contains(t, res.OutputSQL, "a > 1")
	require.NotContains(t, res.OutputSQL, "b = 2")
}

func TestDeleteExprSubtreeFoldsConjunctInHavingClause(t *testing.T) {
	script := mustBuild(t, "SELECT a, count(*) AS c FROM t GROUP BY a HAVING count(*) > 1 AND a < 10")
	engine := NewEngine()
	having := script.Statements[0].Body.Having
	require.Equal(t, "AND", having.Op)
	target := having.Children[1].Anchor // "a < 10"

	plan := &Plan{
		PlanID: "p8",
		Steps: []Step{
			{StepID: "s1", Op: OpDeleteExprSubtree, Target: Target{ByNodeID: "S0", ByAnchorHash: target}},
		},
	}
	res := engine.Apply(script, plan)
	require.True(t, res.Success, res.Errors)
	require.Contains(t, res.OutputSQL, "count(*) > 1")
	require.NotContains(t, res.OutputSQL, "a < 10")
}

func TestReplaceExprSubtreeReflowsThroughParentConjunct(t *testing.T) {
	script := mustBuild(t, "SELECT a FROM t WHERE a > 1 AND b = 2")
	engine := NewEngine()
	where := script.Statements[0].Body.Where
	target := where.Children[0].Anchor // "a > 1"

	plan := &Plan{
		PlanID: "p7",
		Steps: []Step{
			{
				StepID:  "s1",
				Op:      OpReplaceExprSubtree,
				Target:  Target{ByNodeID: "S0", ByAnchorHash: target},
				Payload: Payload{ExprSQL: "a > 99"},
			},
		},
	}
	res := engine.Apply(script, plan)
	require.True(t, res.Success, res.Errors)
	require.Contains(t, res.OutputSQL, "a > 99")
	require.Contains(t, res.OutputSQL, "b = 2")
	require.NotContains(t, res.OutputSQL, "a > 1")
}

func TestApplyIsPureFunction(t *testing.T) {
	script := mustBuild(t, "SELECT a FROM t WHERE a > 1")
	engine := NewEngine()
	plan := &Plan{
		PlanID: "p5",
		Steps: []Step{
			{StepID: "s1", Op: OpReplaceWherePredicate, Target: Target{ByNodeID: "S0"}, Payload: Payload{ExprSQL: "a > 5"}},
		},
	}

	r1 := engine.Apply(script, plan)
	r2 := engine.Apply(script, plan)
	require.Equal(t, r1.OutputSQL, r2.OutputSQL)
	require.Equal(t, r1.Success, r2.Success)
}
