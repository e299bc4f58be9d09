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

package promptassembly

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONUnwrapsFence(t *testing.T) {
	resp := "here you go:\n```json\n{\"plan_id\": \"p1\", \"steps\": []}\n```\n"
	raw, err := ExtractJSON(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"plan_id": "p1", "steps": []}`, raw)
}

func TestExtractJSONPlainBlob(t *testing.T) {
	raw, err := ExtractJSON(`{"optimized_sql": "select 1"}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"optimized_sql": "select 1"}`, raw)
}

func TestExtractJSONEmptyIsHardFailure(t *testing.T) {
	_, err := ExtractJSON("   ")
	require.Error(t, err)
}

func TestParseWorkerResponseSinglePlan(t *testing.T) {
	resp := `{"plan_id": "p1", "steps": [{"step_id": "s1", "op": "replace_where_predicate", "target": {"by_anchor_hash": "abc"}, "payload": {"expr_sql": "x > 1"}}]}`
	trees, err := ParseWorkerResponse(resp)
	require.NoError(t, err)
	require.Len(t, trees, 1)
	require.NotNil(t, trees[0].Plan)
	require.Equal(t, "p1", trees[0].Plan.PlanID)
}

func TestParseWorkerResponseWholeSQL(t *testing.T) {
	trees, err := ParseWorkerResponse(`{"optimized_sql": "select 1"}`)
	require.NoError(t, err)
	require.Len(t, trees, 1)
	require.Equal(t, "select 1", trees[0].OptimizedSQL)
}

func TestParseWorkerResponseArrayOfTrees(t *testing.T) {
	resp := `[{"optimized_sql": "select 1"}, {"plan_id": "p2", "steps": []}]`
	trees, err := ParseWorkerResponse(resp)
	require.NoError(t, err)
	require.Len(t, trees, 2)
}

func TestParseWorkerResponseStepsWrapperOfTrees(t *testing.T) {
	resp := `{"steps": [{"optimized_sql": "select 1"}, {"optimized_sql": "select 2"}]}`
	trees, err := ParseWorkerResponse(resp)
	require.NoError(t, err)
	require.Len(t, trees, 2)
	require.Equal(t, "select 1", trees[0].OptimizedSQL)
}

func TestParseWorkerResponseStepCountCapExceeded(t *testing.T) {
	steps := ""
	for i := 0; i < 40; i++ {
		if i > 0 {
			steps += ","
		}
		steps += `{"step_id": "s", "op": "delete_expr_subtree", "target": {}, "payload": {}}`
	}
	resp := `{"plan_id": "p1", "steps": [` + steps + `]}`
	_, err := ParseWorkerResponse(resp)
	require.Error(t, err)
}

func TestParseScoutResultEmptyIsHardFailure(t *testing.T) {
	_, err := ParseScoutResult(`{"dispatch": "wide", "probes": []}`)
	require.Error(t, err)
}

func TestParseScoutResultCapsAtWideProbeCap(t *testing.T) {
	probes := ""
	for i := 0; i < WideProbeCap+5; i++ {
		if i > 0 {
			probes += ","
		}
		probes += `{"id": "p", "hypothesis": "h"}`
	}
	resp := `{"dispatch": "wide", "probes": [` + probes + `]}`
	res, err := ParseScoutResult(resp)
	require.NoError(t, err)
	require.Len(t, res.Probes, WideProbeCap)
}
