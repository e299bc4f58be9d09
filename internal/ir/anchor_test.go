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

package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryforge/sqlbeam/internal/dialect"
)

const simpleQuery = `SELECT a, b AS bb FROM t WHERE a > 1 ORDER BY b LIMIT 10`

func TestAnchorDeterminism(t *testing.T) {
	a := Anchor(Canonicalize("  SELECT  a FROM   t "))
	b := Anchor(Canonicalize("select a from t"))
	require.Equal(t, a, b, "anchor depends only on canonical text")
}

func TestAnchorDiffersOnDifferentText(t *testing.T) {
	require.NotEqual(t, Anchor("select a from t"), Anchor("select b from t"))
}

func TestBuildScriptIRAssignsIDsColumnsAndAnchors(t *testing.T) {
	script, err := BuildScriptIR(simpleQuery, dialect.DuckDB)
	require.NoError(t, err)
	require.Len(t, script.Statements, 1)

	stmt := script.Statements[0]
	require.Equal(t, NodeID("S0"), stmt.ID)
	require.Equal(t, []string{"a", "bb"}, OutputColumns(stmt))
	require.NotEmpty(t, stmt.Body.Where.Anchor)
	require.NotEmpty(t, stmt.Body.From.Anchor)
}

func TestCloneIsIndependent(t *testing.T) {
	script, err := BuildScriptIR(simpleQuery, dialect.DuckDB)
	require.NoError(t, err)

	clone := Clone(script)
	clone.Statements[0].Body.Where.Raw = "a > 999"
	require.NotEqual(t, script.Statements[0].Body.Where.Raw, clone.Statements[0].Body.Where.Raw)
}

func TestFindByAnchorAmbiguity(t *testing.T) {
	script, err := BuildScriptIR(`SELECT a FROM t WHERE a > 1 AND a > 1`, dialect.DuckDB)
	require.NoError(t, err)
	body := script.Statements[0].Body
	matches := FindByAnchor(body, body.Where.Children[0].Anchor)
	require.GreaterOrEqual(t, len(matches), 2, "identical subtrees collide intentionally")
}
