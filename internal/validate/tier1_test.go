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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/ir"
)

func mustBuild(t *testing.T, sql string) *ir.Statement {
	t.Helper()
	script, err := ir.BuildScriptIR(sql, dialect.DuckDB)
	require.NoError(t, err)
	return script.Statements[0]
}

func TestTier1PassesOnColumnPreservingRewrite(t *testing.T) {
	baseline := mustBuild(t, "SELECT a, b FROM t WHERE a > 1")
	res := Tier1("SELECT a, b FROM t WHERE a > 2", dialect.DuckDB, baseline, false)
	require.True(t, res.Passed, res.Reason)
}

func TestTier1FailsOnColumnChange(t *testing.T) {
	baseline := mustBuild(t, "SELECT a, b FROM t")
	res := Tier1("SELECT a FROM t", dialect.DuckDB, baseline, false)
	require.False(t, res.Passed)
}

func TestTier1AllowsColumnChangeWhenDeclared(t *testing.T) {
	baseline := mustBuild(t, "SELECT a, b FROM t")
	res := Tier1("SELECT a FROM t", dialect.DuckDB, baseline, true)
	require.True(t, res.Passed, res.Reason)
}

func TestTier1FailsOnUnreferencedCTE(t *testing.T) {
	baseline := mustBuild(t, "SELECT a FROM t")
	res := Tier1("WITH x AS (SELECT 1 AS a) SELECT a FROM t", dialect.DuckDB, baseline, false)
	require.False(t, res.Passed)
}

func TestTier1PassesWhenCTEOnlyReferencedInsideWhereSubquery(t *testing.T) {
	baseline := mustBuild(t, "SELECT a FROM t")
	res := Tier1(
		"WITH x AS (SELECT id FROM t2) SELECT a FROM t WHERE a IN (SELECT id FROM x)",
		dialect.DuckDB, baseline, false,
	)
	require.True(t, res.Passed, res.Reason)
}

func TestTier1FailsOnParseError(t *testing.T) {
	baseline := mustBuild(t, "SELECT a FROM t")
	res := Tier1("SELECT FROM WHERE", dialect.DuckDB, baseline, false)
	require.False(t, res.Passed)
}
