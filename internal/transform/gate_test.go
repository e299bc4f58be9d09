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

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/ir"
)

func TestApplicableSortedAndFiltered(t *testing.T) {
	script, err := ir.BuildScriptIR(`SELECT a FROM t WHERE a NOT IN (SELECT b FROM t2)`, dialect.DuckDB)
	require.NoError(t, err)

	profile, err := dialect.Load(dialect.DuckDB, "0.10")
	require.NoError(t, err)

	cands := Applicable(script, profile)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		require.GreaterOrEqual(t, c.Score, MinOverlapScore)
	}
	for i := 1; i < len(cands); i++ {
		require.GreaterOrEqual(t, cands[i-1].Score, cands[i].Score)
	}
}
