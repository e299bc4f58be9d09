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

package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryforge/sqlbeam/internal/bench"
	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/equivalence"
	"github.com/queryforge/sqlbeam/internal/llm"
	"github.com/queryforge/sqlbeam/internal/patch"
	"github.com/queryforge/sqlbeam/internal/validate"
)

// fakeClient is a stub llm.Client whose Analyze always returns an empty
// response; its fields are not read.
type fakeClient struct {
	responses []string
	calls     int
}

func (f fakeClient) Analyze(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

// sequencedClient is a scripted llm.Client: it returns responses[0] on the
// first call, responses[1] on the second, and so on, repeating the last
// response once exhausted.
type sequencedClient struct {
	responses []string
	idx       *int
}

func (s sequencedClient) Analyze(ctx context.Context, prompt string) (string, error) {
	i := *s.idx
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	*s.idx++
	return s.responses[i], nil
}

func newSequencedClient(responses ...string) llm.Client {
	idx := 0
	return sequencedClient{responses: responses, idx: &idx}
}

type fakeBenchConn struct {
	results map[string]equivalence.ResultSet
}

func (f fakeBenchConn) Query(ctx context.Context, sql string) (equivalence.ResultSet, error) {
	return f.results[sql], nil
}
func (f fakeBenchConn) Explain(ctx context.Context, sql string) (string, error) { return "", nil }
func (f fakeBenchConn) Close() error                                           { return nil }

func TestRunQueryEndToEndWideMode(t *testing.T) {
	const originalSQL = "SELECT a, b FROM t WHERE a > 1"
	const rewrittenSQL = "SELECT a, b FROM t WHERE a > 1 AND 1=1"

	conn := fakeBenchConn{results: map[string]equivalence.ResultSet{
		originalSQL:  {Rows: []equivalence.Row{{1, 2}, {3, 4}}},
		rewrittenSQL: {Rows: []equivalence.Row{{1, 2}, {3, 4}}},
	}}

	analystResponse := `{"dispatch": "wide", "probes": [{"id": "p1", "hypothesis": "no-op redundant predicate", "reasoning": "test"}]}`
	workerResponse := `{"optimized_sql": "` + rewrittenSQL + `"}`
	client := newSequencedClient(analystResponse, workerResponse)

	cfg := DefaultConfig()
	cfg.Clients = llm.RoutedClient{Fast: client}
	profile, err := dialect.Load(dialect.DuckDB, "0.10")
	require.NoError(t, err)
	cfg.DialectProfile = profile
	cfg.ConnFactory = func(ctx context.Context, spec bench.ConnectionSpec) (bench.Connection, error) {
		return conn, nil
	}
	cfg.BenchKnobs = bench.DefaultKnobs()

	checker := equivalence.NewChecker(equivalence.RelativeOrAbsolute)
	orch := New(cfg, patch.NewEngine(), validate.NewValidator(checker), bench.NewRunner(cfg.ConnFactory, nil), nil, nil, nil)

	result, err := orch.RunQuery(context.Background(), "q1", originalSQL, "explain text", 0, "")
	require.NoError(t, err)
	require.NotNil(t, result.BestPatchIdx)
	require.Len(t, result.Candidates, 1)
	require.Equal(t, rewrittenSQL, result.Candidates[0].OutputSQL)
}

func TestRunQueryAbortsOnEmptyAnalystResponse(t *testing.T) {
	client := newSequencedClient(`{"dispatch": "wide", "probes": []}`)
	cfg := DefaultConfig()
	cfg.Clients = llm.RoutedClient{Fast: client}
	profile, _ := dialect.Load(dialect.DuckDB, "0.10")
	cfg.DialectProfile = profile

	checker := equivalence.NewChecker(equivalence.RelativeOrAbsolute)
	orch := New(cfg, patch.NewEngine(), validate.NewValidator(checker), nil, nil, nil, nil)

	result, err := orch.RunQuery(context.Background(), "q1", "SELECT a FROM t", "", 0, "")
	require.NoError(t, err)
	require.Nil(t, result.BestPatchIdx)
}
