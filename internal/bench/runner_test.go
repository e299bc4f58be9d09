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

package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryforge/sqlbeam/internal/equivalence"
	"github.com/queryforge/sqlbeam/internal/model"
)

// fakeConnection is an in-memory Connection used to exercise the runner's
// algorithm without a real database.
type fakeConnection struct {
	opens      int
	closes     int
	queryCalls map[string]int
	resultsBySQL map[string]equivalence.ResultSet
	errsBySQL    map[string]error
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		queryCalls:   make(map[string]int),
		resultsBySQL: make(map[string]equivalence.ResultSet),
		errsBySQL:    make(map[string]error),
	}
}

func (f *fakeConnection) Query(ctx context.Context, sql string) (equivalence.ResultSet, error) {
	f.queryCalls[sql]++
	if err, ok := f.errsBySQL[sql]; ok {
		return equivalence.ResultSet{}, err
	}
	return f.resultsBySQL[sql], nil
}

func (f *fakeConnection) Explain(ctx context.Context, sql string) (string, error) {
	return "explain: " + sql, nil
}

func (f *fakeConnection) Close() error {
	f.closes++
	return nil
}

func factoryFor(conn *fakeConnection) ConnectionFactory {
	return func(ctx context.Context, spec ConnectionSpec) (Connection, error) {
		conn.opens++
		return conn, nil
	}
}

func TestSingleConnectionInvariant(t *testing.T) {
	conn := newFakeConnection()
	baseline := "SELECT * FROM t"
	conn.resultsBySQL[baseline] = equivalence.ResultSet{Rows: []equivalence.Row{{1}, {2}}}

	cand := &model.Candidate{PatchID: "c1", OutputSQL: "SELECT * FROM t2"}
	conn.resultsBySQL[cand.OutputSQL] = equivalence.ResultSet{Rows: []equivalence.Row{{1}, {2}}}

	runner := NewRunner(factoryFor(conn), nil)
	knobs := DefaultKnobs()
	_, err := runner.Run(context.Background(), []*model.Candidate{cand}, baseline, ConnectionSpec{}, knobs)

	require.NoError(t, err)
	require.Equal(t, 1, conn.opens)
	require.Equal(t, 1, conn.closes)
}

func TestFailFastOnRowCountMismatch(t *testing.T) {
	conn := newFakeConnection()
	baseline := "SELECT * FROM t"
	conn.resultsBySQL[baseline] = equivalence.ResultSet{Rows: []equivalence.Row{{1}, {2}, {3}}}

	cand := &model.Candidate{PatchID: "c1", OutputSQL: "SELECT * FROM t2"}
	conn.resultsBySQL[cand.OutputSQL] = equivalence.ResultSet{Rows: []equivalence.Row{{1}, {2}}}

	runner := NewRunner(factoryFor(conn), nil)
	knobs := DefaultKnobs()
	summary, err := runner.Run(context.Background(), []*model.Candidate{cand}, baseline, ConnectionSpec{}, knobs)

	require.NoError(t, err)
	require.Equal(t, model.StatusFail, summary.Candidates[0].Status)
	require.Contains(t, summary.Candidates[0].ApplyError, "Row count mismatch")
	require.Equal(t, 1, conn.queryCalls[cand.OutputSQL], "exactly one execution on fail-fast")
}

func TestKnownTimeoutBaseline(t *testing.T) {
	conn := newFakeConnection()
	cand := &model.Candidate{PatchID: "c1", OutputSQL: "SELECT * FROM t2"}
	conn.resultsBySQL[cand.OutputSQL] = equivalence.ResultSet{Rows: []equivalence.Row{{1}}}

	runner := NewRunner(factoryFor(conn), nil)
	knobs := DefaultKnobs()
	knobs.KnownTimeout = true
	knobs.TimeoutSeconds = 300

	summary, err := runner.Run(context.Background(), []*model.Candidate{cand}, "SELECT * FROM t", ConnectionSpec{}, knobs)
	require.NoError(t, err)
	require.Equal(t, 300000.0, summary.BaselineMs)
	require.Equal(t, int64(-1), summary.BaselineRows)
}
