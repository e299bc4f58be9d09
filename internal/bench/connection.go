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

// Package bench implements the Benchmark Runner (spec.md §4.5): a
// single-connection, fail-fast timing harness.
package bench

import (
	"context"
	"time"

	"github.com/queryforge/sqlbeam/internal/equivalence"
)

// ConnectionSpec identifies the database to connect to — a DuckDB file
// path, PostgreSQL DSN, or Snowflake URI (spec.md §6).
type ConnectionSpec struct {
	Engine string // "duckdb" | "postgres" | "snowflake"
	URI    string
}

// Connection is a single live database connection. The Benchmark Runner
// opens exactly one per call (spec.md §4.5 step 1, §8 "Single-connection
// invariant") and guarantees it is closed on every exit path.
type Connection interface {
	// Query executes sql and returns its result set. Implementations must
	// carry the caller's statement-level timeout via ctx (spec.md §5).
	Query(ctx context.Context, sql string) (equivalence.ResultSet, error)
	// Explain returns the engine's EXPLAIN plan text for sql.
	Explain(ctx context.Context, sql string) (string, error)
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// ConnectionFactory opens a new Connection for spec. It is invoked exactly
// once per benchmark_query_patches call (spec.md §4.5 step 1).
type ConnectionFactory func(ctx context.Context, spec ConnectionSpec) (Connection, error)

// timed runs fn and returns its elapsed duration alongside any error; used
// by the runner to time baseline/candidate executions uniformly.
func timed(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}
