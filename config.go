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

// Package sqlbeam is the feedback-driven SQL rewrite engine: given a slow
// analytical query and its execution plan, RunSession proposes, validates
// and benchmarks candidate rewrites and returns the fastest one that
// verified as semantically equivalent.
package sqlbeam

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/queryforge/sqlbeam/internal/bench"
	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/equivalence"
	"github.com/queryforge/sqlbeam/internal/llm"
	"github.com/queryforge/sqlbeam/internal/orchestrator"
	"github.com/queryforge/sqlbeam/internal/transform"
)

// Config for the Engine.
type Config struct {
	// Dialect identifies the target engine (duckdb, postgres, snowflake)
	// and version; a missing profile is a fatal configuration error.
	Dialect        dialect.Name
	DialectVersion string

	// DB is how the Benchmark Runner and Validator's Tier-2/Tier-3
	// executors open their single connection.
	DB bench.ConnectionSpec
	// ConnFactory selects the driver for DB.Engine (OpenPostgres,
	// OpenDuckDB, or a caller-supplied Snowflake factory).
	ConnFactory bench.ConnectionFactory

	// Clients is the black-box LLM boundary of spec.md §1.
	Clients llm.RoutedClient

	// Orchestrator carries the tunable search knobs of spec.md §4.6.
	Orchestrator orchestrator.Config

	// Tolerance configures the Equivalence Checker's floating-point
	// comparison policy (spec.md §9 Open Question).
	Tolerance equivalence.ToleranceMode

	// GoldCacheClient, if set, fronts the gold example store with Redis
	// (spec.md §6 "Gold example store").
	GoldCacheClient *redis.Client
	GoldCacheTTL    time.Duration

	// SchemaContext and EngineKnowledge are injected verbatim into
	// prompts (spec.md §6).
	SchemaContext   string
	EngineKnowledge string

	// GoldExamples looks up verified examples by transform name; when
	// nil, a Transform's own Registry-embedded examples are used instead.
	GoldExamples func(transformName string) []transform.GoldExample
}

// resolvedDialectProfile loads the static capability profile named by the
// config, failing the same way an unresolvable DSN or missing API key
// would (spec.md §7 kind 1: fatal configuration error).
func (c Config) resolvedDialectProfile() (dialect.Profile, error) {
	return dialect.Load(c.Dialect, c.DialectVersion)
}
