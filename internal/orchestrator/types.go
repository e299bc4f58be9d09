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

// Package orchestrator implements the Beam Orchestrator of spec.md §4.6: the
// analyst → workers → sniper search that drives patch proposal, validation
// and benchmarking for a single query.
package orchestrator

import (
	"github.com/queryforge/sqlbeam/internal/bench"
	"github.com/queryforge/sqlbeam/internal/dialect"
	"github.com/queryforge/sqlbeam/internal/llm"
	"github.com/queryforge/sqlbeam/internal/transform"
)

// Mode is the search strategy selected for one query, per spec.md §4.6.
type Mode string

const (
	ModeWide      Mode = "wide"
	ModeFocused   Mode = "focused"
	ModeReasoning Mode = "reasoning"
)

// Config holds the session-independent knobs of the orchestrator.
type Config struct {
	// WorkerPoolSize bounds concurrent worker LLM calls (spec.md §4.6
	// default 8).
	WorkerPoolSize int
	// FocusedTimeShareThreshold is the fraction of total baseline time a
	// query must represent for the workload router to pick focused mode.
	FocusedTimeShareThreshold float64
	// EarlyStopSpeedup is the confirmed speedup that would cancel remaining
	// pending worker calls, per spec.md §4.6. Accepted for forward
	// compatibility but not currently enforced: see the deviation note on
	// Orchestrator and DESIGN.md. Left at its documented default rather than
	// dropped so a future incremental-benchmark change can wire it without
	// another Config surface change.
	EarlyStopSpeedup float64
	// EnableSniper toggles the optional sniper phase.
	EnableSniper bool
	// EquivalenceTier is passed through to prompts and the Validator.
	EquivalenceTier int
	ImportanceStars int
	SchemaContext   string
	EngineKnowledge string
	DoNotDo         []string

	DialectProfile dialect.Profile

	// GoldExamples looks up verified examples for a transform name.
	GoldExamples func(transformName string) []transform.GoldExample

	BenchKnobs  bench.Knobs
	ConnSpec    bench.ConnectionSpec
	ConnFactory bench.ConnectionFactory

	Clients llm.RoutedClient
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		WorkerPoolSize:            8,
		FocusedTimeShareThreshold: 0.15,
		EarlyStopSpeedup:          1.5,
		EquivalenceTier:           3,
		BenchKnobs:                bench.DefaultKnobs(),
	}
}
