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

package sqlbeam

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/queryforge/sqlbeam/internal/bench"
	"github.com/queryforge/sqlbeam/internal/equivalence"
	"github.com/queryforge/sqlbeam/internal/model"
	"github.com/queryforge/sqlbeam/internal/orchestrator"
	"github.com/queryforge/sqlbeam/internal/patch"
	"github.com/queryforge/sqlbeam/internal/promptassembly"
	"github.com/queryforge/sqlbeam/internal/transform"
	"github.com/queryforge/sqlbeam/internal/validate"
)

// ExplainInput is the execution-plan input of spec.md §6: either a bare
// dialect-specific text block, or the richer JSON shape with an optional
// wall-clock time and plan JSON.
type ExplainInput struct {
	PlanText        string
	ExecutionTimeMs *float64
	PlanJSON        string
}

// Engine is the single library entry point of spec.md §6: "the core is
// consumed as a library whose single entry point per query is
// run_session(query_id, sql, explain, db_spec, mode) -> SessionResult."
type Engine struct {
	cfg          Config
	orchestrator *orchestrator.Orchestrator
	log          *logrus.Entry
}

// NewEngine wires the four subsystems of spec.md §1 into one Engine,
// resolving the dialect profile once up front (a missing profile is a
// fatal configuration error, spec.md §7 kind 1).
func NewEngine(cfg Config, synthetic, full validate.Executor, log *logrus.Entry) (*Engine, error) {
	profile, err := cfg.resolvedDialectProfile()
	if err != nil {
		return nil, fmt.Errorf("sqlbeam: fatal configuration error: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	checker := equivalence.NewChecker(cfg.Tolerance)
	validator := validate.NewValidator(checker)
	engine := patch.NewEngine()

	benchLog := log.WithField("component", "bench")
	runner := bench.NewRunner(cfg.ConnFactory, benchLog)

	orchCfg := cfg.Orchestrator
	orchCfg.DialectProfile = profile
	orchCfg.Clients = cfg.Clients
	orchCfg.ConnSpec = cfg.DB
	orchCfg.ConnFactory = cfg.ConnFactory
	orchCfg.SchemaContext = cfg.SchemaContext
	orchCfg.EngineKnowledge = cfg.EngineKnowledge
	orchCfg.GoldExamples = cachedGoldExamplesLookup(cfg, log.WithField("component", "goldcache"))
	if orchCfg.WorkerPoolSize == 0 {
		orchCfg.WorkerPoolSize = orchestrator.DefaultConfig().WorkerPoolSize
	}
	if orchCfg.FocusedTimeShareThreshold == 0 {
		orchCfg.FocusedTimeShareThreshold = orchestrator.DefaultConfig().FocusedTimeShareThreshold
	}
	if orchCfg.EarlyStopSpeedup == 0 {
		orchCfg.EarlyStopSpeedup = orchestrator.DefaultConfig().EarlyStopSpeedup
	}
	if orchCfg.BenchKnobs.BaselineRuns == 0 {
		orchCfg.BenchKnobs = bench.DefaultKnobs()
	}

	orch := orchestrator.New(orchCfg, engine, validator, runner, synthetic, full, log.WithField("component", "orchestrator"))

	return &Engine{cfg: cfg, orchestrator: orch, log: log}, nil
}

// cachedGoldExamplesLookup fronts cfg.GoldExamples with cfg.GoldCacheClient,
// per spec.md §6's Redis-backed gold example cache: a hit returns straight
// from Redis, a miss falls through to the caller's lookup and populates the
// cache for next time. With no cache client configured, or no underlying
// lookup to cache, it returns cfg.GoldExamples unchanged (nil falls back to
// a Transform's own Registry-embedded examples, same as before).
func cachedGoldExamplesLookup(cfg Config, log *logrus.Entry) func(string) []transform.GoldExample {
	if cfg.GoldCacheClient == nil || cfg.GoldExamples == nil {
		return cfg.GoldExamples
	}
	cache := promptassembly.NewGoldCache(cfg.GoldCacheClient, cfg.GoldCacheTTL)
	underlying := cfg.GoldExamples
	return func(transformName string) []transform.GoldExample {
		ctx := context.Background()
		if examples, ok := cache.Get(ctx, transformName); ok {
			return examples
		}
		examples := underlying(transformName)
		if err := cache.Put(ctx, transformName, examples); err != nil {
			log.WithField("transform", transformName).WithError(err).Warn("gold example cache write failed")
		}
		return examples
	}
}

// RunSession is spec.md §6's run_session(query_id, sql, explain, db_spec,
// mode) -> SessionResult. mode may be "" to let the workload router choose,
// or one of orchestrator.ModeWide/ModeFocused/ModeReasoning to force a lane.
func (e *Engine) RunSession(ctx context.Context, queryID, sql string, explain ExplainInput, mode orchestrator.Mode) (model.SessionResult, error) {
	return e.RunSessionWithShare(ctx, queryID, sql, explain, 0, mode)
}

// RunSessionWithShare is RunSession with an explicit timeShare (this
// query's fraction of the batch's total baseline time), consulted by the
// workload router when mode is "" (spec.md §4.6).
func (e *Engine) RunSessionWithShare(ctx context.Context, queryID, sql string, explain ExplainInput, timeShare float64, mode orchestrator.Mode) (model.SessionResult, error) {
	result, err := e.orchestrator.RunQuery(ctx, queryID, sql, explain.PlanText, timeShare, mode)
	if err != nil {
		return model.SessionResult{}, err
	}
	return result, nil
}
